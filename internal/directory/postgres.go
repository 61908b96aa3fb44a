package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pfrederiksen/connpass-attendees/internal/attendee"
)

// spaceClass matches the runes unicode.IsSpace reports, so compacted names agree with
// attendee.CompactName regardless of the database locale.
const spaceClass = `[ \t\n\v\f\r\u0085\u00a0\u1680\u2000-\u200a\u2028\u2029\u202f\u205f\u3000]+`

// Absent candidate keys are sent as NULL, and NULL = x is never true, so an
// attendee without a handle cannot match users whose column is empty or NULL.
const findActiveQuery = `
	SELECT id, name, nickname, COALESCE(twitter_name, ''), COALESCE(facebook_name, '')
	FROM users
	WHERE deactivated_at IS NULL
	  AND (
		LOWER(nickname) = $1
		OR LOWER(twitter_name) = $2
		OR LOWER(facebook_name) = $3
		OR regexp_replace(LOWER(name), '` + spaceClass + `', '', 'g') = $4
		OR regexp_replace(LOWER(nickname), '` + spaceClass + `', '', 'g') = $5
	  )
	ORDER BY id
`

const queryTimeout = 5 * time.Second

// PostgresDirectory looks users up in a PostgreSQL users table
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory connects to the database and verifies the connection
func NewPostgresDirectory(ctx context.Context, connString string) (*PostgresDirectory, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDirectory{pool: pool}, nil
}

// Close releases the connection pool
func (d *PostgresDirectory) Close() {
	d.pool.Close()
}

// FindActive returns every active user matching at least one candidate key
func (d *PostgresDirectory) FindActive(ctx context.Context, c attendee.Candidates) ([]User, error) {
	if c.Empty() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := d.pool.Query(ctx, findActiveQuery, c.GitHub, c.Twitter, c.Facebook, c.Name, c.Nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		err := row.Scan(&u.ID, &u.Name, &u.Nickname, &u.TwitterName, &u.FacebookName)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	return users, nil
}
