package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pfrederiksen/connpass-attendees/internal/attendee"
)

// MemoryDirectory holds a fixed set of users in memory. It is safe for concurrent
// lookups because it is never modified after construction.
type MemoryDirectory struct {
	users []User
}

// NewMemoryDirectory creates a directory over a copy of users, ordered by id
func NewMemoryDirectory(users []User) *MemoryDirectory {
	sorted := make([]User, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return &MemoryDirectory{users: sorted}
}

// LoadFile reads a JSON array of users from path. A leading "~/" is expanded to the
// home directory.
func LoadFile(path string) (*MemoryDirectory, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading users file: %w", err)
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parsing users file: %w", err)
	}

	return NewMemoryDirectory(users), nil
}

// Len returns the number of users, active or not
func (d *MemoryDirectory) Len() int {
	return len(d.users)
}

// FindActive returns every active user matching at least one candidate key
func (d *MemoryDirectory) FindActive(ctx context.Context, c attendee.Candidates) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found []User
	for _, u := range d.users {
		if u.Active() && matches(u, c) {
			found = append(found, u)
		}
	}
	return found, nil
}

// matches mirrors the predicate used by PostgresDirectory
func matches(u User, c attendee.Candidates) bool {
	return equalKey(c.GitHub, strings.ToLower(u.Nickname)) ||
		equalKey(c.Twitter, strings.ToLower(u.TwitterName)) ||
		equalKey(c.Facebook, strings.ToLower(u.FacebookName)) ||
		equalKey(c.Name, attendee.CompactName(u.Name)) ||
		equalKey(c.Nickname, attendee.CompactName(u.Nickname))
}

// equalKey never matches an absent key
func equalKey(key *string, value string) bool {
	return key != nil && *key == value
}
