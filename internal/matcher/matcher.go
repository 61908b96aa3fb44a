// Package matcher resolves a scraped attendee profile to at most one local user.
//
// A profile is turned into normalized candidate keys and looked up in a Directory
// with a single OR-combined predicate. Exactly one active match resolves; zero
// matches or more than one (ambiguous) resolve to nothing. Ambiguity is never
// broken automatically: a wrong attendee-to-user mapping is worse than a missed one.
package matcher

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/connpass-attendees/internal/attendee"
	"github.com/pfrederiksen/connpass-attendees/internal/directory"
	"github.com/pfrederiksen/connpass-attendees/internal/logger"
)

// Directory finds active users matching any of the candidate keys
type Directory interface {
	FindActive(ctx context.Context, c attendee.Candidates) ([]directory.User, error)
}

// AmbiguityFunc is called with the profile and every matched user whenever a
// lookup returns more than one user
type AmbiguityFunc func(profile attendee.Profile, users []directory.User)

// Matcher applies the single-match policy on top of a Directory
type Matcher struct {
	dir         Directory
	log         *logger.Logger
	metrics     *logger.Metrics
	onAmbiguous AmbiguityFunc
}

// Option configures a Matcher
type Option func(*Matcher)

// WithAmbiguityFunc registers a hook observing ambiguous matches
func WithAmbiguityFunc(fn AmbiguityFunc) Option {
	return func(m *Matcher) {
		m.onAmbiguous = fn
	}
}

// WithMetrics records match outcome counters
func WithMetrics(metrics *logger.Metrics) Option {
	return func(m *Matcher) {
		m.metrics = metrics
	}
}

// New creates a Matcher over dir
func New(dir Directory, log *logger.Logger, opts ...Option) *Matcher {
	if log == nil {
		log = logger.Discard()
	}
	m := &Matcher{
		dir:     dir,
		log:     log,
		metrics: logger.NewMetrics(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve returns the id of the single active user matching profile. ok is false when
// no user or more than one user matched; err is set only when the lookup itself failed.
func (m *Matcher) Resolve(ctx context.Context, profile attendee.Profile) (id int64, ok bool, err error) {
	candidates := attendee.NewCandidates(profile)
	if candidates.Empty() {
		m.metrics.IncrCounter("matcher.unmatched")
		return 0, false, nil
	}

	users, err := m.dir.FindActive(ctx, candidates)
	if err != nil {
		return 0, false, fmt.Errorf("looking up %q: %w", profile.Name, err)
	}

	switch len(users) {
	case 0:
		m.metrics.IncrCounter("matcher.unmatched")
		return 0, false, nil
	case 1:
		m.metrics.IncrCounter("matcher.resolved")
		return users[0].ID, true, nil
	default:
		m.metrics.IncrCounter("matcher.ambiguous")
		logger.FromContext(ctx, m.log).Warn("Found more than one user for attendee", logger.Fields{
			"attendee": profile,
			"users":    users,
		})
		if m.onAmbiguous != nil {
			m.onAmbiguous(profile, users)
		}
		return 0, false, nil
	}
}
