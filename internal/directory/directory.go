package directory

import (
	"time"
)

// User is a local user record. Only ID is read by attendee resolution; the other
// fields exist so the directory can evaluate its match predicate.
type User struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Nickname      string     `json:"nickname"`
	TwitterName   string     `json:"twitter_name,omitempty"`
	FacebookName  string     `json:"facebook_name,omitempty"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// Active reports whether the user is eligible for matching
func (u User) Active() bool {
	return u.DeactivatedAt == nil
}
