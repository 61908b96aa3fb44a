package attendee

import (
	"strings"
)

// Provider identifies a social network whose links appear on attendee profiles
type Provider string

const (
	Twitter  Provider = "twitter"
	Facebook Provider = "facebook"
	GitHub   Provider = "github"
)

// Profile is the name and social handles scraped for one attendee.
// Handle fields are nil when no link for that provider was found.
type Profile struct {
	Name     string  `json:"name"`
	Twitter  *string `json:"twitter"`
	Facebook *string `json:"facebook"`
	GitHub   *string `json:"github"`
}

// NewProfile creates a Profile with the given name and no handles
func NewProfile(name string) Profile {
	return Profile{Name: name}
}

// WithHandle returns a copy of p with the handle for provider set to handle,
// replacing any previous value. Unknown providers leave p unchanged.
func (p Profile) WithHandle(provider Provider, handle string) Profile {
	h := handle
	switch provider {
	case Twitter:
		p.Twitter = &h
	case Facebook:
		p.Facebook = &h
	case GitHub:
		p.GitHub = &h
	}
	return p
}

// Handle returns the handle for provider and whether one was scraped
func (p Profile) Handle(provider Provider) (string, bool) {
	var v *string
	switch provider {
	case Twitter:
		v = p.Twitter
	case Facebook:
		v = p.Facebook
	case GitHub:
		v = p.GitHub
	}
	if v == nil {
		return "", false
	}
	return *v, true
}

// Candidates holds the normalized lookup keys derived from a Profile.
// A nil key means "no value provided" and must never match a directory row.
type Candidates struct {
	GitHub   *string // lowercased github handle, compared to nickname
	Twitter  *string // lowercased twitter handle
	Facebook *string // lowercased facebook id
	Name     *string // compact name, compared to the directory name field
	Nickname *string // compact name again, compared to the directory nickname field
}

// NewCandidates builds the lookup keys for p without modifying it
func NewCandidates(p Profile) Candidates {
	name := nonEmpty(CompactName(p.Name))
	var nickname *string
	if name != nil {
		n := *name
		nickname = &n
	}
	return Candidates{
		GitHub:   lowerOrNil(p.GitHub),
		Twitter:  lowerOrNil(p.Twitter),
		Facebook: lowerOrNil(p.Facebook),
		Name:     name,
		Nickname: nickname,
	}
}

// Empty reports whether no key carries a value, in which case a lookup can be skipped
func (c Candidates) Empty() bool {
	return c.GitHub == nil && c.Twitter == nil && c.Facebook == nil && c.Name == nil && c.Nickname == nil
}

// NormalizeHandle lowercases a handle and trims surrounding whitespace
func NormalizeHandle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CompactName lowercases s and removes every whitespace character
func CompactName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func lowerOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	return nonEmpty(NormalizeHandle(*s))
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
