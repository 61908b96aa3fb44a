// Package attendee defines the profile scraped for one event participant and the
// normalized lookup keys derived from it.
//
// A Profile is stored exactly as scraped. Normalization (lowercasing, whitespace
// removal) happens only when building Candidates for a directory lookup, so the
// scraped values are never mutated.
package attendee
