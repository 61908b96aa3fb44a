// Package cli implements the command-line interface for connpass-attendees.
//
// The cli package provides the Cobra-based CLI with three commands: resolve (event URL
// to local user ids), scrape (event URL to attendee profiles) and match (one profile to
// a user id). It wires configuration, logging, the scraper, the user directory and the
// resolver together, and maps resolution outcomes to process exit codes.
package cli
