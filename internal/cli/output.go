package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pfrederiksen/connpass-attendees/internal/attendee"
	"github.com/pfrederiksen/connpass-attendees/internal/resolver"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --format flag value
func ParseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// ScrapeResult is the output of the scrape command
type ScrapeResult struct {
	Title    string             `json:"title"`
	Profiles []attendee.Profile `json:"profiles"`
}

// MatchResult is the output of the match command
type MatchResult struct {
	Profile attendee.Profile `json:"profile"`
	Matched bool             `json:"matched"`
	UserID  *int64           `json:"user_id"`
}

// WriteEnvelope writes a resolution envelope in the specified format
func WriteEnvelope(w io.Writer, envelope resolver.Envelope, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, envelope)
	}

	if envelope.Status.Kind != resolver.StatusSuccess {
		_, err := fmt.Fprintf(w, "Status: %s\n", envelope.Status)
		return err
	}

	ids := make([]string, 0, len(envelope.AttendeeUserIDs))
	for _, id := range envelope.AttendeeUserIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}

	fmt.Fprintf(w, "Event: %s\n", envelope.Name)
	fmt.Fprintf(w, "Status: %s\n", envelope.Status)
	if len(ids) == 0 {
		_, err := fmt.Fprintln(w, "No attendees matched local users.")
		return err
	}
	_, err := fmt.Fprintf(w, "Attendee user IDs (%d): %s\n", len(ids), strings.Join(ids, ", "))
	return err
}

// WriteScrape writes scraped profiles in the specified format
func WriteScrape(w io.Writer, result *ScrapeResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}

	fmt.Fprintf(w, "Event: %s\n", result.Title)
	if len(result.Profiles) == 0 {
		_, err := fmt.Fprintln(w, "No attendees found.")
		return err
	}
	for i, p := range result.Profiles {
		fmt.Fprintf(w, "%3d. %s%s\n", i+1, p.Name, formatHandles(p))
	}
	_, err := fmt.Fprintf(w, "\nTotal: %d attendees\n", len(result.Profiles))
	return err
}

// WriteMatch writes a single match outcome in the specified format
func WriteMatch(w io.Writer, result *MatchResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}

	if !result.Matched {
		_, err := fmt.Fprintf(w, "No unique user for %q%s\n", result.Profile.Name, formatHandles(result.Profile))
		return err
	}
	_, err := fmt.Fprintf(w, "%q%s -> user %d\n", result.Profile.Name, formatHandles(result.Profile), *result.UserID)
	return err
}

func formatHandles(p attendee.Profile) string {
	var parts []string
	for _, provider := range []attendee.Provider{attendee.Twitter, attendee.Facebook, attendee.GitHub} {
		if h, ok := p.Handle(provider); ok {
			parts = append(parts, fmt.Sprintf("%s=%s", provider, h))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, " ") + "]"
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
