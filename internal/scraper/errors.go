package scraper

import (
	"errors"
	"fmt"
)

// ErrMalformedURL is returned when no event id can be found in an event URL
var ErrMalformedURL = errors.New("malformed event URL")

// TransportError reports a failed HTTP exchange: either the request itself failed
// (Err is set) or the server answered with an unexpected status code.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("could not get event details from %s: unexpected status code %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StructuralError reports that a fetched page no longer has the markup the
// extractor expects, usually because the site layout changed.
type StructuralError struct {
	Layout   string // "legacy" or "card"
	Index    int    // zero-based attendee node index
	Selector string // selector that matched nothing
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("page format changed: %s attendee %d has no element matching %q", e.Layout, e.Index, e.Selector)
}
