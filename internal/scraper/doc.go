// Package scraper provides HTTP fetching and HTML parsing for connpass participant pages.
//
// The scraper package derives the participants page from an event URL, fetches it, and
// extracts the event title plus one attendee profile per participant, in document order.
// Two page layouts are understood: the legacy participants table and the newer profile
// cards. The layout is chosen by probing the document, legacy first.
//
// Fetch never returns a partial attendee list. A missing name element in any row aborts
// the whole fetch with a StructuralError.
package scraper
