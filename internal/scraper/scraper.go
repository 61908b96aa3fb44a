package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/connpass-attendees/internal/attendee"
	"github.com/pfrederiksen/connpass-attendees/internal/logger"
)

const (
	DefaultBaseURL = "https://connpass.com"
	UserAgent      = "connpass-attendees/1.0 (github.com/pfrederiksen/connpass-attendees)"
	Timeout        = 30 * time.Second
)

var eventIDPattern = regexp.MustCompile(`event/(\d+)`)

// FetchResult is the outcome of Scraper.Fetch: exactly one of Success, NotFound or Failure.
type FetchResult interface {
	fetchResult()
}

// Success carries the event title and one profile per attendee, in document order
type Success struct {
	Title    string
	Profiles []attendee.Profile
}

// NotFound means the participants page does not exist
type NotFound struct {
	URL string
}

// Failure carries the reason a fetch could not produce a profile list
type Failure struct {
	Err error
}

// Message returns the error text reported to callers
func (f Failure) Message() string {
	if f.Err == nil {
		return "unknown error"
	}
	return f.Err.Error()
}

func (Success) fetchResult()  {}
func (NotFound) fetchResult() {}
func (Failure) fetchResult()  {}

// Scraper handles fetching and parsing connpass participant pages
type Scraper struct {
	client    *http.Client
	baseURL   string
	userAgent string
	log       *logger.Logger
}

// Option configures a Scraper
type Option func(*Scraper)

// WithBaseURL overrides the site root used to build participants page URLs
func WithBaseURL(baseURL string) Option {
	return func(s *Scraper) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		s.client = client
	}
}

// WithUserAgent overrides the User-Agent header sent with every request
func WithUserAgent(userAgent string) Option {
	return func(s *Scraper) {
		s.userAgent = userAgent
	}
}

// New creates a new Scraper instance
func New(log *logger.Logger, opts ...Option) *Scraper {
	if log == nil {
		log = logger.Discard()
	}
	s := &Scraper{
		client: &http.Client{
			Timeout: Timeout,
		},
		baseURL:   DefaultBaseURL,
		userAgent: UserAgent,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EventID extracts the numeric event id that follows "event/" in an event URL
func EventID(eventURL string) (string, error) {
	m := eventIDPattern.FindStringSubmatch(eventURL)
	if m == nil {
		return "", fmt.Errorf("%w: no event id in %q", ErrMalformedURL, eventURL)
	}
	return m[1], nil
}

// ParticipantsURL returns the page listing the attendees of the event. Event URLs that
// already point at the newer "participants" page keep that page; all others use the
// legacy "participation" page.
func (s *Scraper) ParticipantsURL(eventURL string) (string, error) {
	id, err := EventID(eventURL)
	if err != nil {
		return "", err
	}
	page := "participation"
	if strings.Contains(eventURL, "/participants") {
		page = "participants"
	}
	return fmt.Sprintf("%s/event/%s/%s/", s.baseURL, id, page), nil
}

// Fetch downloads and parses the participants page for eventURL.
// A URL without an event id fails before any request is made. A logger carried by
// ctx takes precedence over the one the Scraper was built with.
func (s *Scraper) Fetch(ctx context.Context, eventURL string) FetchResult {
	pageURL, err := s.ParticipantsURL(eventURL)
	if err != nil {
		return Failure{Err: err}
	}

	logger.FromContext(ctx, s.log).Info("Fetching participants page", logger.Fields{
		"url":       pageURL,
		"event_url": eventURL,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Failure{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return Failure{Err: &TransportError{URL: pageURL, Err: err}}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return NotFound{URL: pageURL}
	default:
		return Failure{Err: &TransportError{URL: pageURL, StatusCode: resp.StatusCode}}
	}

	title, profiles, err := ParsePage(resp.Body)
	if err != nil {
		return Failure{Err: err}
	}

	return Success{Title: title, Profiles: profiles}
}

// ParsePage extracts the event title and attendee profiles from a participants page
func ParsePage(r io.Reader) (string, []attendee.Profile, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", nil, fmt.Errorf("parsing HTML: %w", err)
	}

	profiles, err := extractProfiles(doc)
	if err != nil {
		return "", nil, err
	}

	return extractTitle(doc), profiles, nil
}
