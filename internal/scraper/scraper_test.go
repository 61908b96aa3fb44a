package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pfrederiksen/connpass-attendees/internal/logger"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return string(data)
}

func TestFetch(t *testing.T) {
	legacy := loadFixture(t, "legacy_participation.html")

	tests := []struct {
		name         string
		htmlContent  string
		statusCode   int
		wantResult   string // "success", "not_found" or "failure"
		wantProfiles int
		wantTitle    string
	}{
		{
			name:         "successful fetch with attendees",
			htmlContent:  legacy,
			statusCode:   http.StatusOK,
			wantResult:   "success",
			wantProfiles: 3,
			wantTitle:    "Go勉強会 #42",
		},
		{
			name:       "page not found",
			statusCode: http.StatusNotFound,
			wantResult: "not_found",
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			wantResult: "failure",
		},
		{
			name:       "forbidden is not treated as not found",
			statusCode: http.StatusForbidden,
			wantResult: "failure",
		},
		{
			name:         "empty page",
			htmlContent:  `<html><body><p>No participants</p></body></html>`,
			statusCode:   http.StatusOK,
			wantResult:   "success",
			wantProfiles: 0,
			wantTitle:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if userAgent := r.Header.Get("User-Agent"); !strings.Contains(userAgent, "connpass-attendees") {
					t.Errorf("User-Agent = %q, should contain 'connpass-attendees'", userAgent)
				}
				if r.URL.Path != "/event/12345/participation/" {
					t.Errorf("request path = %q, want /event/12345/participation/", r.URL.Path)
				}

				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.htmlContent))
			}))
			defer server.Close()

			s := New(logger.Discard(), WithBaseURL(server.URL))
			result := s.Fetch(context.Background(), "https://connpass.com/event/12345/")

			switch r := result.(type) {
			case Success:
				if tt.wantResult != "success" {
					t.Fatalf("Fetch() = Success, want %s", tt.wantResult)
				}
				if len(r.Profiles) != tt.wantProfiles {
					t.Errorf("Fetch() returned %d profiles, want %d", len(r.Profiles), tt.wantProfiles)
				}
				if r.Title != tt.wantTitle {
					t.Errorf("Fetch() title = %q, want %q", r.Title, tt.wantTitle)
				}
				if r.Profiles == nil {
					t.Error("Fetch() profiles should be an empty slice, not nil")
				}
			case NotFound:
				if tt.wantResult != "not_found" {
					t.Fatalf("Fetch() = NotFound, want %s", tt.wantResult)
				}
				if !strings.HasSuffix(r.URL, "/event/12345/participation/") {
					t.Errorf("NotFound.URL = %q", r.URL)
				}
			case Failure:
				if tt.wantResult != "failure" {
					t.Fatalf("Fetch() = Failure(%v), want %s", r.Err, tt.wantResult)
				}
				var te *TransportError
				if !errors.As(r.Err, &te) {
					t.Fatalf("Failure.Err = %T, want *TransportError", r.Err)
				}
				if te.StatusCode != tt.statusCode {
					t.Errorf("TransportError.StatusCode = %d, want %d", te.StatusCode, tt.statusCode)
				}
			default:
				t.Fatalf("unexpected result type %T", result)
			}
		})
	}
}

func TestFetch_MalformedURLMakesNoRequest(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	s := New(logger.Discard(), WithBaseURL(server.URL))

	urls := []string{
		"https://connpass.com/",
		"https://connpass.com/event/",
		"https://connpass.com/event/abc/",
		"https://connpass.com/events/12345",
		"",
	}
	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			result := s.Fetch(context.Background(), u)
			f, ok := result.(Failure)
			if !ok {
				t.Fatalf("Fetch(%q) = %T, want Failure", u, result)
			}
			if !errors.Is(f.Err, ErrMalformedURL) {
				t.Errorf("Fetch(%q) error = %v, want ErrMalformedURL", u, f.Err)
			}
		})
	}

	if got := atomic.LoadInt32(&hits); got != 0 {
		t.Errorf("server received %d requests, want 0", got)
	}
}

func TestFetch_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close() // nothing listens on baseURL anymore

	s := New(logger.Discard(), WithBaseURL(baseURL))
	result := s.Fetch(context.Background(), "https://connpass.com/event/1/")

	f, ok := result.(Failure)
	if !ok {
		t.Fatalf("Fetch() = %T, want Failure", result)
	}
	var te *TransportError
	if !errors.As(f.Err, &te) {
		t.Fatalf("Failure.Err = %T, want *TransportError", f.Err)
	}
	if te.Err == nil {
		t.Error("TransportError.Err should carry the connection error")
	}
	if f.Message() == "" {
		t.Error("Failure.Message() is empty")
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(logger.Discard(), WithBaseURL(server.URL))
	result := s.Fetch(ctx, "https://connpass.com/event/1/")

	f, ok := result.(Failure)
	if !ok {
		t.Fatalf("Fetch() = %T, want Failure", result)
	}
	if !errors.Is(f.Err, context.Canceled) {
		t.Errorf("Failure.Err = %v, want context.Canceled", f.Err)
	}
}

func TestFetch_StructuralErrorAbortsWholeFetch(t *testing.T) {
	html := `
		<div class="applicant_area"><div class="participation_table_area"><table class="participants_table"><tbody>
			<tr><td class="user"><p class="display_name"><a>First</a></p></td></tr>
			<tr><td class="user"><p>no display name here</p></td></tr>
		</tbody></table></div></div>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer server.Close()

	s := New(logger.Discard(), WithBaseURL(server.URL))
	result := s.Fetch(context.Background(), "https://connpass.com/event/7/")

	f, ok := result.(Failure)
	if !ok {
		t.Fatalf("Fetch() = %T, want Failure", result)
	}
	var se *StructuralError
	if !errors.As(f.Err, &se) {
		t.Fatalf("Failure.Err = %T, want *StructuralError", f.Err)
	}
	if se.Index != 1 {
		t.Errorf("StructuralError.Index = %d, want 1", se.Index)
	}
	if se.Layout != "legacy" {
		t.Errorf("StructuralError.Layout = %q, want legacy", se.Layout)
	}
}

func TestParticipantsURL(t *testing.T) {
	s := New(nil, WithBaseURL("https://connpass.example/"))

	tests := []struct {
		eventURL string
		want     string
		wantErr  bool
	}{
		{"https://connpass.com/event/12345/", "https://connpass.example/event/12345/participation/", false},
		{"http://gocon.connpass.com/event/999", "https://connpass.example/event/999/participation/", false},
		{"https://connpass.com/event/12345/participants/", "https://connpass.example/event/12345/participants/", false},
		{"https://connpass.com/event/12345/participation/", "https://connpass.example/event/12345/participation/", false},
		{"https://connpass.com/user/janed/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.eventURL, func(t *testing.T) {
			got, err := s.ParticipantsURL(tt.eventURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParticipantsURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParticipantsURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetch_ParticipantsVariantUsesCardLayout(t *testing.T) {
	cards := loadFixture(t, "card_participants.html")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/event/555/participants/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(cards))
	}))
	defer server.Close()

	s := New(logger.Discard(), WithBaseURL(server.URL))
	result := s.Fetch(context.Background(), "https://k8s.connpass.com/event/555/participants/")

	success, ok := result.(Success)
	if !ok {
		t.Fatalf("Fetch() = %#v, want Success", result)
	}
	if success.Title != "Kubernetes Meetup Tokyo" {
		t.Errorf("title = %q", success.Title)
	}
	if len(success.Profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(success.Profiles))
	}
	if success.Profiles[0].Name != "Alice Smith" || success.Profiles[1].Name != "Carol" {
		t.Errorf("names = %q, %q", success.Profiles[0].Name, success.Profiles[1].Name)
	}
}

func TestNew(t *testing.T) {
	s := New(nil)

	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.client == nil {
		t.Error("scraper client is nil")
	}
	if s.baseURL != DefaultBaseURL {
		t.Errorf("scraper baseURL = %q, want %q", s.baseURL, DefaultBaseURL)
	}
	if s.log == nil {
		t.Error("scraper logger is nil")
	}
}

func TestParsePage_Deterministic(t *testing.T) {
	legacy := loadFixture(t, "legacy_participation.html")

	title1, first, err := ParsePage(strings.NewReader(legacy))
	if err != nil {
		t.Fatalf("ParsePage() error: %v", err)
	}
	title2, second, err := ParsePage(strings.NewReader(legacy))
	if err != nil {
		t.Fatalf("ParsePage() error: %v", err)
	}

	if title1 != title2 || len(first) != len(second) {
		t.Fatal("ParsePage() is not deterministic")
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Errorf("profile %d name %q != %q", i, first[i].Name, second[i].Name)
		}
	}
}
