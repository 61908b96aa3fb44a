package resolver

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusKind distinguishes the three terminal outcomes of a resolution
type StatusKind int

const (
	StatusSuccess StatusKind = iota
	StatusNotFound
	StatusError
)

const errorPrefix = "ERROR: "

// Status is the outcome of a resolution. Message is set only for StatusError.
type Status struct {
	Kind    StatusKind
	Message string
}

// String renders the status in its wire form: "success", "not_found" or "ERROR: <message>"
func (s Status) String() string {
	switch s.Kind {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	default:
		return errorPrefix + s.Message
	}
}

// ParseStatus converts a wire status string back into a Status.
// Anything other than "success" and "not_found" is an error status.
func ParseStatus(s string) Status {
	switch s {
	case "success":
		return Status{Kind: StatusSuccess}
	case "not_found":
		return Status{Kind: StatusNotFound}
	default:
		return Status{Kind: StatusError, Message: strings.TrimPrefix(s, errorPrefix)}
	}
}

// Envelope is the result of resolving one event. Name and AttendeeUserIDs are only
// meaningful when Status.Kind is StatusSuccess.
type Envelope struct {
	Status          Status
	Name            string
	AttendeeUserIDs []int64
}

func successEnvelope(name string, ids []int64) Envelope {
	if ids == nil {
		ids = []int64{}
	}
	return Envelope{Status: Status{Kind: StatusSuccess}, Name: name, AttendeeUserIDs: ids}
}

func notFoundEnvelope() Envelope {
	return Envelope{Status: Status{Kind: StatusNotFound}}
}

func errorEnvelope(message string) Envelope {
	return Envelope{Status: Status{Kind: StatusError, Message: message}}
}

// wireEnvelope is the JSON shape; name and attendee_user_ids appear only on success
type wireEnvelope struct {
	Status          string   `json:"status"`
	Name            *string  `json:"name,omitempty"`
	AttendeeUserIDs *[]int64 `json:"attendee_user_ids,omitempty"`
}

// MarshalJSON encodes the envelope as {"status": ..., "name"?: ..., "attendee_user_ids"?: [...]}
func (e Envelope) MarshalJSON() ([]byte, error) {
	w := wireEnvelope{Status: e.Status.String()}
	if e.Status.Kind == StatusSuccess {
		name := e.Name
		ids := e.AttendeeUserIDs
		if ids == nil {
			ids = []int64{}
		}
		w.Name = &name
		w.AttendeeUserIDs = &ids
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding envelope: %w", err)
	}
	*e = Envelope{Status: ParseStatus(w.Status)}
	if w.Name != nil {
		e.Name = *w.Name
	}
	if w.AttendeeUserIDs != nil {
		e.AttendeeUserIDs = *w.AttendeeUserIDs
	}
	return nil
}
