// Package resolver turns an event URL into the ids of local users attending it.
//
// ResolveEvent fetches the participants page, resolves every attendee profile in page
// order, and drops attendees that did not resolve to exactly one user. Duplicates are
// kept. Every terminal outcome is logged once with the event URL and a per-resolution
// correlation id.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pfrederiksen/connpass-attendees/internal/attendee"
	"github.com/pfrederiksen/connpass-attendees/internal/logger"
	"github.com/pfrederiksen/connpass-attendees/internal/scraper"
)

// Fetcher fetches the attendee profiles of an event
type Fetcher interface {
	Fetch(ctx context.Context, eventURL string) scraper.FetchResult
}

// ProfileResolver maps one attendee profile to at most one user id
type ProfileResolver interface {
	Resolve(ctx context.Context, profile attendee.Profile) (int64, bool, error)
}

// Resolver orchestrates fetching and matching for one event at a time. It holds no
// per-request state, so one Resolver may serve concurrent resolutions.
type Resolver struct {
	fetcher Fetcher
	matcher ProfileResolver
	log     *logger.Logger
	metrics *logger.Metrics
}

// New creates a Resolver. A nil metrics tracker gets a private one.
func New(fetcher Fetcher, matcher ProfileResolver, log *logger.Logger, metrics *logger.Metrics) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	if metrics == nil {
		metrics = logger.NewMetrics()
	}
	return &Resolver{
		fetcher: fetcher,
		matcher: matcher,
		log:     log,
		metrics: metrics,
	}
}

// ResolveEvent fetches eventURL's attendees and returns the matched user ids
func (r *Resolver) ResolveEvent(ctx context.Context, eventURL string) Envelope {
	log := r.log.With(logger.Fields{
		"resolution_id": uuid.NewString(),
		"event_url":     eventURL,
	})
	ctx = logger.NewContext(ctx, log)

	start := time.Now()
	result := r.fetcher.Fetch(ctx, eventURL)
	r.metrics.RecordTiming("scraper.fetch", time.Since(start))

	switch res := result.(type) {
	case scraper.Success:
		ids, err := r.attendeeUserIDs(ctx, res.Profiles)
		if err != nil {
			return r.fail(log, "match", err)
		}
		envelope := successEnvelope(res.Title, ids)
		r.metrics.IncrCounter("resolver.success")
		log.Info("Fetched event successfully", logger.Fields{
			"envelope":  envelope,
			"attendees": len(res.Profiles),
		})
		return envelope

	case scraper.NotFound:
		envelope := notFoundEnvelope()
		r.metrics.IncrCounter("resolver.not_found")
		log.Info("Fetched event unsuccessfully", logger.Fields{
			"status": envelope.Status.String(),
			"url":    res.URL,
		})
		return envelope

	case scraper.Failure:
		return r.fail(log, "fetch", res.Err)

	default:
		return r.fail(log, "fetch", fmt.Errorf("unexpected fetch result %T", result))
	}
}

func (r *Resolver) fail(log *logger.Logger, stage string, err error) Envelope {
	envelope := errorEnvelope(err.Error())
	r.metrics.IncrCounter("resolver.error")
	log.Error("Fetched event unsuccessfully", logger.Fields{
		"status": envelope.Status.String(),
		"stage":  stage,
		"chain":  errorChain(err),
	}, err)
	return envelope
}

// errorChain lists the concrete type of every wrapped error, outermost first
func errorChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, fmt.Sprintf("%T", err))
		err = errors.Unwrap(err)
	}
	return chain
}

// attendeeUserIDs resolves profiles in order and keeps only the resolved ids.
// The first lookup failure aborts the whole list.
func (r *Resolver) attendeeUserIDs(ctx context.Context, profiles []attendee.Profile) ([]int64, error) {
	ids := make([]int64, 0, len(profiles))
	for i, profile := range profiles {
		id, ok, err := r.matcher.Resolve(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("matching attendee %d: %w", i+1, err)
		}
		if ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
