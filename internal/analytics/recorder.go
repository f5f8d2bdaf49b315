package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"stopdesk/internal/domain"
	"stopdesk/internal/hub"
)

// Recorder receives a visit each time a found pickup page is shown.
type Recorder interface {
	RecordVisit(ctx context.Context, ev domain.VisitEvent) error
}

// NewVisit stamps a visit event with an id and the current time.
func NewVisit(company, urlCode, lang string) domain.VisitEvent {
	return domain.VisitEvent{
		ID:         uuid.New().String(),
		Company:    company,
		URLCode:    urlCode,
		Lang:       lang,
		OccurredAt: time.Now().UTC(),
	}
}

type Nop struct{}

func (Nop) RecordVisit(context.Context, domain.VisitEvent) error { return nil }

// Counter is the subset of the redis cache used for visit counting.
type Counter interface {
	IncrVisit(ctx context.Context, company, urlCode string) error
}

type RedisCounter struct {
	counter Counter
}

func NewRedisCounter(c Counter) *RedisCounter {
	return &RedisCounter{counter: c}
}

func (r *RedisCounter) RecordVisit(ctx context.Context, ev domain.VisitEvent) error {
	return r.counter.IncrVisit(ctx, hub.CompanyKey(ev.Company), ev.URLCode)
}

// Broadcaster is satisfied by the websocket hub.
type Broadcaster interface {
	Broadcast(ev domain.VisitEvent)
}

type LiveFeed struct {
	b Broadcaster
}

func NewLiveFeed(b Broadcaster) *LiveFeed {
	return &LiveFeed{b: b}
}

func (l *LiveFeed) RecordVisit(_ context.Context, ev domain.VisitEvent) error {
	l.b.Broadcast(ev)
	return nil
}

// Multi fans a visit out to every recorder. Failures are logged and joined;
// one failing sink does not stop the others.
type Multi struct {
	recorders []Recorder
	recorded  atomic.Int64
	failed    atomic.Int64
	logger    *slog.Logger
}

func NewMulti(logger *slog.Logger, recorders ...Recorder) *Multi {
	return &Multi{
		recorders: recorders,
		logger:    logger.With("component", "analytics"),
	}
}

func (m *Multi) RecordVisit(ctx context.Context, ev domain.VisitEvent) error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.RecordVisit(ctx, ev); err != nil {
			m.logger.Warn("visit recording failed", "company", ev.Company, "url_code", ev.URLCode, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		m.failed.Add(1)
		return errors.Join(errs...)
	}
	m.recorded.Add(1)
	return nil
}

type Stats struct {
	Recorded int64 `json:"recorded"`
	Failed   int64 `json:"failed"`
}

func (m *Multi) Stats() Stats {
	return Stats{Recorded: m.recorded.Load(), Failed: m.failed.Load()}
}
