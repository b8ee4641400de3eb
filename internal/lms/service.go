package lms

import (
	"context"
	"time"
)

// EventSink records operational events (attempt submissions, invariant
// violations) for operator attention. The audit package provides the SQL
// implementation.
type EventSink interface {
	Record(ctx context.Context, typ, key string, data any)
}

type noopSink struct{}

func (noopSink) Record(context.Context, string, string, any) {}

// Service enforces the business rules on top of a Store: view prerequisites,
// single-attempt scoring and the assignment deadline workflow.
type Service struct {
	store  Store
	events EventSink

	// Now is swappable for deadline tests.
	Now func() time.Time
}

func NewService(store Store, events EventSink) *Service {
	if events == nil {
		events = noopSink{}
	}
	return &Service{store: store, events: events, Now: time.Now}
}

func (s *Service) Store() Store { return s.store }
