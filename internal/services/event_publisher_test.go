package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/platform/jobs"
)

type stubEventSink struct {
	events []jobs.ProductEvent
	err    error
}

func (s *stubEventSink) PublishProductEvent(_ context.Context, event jobs.ProductEvent) (string, error) {
	s.events = append(s.events, event)
	if s.err != nil {
		return "", s.err
	}
	return "msg-1", nil
}

func TestPublishProductCreated(t *testing.T) {
	sink := &stubEventSink{}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	publisher, err := NewProductEventPublisher(ProductEventPublisherDeps{
		Sink:  sink,
		Clock: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewProductEventPublisher: %v", err)
	}

	parentID := int64(3)
	publisher.PublishProductCreated(context.Background(), domain.Product{
		ID:       42,
		ParentID: &parentID,
		StatusID: domain.ProductStatusActive,
		TypeID:   domain.ProductTypeVariant,
	}, 7)

	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want 1", len(sink.events))
	}
	event := sink.events[0]
	if event.Event != jobs.EventProductCreated {
		t.Fatalf("event = %q", event.Event)
	}
	if event.ProductID != 42 || event.ActorID != 7 {
		t.Fatalf("event = %+v", event)
	}
	if event.ParentID == nil || *event.ParentID != 3 {
		t.Fatalf("parent = %v, want 3", event.ParentID)
	}
	if !event.OccurredAt.Equal(now) {
		t.Fatalf("occurred at = %v, want %v", event.OccurredAt, now)
	}
}

func TestPublishSwallowsSinkErrors(t *testing.T) {
	sink := &stubEventSink{err: errors.New("topic gone")}
	publisher, err := NewProductEventPublisher(ProductEventPublisherDeps{Sink: sink})
	if err != nil {
		t.Fatalf("NewProductEventPublisher: %v", err)
	}

	// Must not panic or surface the failure.
	publisher.PublishProductDeleted(context.Background(), 42, 7)
	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want the attempted publish", len(sink.events))
	}
}
