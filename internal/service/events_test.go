package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyosocan/demo-C-platform/internal/models"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) handle(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func TestEventBus_Publish(t *testing.T) {
	bus := NewEventBus()
	var calls []string
	bus.Subscribe(func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+string(e.Type))
		return errors.New("broker down")
	})
	bus.Subscribe(func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+string(e.Type))
		return nil
	})
	assert.Equal(t, 2, bus.SubscriberCount())

	bus.Publish(context.Background(), Event{Type: EventContentIngested}, Event{Type: EventContentAssigned})
	assert.Equal(t, []string{
		"first:content.ingested",
		"second:content.ingested",
		"first:content.assigned",
		"second:content.assigned",
	}, calls, "a failing handler does not stop the others")
}

func TestEventBus_NilAndEmpty(t *testing.T) {
	var bus *EventBus
	assert.NotPanics(t, func() { bus.Publish(context.Background(), Event{Type: EventContentIngested}) })

	b := NewEventBus()
	assert.NotPanics(t, func() { b.Publish(context.Background()) })
}

func TestService_PublishesAfterCommit(t *testing.T) {
	rec := &eventRecorder{}
	bus := NewEventBus()
	bus.Subscribe(rec.handle)
	s, _ := newTestService(t, WithEventBus(bus))
	ctx := context.Background()

	r, err := s.CreateReviewer(ctx, NewReviewer{Username: "wes", Name: "Wes", QueueCapacity: 1})
	require.NoError(t, err)
	ingest(t, s, "A")
	ingest(t, s, "B")
	assert.Equal(t, []EventType{EventReviewerCreated, EventContentIngested, EventContentIngested}, rec.types())

	rec.reset()
	_, err = s.SetReviewerStatus(ctx, r.ID, models.ReviewerStatusOnline)
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventReviewerStatus, EventContentAssigned}, rec.types())

	rec.reset()
	record, err := s.Decide(ctx, Decision{ContentID: "A", ReviewerID: r.ID, Action: models.ReviewActionRejected, RejectReason: models.RejectReasonViolent})
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventContentDecided, EventContentAssigned}, rec.types())
	rec.mu.Lock()
	decidedEvent := rec.events[0]
	rec.mu.Unlock()
	assert.Equal(t, record.ID, decidedEvent.RecordID)
	assert.Equal(t, "violent", decidedEvent.Attributes["reject_reason"])

	rec.reset()
	_, err = s.Decide(ctx, Decision{ContentID: "A", ReviewerID: r.ID, Action: models.ReviewActionApproved})
	require.Error(t, err)
	assert.Empty(t, rec.types(), "failed operations publish nothing")

	_, err = s.SetReviewerStatus(ctx, r.ID, models.ReviewerStatusOffline)
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventContentReleased, EventReviewerStatus}, rec.types())
}
