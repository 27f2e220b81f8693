package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// EventType names a committed state change.
type EventType string

// EventType constants.
const (
	EventContentIngested  EventType = "content.ingested"
	EventContentUpdated   EventType = "content.updated"
	EventContentAssigned  EventType = "content.assigned"
	EventContentReleased  EventType = "content.released"
	EventContentDecided   EventType = "content.decided"
	EventContentReReview  EventType = "content.rereview"
	EventRecordOverturned EventType = "record.overturned"
	EventRecordRestored   EventType = "record.restored"
	EventReviewerCreated  EventType = "reviewer.created"
	EventReviewerStatus   EventType = "reviewer.status_changed"
	EventReviewerCapacity EventType = "reviewer.capacity_changed"
	EventReviewerDeleted  EventType = "reviewer.deleted"
	EventListUpdated      EventType = "list.updated"
	EventListRemoved      EventType = "list.removed"
)

// Event describes one committed change. Only the ids relevant to the type are set.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Event struct {
	Type        EventType         `json:"type"`
	OccurredAt  time.Time         `json:"occurred_at"`
	ContentID   string            `json:"content_id,omitempty"`
	ReviewerID  string            `json:"reviewer_id,omitempty"`
	RecordID    string            `json:"record_id,omitempty"`
	PublisherID string            `json:"publisher_id,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// EventHandler is a function that gets called after a change commits.
type EventHandler func(ctx context.Context, event Event) error

// EventBus fans committed changes out to subscribers.
type EventBus struct {
	handlers []EventHandler
	mu       sync.RWMutex
}

// NewEventBus creates an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make([]EventHandler, 0),
	}
}

// Subscribe registers a handler for every future event.
func (b *EventBus) Subscribe(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers events to every handler in order. Handlers run
// sequentially; a failing handler is logged and does not stop the others.
func (b *EventBus) Publish(ctx context.Context, events ...Event) {
	if b == nil || len(events) == 0 {
		return
	}
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, e := range events {
		for i, h := range handlers {
			if err := h(ctx, e); err != nil {
				logger.Log.Warn("Event handler failed",
					zap.Error(err),
					zap.Int("handler", i),
					zap.String("type", string(e.Type)),
				)
			}
		}
	}
}

// SubscriberCount returns the number of registered handlers.
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
