package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task types
const (
	TypeFillReviewer = "moderation:fill_reviewer"
	TypeFillAll      = "moderation:fill_all"
)

// QueueFill is the asynq queue fill tasks run on.
const QueueFill = "fill"

// FillReviewerPayload is the payload for a single reviewer refill.
type FillReviewerPayload struct {
	ReviewerID  string    `json:"reviewer_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewFillReviewerTask creates a new reviewer refill payload
func NewFillReviewerTask(reviewerID string, requestedAt time.Time) (*FillReviewerPayload, error) {
	if reviewerID == "" {
		return nil, fmt.Errorf("reviewer ID is required")
	}

	return &FillReviewerPayload{
		ReviewerID:  reviewerID,
		RequestedAt: requestedAt,
	}, nil
}

// Marshal serializes the payload to JSON
func (p *FillReviewerPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalFillReviewerPayload deserializes JSON to payload
func UnmarshalFillReviewerPayload(data []byte) (*FillReviewerPayload, error) {
	var payload FillReviewerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.ReviewerID == "" {
		return nil, fmt.Errorf("payload is missing reviewer ID")
	}
	return &payload, nil
}

// fillTaskID dedupes refills: while one is queued for a reviewer, another
// request for the same reviewer is absorbed by it.
func fillTaskID(reviewerID string) string {
	return "fill:" + reviewerID
}
