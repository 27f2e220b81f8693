package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/metrics"
	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// Decision is a reviewer's verdict on one item.
type Decision struct {
	ContentID    string              `json:"-"`
	ReviewerID   string              `json:"-"`
	Action       models.ReviewAction `json:"action" binding:"required"`
	RejectReason models.RejectReason `json:"reject_reason,omitempty"`
	Note         string              `json:"note,omitempty"`
}

// Decide records a verdict on an item the reviewer holds. The item leaves the
// queue, a review record with a snapshot of the item is appended and the
// reviewer's slot is freed. A rejection without a reason is filed as "other";
// reason and note are dropped for approvals.
func (s *ModerationService) Decide(ctx context.Context, d Decision) (*models.ReviewRecord, error) {
	if err := s.validator.ValidateDecision(d.Action, d.RejectReason, d.Note); err != nil {
		return nil, invalid(err)
	}
	if d.Action == models.ReviewActionApproved {
		d.RejectReason = ""
		d.Note = ""
	} else if d.RejectReason == "" {
		d.RejectReason = models.RejectReasonOther
	}

	var record *models.ReviewRecord
	now := s.timestamp()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		content, err := tx.GetContent(ctx, d.ContentID)
		if err != nil {
			return err
		}
		if !content.AssignedTo(d.ReviewerID) {
			holder := "nobody"
			if content.AssignedReviewerID != nil {
				holder = *content.AssignedReviewerID
			}
			return preconditionf("content %s is %s and held by %s, not reviewer %s",
				content.ID, content.Status, holder, d.ReviewerID)
		}
		reviewer, err := tx.GetReviewer(ctx, d.ReviewerID)
		if err != nil {
			return err
		}

		content.Release(d.Action.Status(), now)
		if err := tx.SaveContent(ctx, content); err != nil {
			return err
		}

		record = &models.ReviewRecord{
			ID:           s.newID(),
			ContentID:    content.ID,
			Content:      *content.Clone(),
			ReviewerID:   reviewer.ID,
			ReviewerName: reviewer.Name,
			Action:       d.Action,
			RejectReason: d.RejectReason,
			RejectNote:   d.Note,
			ReviewedAt:   now,
		}
		if err := tx.CreateRecord(ctx, record); err != nil {
			return err
		}

		reviewer.ReleaseSlots(1)
		reviewer.UpdatedAt = now
		return tx.SaveReviewer(ctx, reviewer)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record decision on content %s: %w", d.ContentID, err)
	}

	metrics.DecisionsTotal.WithLabelValues(string(d.Action)).Inc()
	logger.Log.Info("Decision recorded",
		zap.String("contentId", d.ContentID),
		zap.String("reviewerId", d.ReviewerID),
		zap.String("action", string(d.Action)),
		zap.String("recordId", record.ID),
	)
	e := s.event(EventContentDecided, now)
	e.ContentID = d.ContentID
	e.ReviewerID = d.ReviewerID
	e.RecordID = record.ID
	e.Attributes = map[string]string{"action": string(d.Action)}
	if d.RejectReason != "" {
		e.Attributes["reject_reason"] = string(d.RejectReason)
	}
	s.bus.Publish(ctx, e)

	s.refill(ctx, d.ReviewerID)
	return record, nil
}
