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

// Audit operation labels.
const (
	auditOverturn = "overturn"
	auditRestore  = "restore"
	auditReReview = "rereview"
)

// GetRecord returns one review record.
func (s *ModerationService) GetRecord(ctx context.Context, id string) (*models.ReviewRecord, error) {
	var record *models.ReviewRecord
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		record, err = tx.GetRecord(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecords returns a page of review records, newest first, and the total
// number matching the filter.
func (s *ModerationService) ListRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.ReviewRecord, int, error) {
	var (
		records []*models.ReviewRecord
		total   int
	)
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if records, err = tx.ListRecords(ctx, filter); err != nil {
			return err
		}
		total, err = tx.CountRecords(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list records: %w", err)
	}
	return records, total, nil
}

// loadForAudit fetches a record with its content and checks that the record is
// the content's latest decision. Older verdicts were superseded by a re-review
// and can no longer drive the content's status.
func loadForAudit(ctx context.Context, tx repository.Tx, recordID string) (*models.ReviewRecord, *models.ContentItem, error) {
	record, err := tx.GetRecord(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	content, err := tx.GetContent(ctx, record.ContentID)
	if err != nil {
		return nil, nil, err
	}
	latest, err := tx.ListRecords(ctx, repository.RecordFilter{ContentID: content.ID, Limit: 1})
	if err != nil {
		return nil, nil, err
	}
	if len(latest) == 0 || latest[0].ID != record.ID {
		return nil, nil, preconditionf("record %s was superseded by a later decision", record.ID)
	}
	return record, content, nil
}

// Overturn flips a past verdict without a new review: the record is marked
// overturned and the content moves to the opposite decision.
func (s *ModerationService) Overturn(ctx context.Context, recordID, by, note string) (*models.ReviewRecord, *models.ContentItem, error) {
	if err := s.validator.ValidateNote(note); err != nil {
		return nil, nil, invalid(err)
	}

	var (
		record  *models.ReviewRecord
		content *models.ContentItem
	)
	now := s.timestamp()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if record, content, err = loadForAudit(ctx, tx, recordID); err != nil {
			return err
		}
		if record.IsOverturned {
			return preconditionf("record %s is already overturned", record.ID)
		}
		if content.Status != record.Action.Status() {
			return preconditionf("content %s is %s, expected %s", content.ID, content.Status, record.Action.Status())
		}

		overturnedBy := by
		overturnedAt := now
		record.IsOverturned = true
		record.OverturnedBy = &overturnedBy
		record.OverturnedAt = &overturnedAt
		if note != "" {
			overturnNote := note
			record.OverturnNote = &overturnNote
		}
		if err := tx.SaveRecord(ctx, record); err != nil {
			return err
		}

		content.Status = record.Action.Opposite().Status()
		content.UpdatedAt = now
		return tx.SaveContent(ctx, content)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to overturn record %s: %w", recordID, err)
	}

	metrics.AuditActionsTotal.WithLabelValues(auditOverturn).Inc()
	logger.Log.Info("Decision overturned",
		zap.String("recordId", recordID),
		zap.String("contentId", content.ID),
		zap.String("by", by),
		zap.String("status", string(content.Status)),
	)
	e := s.event(EventRecordOverturned, now)
	e.RecordID = recordID
	e.ContentID = content.ID
	e.ReviewerID = record.ReviewerID
	e.Attributes = map[string]string{"by": by, "status": string(content.Status)}
	s.bus.Publish(ctx, e)
	return record, content, nil
}

// Restore undoes an overturn: the overturn fields are cleared and the content
// returns to the record's original verdict.
func (s *ModerationService) Restore(ctx context.Context, recordID string) (*models.ReviewRecord, *models.ContentItem, error) {
	var (
		record  *models.ReviewRecord
		content *models.ContentItem
	)
	now := s.timestamp()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if record, content, err = loadForAudit(ctx, tx, recordID); err != nil {
			return err
		}
		if !record.IsOverturned {
			return preconditionf("record %s is not overturned", record.ID)
		}
		if want := record.Action.Opposite().Status(); content.Status != want {
			return preconditionf("content %s is %s, expected %s", content.ID, content.Status, want)
		}

		record.ClearOverturn()
		if err := tx.SaveRecord(ctx, record); err != nil {
			return err
		}
		content.Status = record.Action.Status()
		content.UpdatedAt = now
		return tx.SaveContent(ctx, content)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to restore record %s: %w", recordID, err)
	}

	metrics.AuditActionsTotal.WithLabelValues(auditRestore).Inc()
	logger.Log.Info("Decision restored",
		zap.String("recordId", recordID),
		zap.String("contentId", content.ID),
		zap.String("status", string(content.Status)),
	)
	e := s.event(EventRecordRestored, now)
	e.RecordID = recordID
	e.ContentID = content.ID
	e.ReviewerID = record.ReviewerID
	e.Attributes = map[string]string{"status": string(content.Status)}
	s.bus.Publish(ctx, e)
	return record, content, nil
}

// RequestReReview sends a decided item back to the pending pool for a fresh,
// independent decision. The record itself is left untouched; the next
// decision appends a new one.
func (s *ModerationService) RequestReReview(ctx context.Context, recordID string) (*models.ContentItem, error) {
	var content *models.ContentItem
	now := s.timestamp()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if _, content, err = loadForAudit(ctx, tx, recordID); err != nil {
			return err
		}
		if !content.Status.Decided() {
			return preconditionf("content %s is %s, not decided", content.ID, content.Status)
		}
		content.Release(models.ContentStatusPending, now)
		return tx.SaveContent(ctx, content)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request re-review for record %s: %w", recordID, err)
	}

	metrics.AuditActionsTotal.WithLabelValues(auditReReview).Inc()
	logger.Log.Info("Re-review requested",
		zap.String("recordId", recordID),
		zap.String("contentId", content.ID),
	)
	e := s.event(EventContentReReview, now)
	e.RecordID = recordID
	e.ContentID = content.ID
	s.bus.Publish(ctx, e)
	return content, nil
}
