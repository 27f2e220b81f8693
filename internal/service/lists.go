package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// UpsertListEntry flags a publisher. An existing entry is replaced, so a
// publisher is never on both lists.
func (s *ModerationService) UpsertListEntry(ctx context.Context, publisherID string, kind models.ListKind, addedBy string, note *string) (*models.ListEntry, error) {
	if err := s.validator.ValidateID("publisher", publisherID); err != nil {
		return nil, invalid(err)
	}
	if !kind.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid list kind: %q", kind)}
	}
	if note != nil {
		if err := s.validator.ValidateNote(*note); err != nil {
			return nil, invalid(err)
		}
	}

	now := s.timestamp()
	entry := &models.ListEntry{
		PublisherID: publisherID,
		Kind:        kind,
		AddedAt:     now,
		AddedBy:     addedBy,
		Note:        note,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.UpsertListEntry(ctx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert list entry: %w", err)
	}

	s.invalidateListFlag(ctx, publisherID)
	logger.Log.Info("Publisher listed",
		zap.String("publisherId", publisherID),
		zap.String("kind", string(kind)),
		zap.String("by", addedBy),
	)
	e := s.event(EventListUpdated, now)
	e.PublisherID = publisherID
	e.Attributes = map[string]string{"kind": string(kind)}
	s.bus.Publish(ctx, e)
	return entry, nil
}

// RemoveListEntry clears a publisher's flag.
func (s *ModerationService) RemoveListEntry(ctx context.Context, publisherID string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.DeleteListEntry(ctx, publisherID)
	})
	if err != nil {
		return fmt.Errorf("failed to remove list entry: %w", err)
	}

	s.invalidateListFlag(ctx, publisherID)
	logger.Log.Info("Publisher unlisted", zap.String("publisherId", publisherID))
	e := s.event(EventListRemoved, s.timestamp())
	e.PublisherID = publisherID
	s.bus.Publish(ctx, e)
	return nil
}

// invalidateListFlag drops a publisher's cached flag after a committed write.
// The next lookup refills it from the store, so concurrent writers cannot
// leave the cache holding a kind the store no longer has.
func (s *ModerationService) invalidateListFlag(ctx context.Context, publisherID string) {
	if err := s.lists.Delete(ctx, publisherID); err != nil {
		logger.Log.Warn("Failed to invalidate list cache", zap.Error(err), zap.String("publisherId", publisherID))
	}
}

// GetListEntry returns a publisher's entry.
func (s *ModerationService) GetListEntry(ctx context.Context, publisherID string) (*models.ListEntry, error) {
	var entry *models.ListEntry
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		entry, err = tx.GetListEntry(ctx, publisherID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListListEntries returns list entries, optionally of one kind.
func (s *ModerationService) ListListEntries(ctx context.Context, kind models.ListKind) ([]*models.ListEntry, error) {
	if kind != "" && !kind.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid list kind: %q", kind)}
	}
	var entries []*models.ListEntry
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		entries, err = tx.ListListEntries(ctx, repository.ListEntryFilter{Kind: kind})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// PublisherListKind returns a publisher's flag, or "" when it has none.
// Lookup failures are logged and reported as unflagged.
func (s *ModerationService) PublisherListKind(ctx context.Context, publisherID string) models.ListKind {
	kind, found, err := s.lists.Get(ctx, publisherID)
	if err != nil {
		logger.Log.Warn("List cache lookup failed", zap.Error(err), zap.String("publisherId", publisherID))
	}
	if found {
		return kind
	}

	entry, err := s.GetListEntry(ctx, publisherID)
	switch {
	case err == nil:
		kind = entry.Kind
	case db.IsNotFound(err):
		kind = ""
	default:
		logger.Log.Warn("List entry lookup failed", zap.Error(err), zap.String("publisherId", publisherID))
		return ""
	}
	if err := s.lists.Set(ctx, publisherID, kind); err != nil {
		logger.Log.Warn("Failed to update list cache", zap.Error(err), zap.String("publisherId", publisherID))
	}
	return kind
}
