// Package repository provides transactional persistence for the moderation queue.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/kyosocan/demo-C-platform/internal/models"
)

// ErrReadOnly is returned when a write is attempted inside View.
var ErrReadOnly = errors.New("read-only transaction")

// Store is the transactional entry point shared by every service operation.
//
// WithTx runs fn atomically against the live state: either every change made
// through tx becomes visible or none does. Concurrent WithTx calls are
// serialized so check-then-act sequences are race free. View runs fn against a
// consistent snapshot without blocking other readers.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Close()
}

// Tx exposes the entity operations available inside a transaction.
// All returned entities are private copies; callers persist changes with the
// matching Save method.
type Tx interface {
	GetContent(ctx context.Context, id string) (*models.ContentItem, error)
	ListContents(ctx context.Context, filter ContentFilter) ([]*models.ContentItem, error)
	CountContents(ctx context.Context, filter ContentFilter) (int, error)
	CreateContent(ctx context.Context, c *models.ContentItem) error
	SaveContent(ctx context.Context, c *models.ContentItem) error

	GetReviewer(ctx context.Context, id string) (*models.Reviewer, error)
	ListReviewers(ctx context.Context, filter ReviewerFilter) ([]*models.Reviewer, error)
	CreateReviewer(ctx context.Context, r *models.Reviewer) error
	SaveReviewer(ctx context.Context, r *models.Reviewer) error
	DeleteReviewer(ctx context.Context, id string) error

	GetRecord(ctx context.Context, id string) (*models.ReviewRecord, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]*models.ReviewRecord, error)
	CountRecords(ctx context.Context, filter RecordFilter) (int, error)
	CreateRecord(ctx context.Context, r *models.ReviewRecord) error
	SaveRecord(ctx context.Context, r *models.ReviewRecord) error

	GetListEntry(ctx context.Context, publisherID string) (*models.ListEntry, error)
	ListListEntries(ctx context.Context, filter ListEntryFilter) ([]*models.ListEntry, error)
	UpsertListEntry(ctx context.Context, e *models.ListEntry) error
	DeleteListEntry(ctx context.Context, publisherID string) error
}

// ContentOrder selects the sort order of ListContents.
type ContentOrder int

// ContentOrder values.
const (
	// OrderCreatedAsc is oldest first, the FIFO order used for assignment.
	OrderCreatedAsc ContentOrder = iota
	// OrderCreatedDesc is newest first.
	OrderCreatedDesc
	// OrderAssignedAsc is by assignment time, oldest first.
	OrderAssignedAsc
)

// ContentFilter narrows ListContents and CountContents. Zero values match everything.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ContentFilter struct {
	Statuses           []models.ContentStatus
	Source             models.ContentSource
	AssignedReviewerID string
	PublisherID        string
	Search             string
	Order              ContentOrder
	Limit              int
	Offset             int
}

// Match reports whether c satisfies the filter, ignoring order and paging.
func (f ContentFilter) Match(c *models.ContentItem) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if c.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Source != "" && c.Source != f.Source {
		return false
	}
	if f.AssignedReviewerID != "" && (c.AssignedReviewerID == nil || *c.AssignedReviewerID != f.AssignedReviewerID) {
		return false
	}
	if f.PublisherID != "" && c.Publisher.ID != f.PublisherID {
		return false
	}
	if f.Search != "" {
		return containsFold(c.Title, f.Search) || containsFold(c.Text, f.Search) ||
			containsFold(c.Publisher.Nickname, f.Search)
	}
	return true
}

// ReviewerFilter narrows ListReviewers.
type ReviewerFilter struct {
	Status models.ReviewerStatus
	Search string
}

// Match reports whether r satisfies the filter.
func (f ReviewerFilter) Match(r *models.Reviewer) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Search != "" {
		return containsFold(r.Username, f.Search) || containsFold(r.Name, f.Search)
	}
	return true
}

// RecordFilter narrows ListRecords. Results are newest first.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RecordFilter struct {
	ReviewerID string
	ContentID  string
	Action     models.ReviewAction
	Overturned *bool
	Search     string
	Window     models.StatsWindow
	Limit      int
	Offset     int
}

// Match reports whether r satisfies the filter, ignoring paging.
func (f RecordFilter) Match(r *models.ReviewRecord) bool {
	if f.ReviewerID != "" && r.ReviewerID != f.ReviewerID {
		return false
	}
	if f.ContentID != "" && r.ContentID != f.ContentID {
		return false
	}
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	if f.Overturned != nil && r.IsOverturned != *f.Overturned {
		return false
	}
	if !f.Window.Contains(r.ReviewedAt) {
		return false
	}
	if f.Search != "" {
		return containsFold(r.Content.Title, f.Search) || containsFold(r.Content.Text, f.Search) ||
			containsFold(r.ReviewerName, f.Search)
	}
	return true
}

// ListEntryFilter narrows ListListEntries.
type ListEntryFilter struct {
	Kind models.ListKind
}

// Match reports whether e satisfies the filter.
func (f ListEntryFilter) Match(e *models.ListEntry) bool {
	return f.Kind == "" || e.Kind == f.Kind
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
