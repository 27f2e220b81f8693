package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/models"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memTx)(nil)
)

type row[T any] struct {
	v   *T
	seq int64
}

// table is the committed state of one entity kind.
type table[T any] struct {
	rows  map[string]row[T]
	clone func(*T) *T
}

func newTable[T any](clone func(*T) *T) *table[T] {
	return &table[T]{rows: make(map[string]row[T]), clone: clone}
}

// txTable is a write overlay on top of a table. Nothing reaches the base until commit.
type txTable[T any] struct {
	base    *table[T]
	staged  map[string]row[T]
	deleted map[string]struct{}
}

func overlay[T any](base *table[T]) *txTable[T] {
	return &txTable[T]{base: base, staged: make(map[string]row[T]), deleted: make(map[string]struct{})}
}

func (t *txTable[T]) lookup(id string) (row[T], bool) {
	if r, ok := t.staged[id]; ok {
		return r, true
	}
	if _, gone := t.deleted[id]; gone {
		return row[T]{}, false
	}
	r, ok := t.base.rows[id]
	return r, ok
}

func (t *txTable[T]) get(id string) (*T, bool) {
	r, ok := t.lookup(id)
	if !ok {
		return nil, false
	}
	return t.base.clone(r.v), true
}

func (t *txTable[T]) put(id string, v *T, seq int64) {
	if existing, ok := t.lookup(id); ok {
		seq = existing.seq
	}
	delete(t.deleted, id)
	t.staged[id] = row[T]{v: t.base.clone(v), seq: seq}
}

func (t *txTable[T]) del(id string) {
	delete(t.staged, id)
	t.deleted[id] = struct{}{}
}

// scan returns clones of every visible row with its insertion sequence.
func (t *txTable[T]) scan(match func(*T) bool) []row[T] {
	out := make([]row[T], 0, len(t.base.rows)+len(t.staged))
	for id, r := range t.base.rows {
		if _, ok := t.staged[id]; ok {
			continue
		}
		if _, gone := t.deleted[id]; gone {
			continue
		}
		if match(r.v) {
			out = append(out, row[T]{v: t.base.clone(r.v), seq: r.seq})
		}
	}
	for _, r := range t.staged {
		if match(r.v) {
			out = append(out, row[T]{v: t.base.clone(r.v), seq: r.seq})
		}
	}
	return out
}

func (t *txTable[T]) commit() {
	for id := range t.deleted {
		delete(t.base.rows, id)
	}
	for id, r := range t.staged {
		t.base.rows[id] = r
	}
}

// MemoryStore is an in-process Store. Writers are serialized by a single
// mutex; each transaction stages its changes and applies them on success.
type MemoryStore struct {
	mu        sync.RWMutex
	seq       int64
	contents  *table[models.ContentItem]
	reviewers *table[models.Reviewer]
	records   *table[models.ReviewRecord]
	lists     *table[models.ListEntry]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contents:  newTable((*models.ContentItem).Clone),
		reviewers: newTable((*models.Reviewer).Clone),
		records:   newTable((*models.ReviewRecord).Clone),
		lists:     newTable((*models.ListEntry).Clone),
	}
}

// WithTx implements Store.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.begin(false)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.contents.commit()
	tx.reviewers.commit()
	tx.records.commit()
	tx.lists.commit()
	s.seq = tx.seq
	return nil
}

// View implements Store.
func (s *MemoryStore) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, s.begin(true))
}

// Ping implements Store.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() {}

func (s *MemoryStore) begin(readOnly bool) *memTx {
	return &memTx{
		readOnly:  readOnly,
		seq:       s.seq,
		contents:  overlay(s.contents),
		reviewers: overlay(s.reviewers),
		records:   overlay(s.records),
		lists:     overlay(s.lists),
	}
}

type memTx struct {
	readOnly  bool
	seq       int64
	contents  *txTable[models.ContentItem]
	reviewers *txTable[models.Reviewer]
	records   *txTable[models.ReviewRecord]
	lists     *txTable[models.ListEntry]
}

func (tx *memTx) next() int64 {
	tx.seq++
	return tx.seq
}

func (tx *memTx) writable(op string) error {
	if tx.readOnly {
		return fmt.Errorf("%s: %w", op, ErrReadOnly)
	}
	return nil
}

func notFound(op, id string) error {
	return fmt.Errorf("%s %s: %w", op, id, db.ErrNotFound)
}

func (tx *memTx) GetContent(_ context.Context, id string) (*models.ContentItem, error) {
	c, ok := tx.contents.get(id)
	if !ok {
		return nil, notFound("get content", id)
	}
	return c, nil
}

func (tx *memTx) ListContents(_ context.Context, filter ContentFilter) ([]*models.ContentItem, error) {
	rows := tx.contents.scan(filter.Match)
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].v, rows[j].v
		switch filter.Order {
		case OrderCreatedDesc:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		case OrderAssignedAsc:
			if a.AssignedAt != nil && b.AssignedAt != nil && !a.AssignedAt.Equal(*b.AssignedAt) {
				return a.AssignedAt.Before(*b.AssignedAt)
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	out := make([]*models.ContentItem, 0, len(rows))
	for _, r := range page(rows, filter.Limit, filter.Offset) {
		out = append(out, r.v)
	}
	return out, nil
}

func (tx *memTx) CountContents(_ context.Context, filter ContentFilter) (int, error) {
	return len(tx.contents.scan(filter.Match)), nil
}

func (tx *memTx) CreateContent(_ context.Context, c *models.ContentItem) error {
	if err := tx.writable("create content"); err != nil {
		return err
	}
	if _, exists := tx.contents.lookup(c.ID); exists {
		return fmt.Errorf("create content %s: %w", c.ID, db.ErrDuplicateKey)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("create content: %w: %v", db.ErrCheckViolation, err)
	}
	tx.contents.put(c.ID, c, tx.next())
	return nil
}

func (tx *memTx) SaveContent(_ context.Context, c *models.ContentItem) error {
	if err := tx.writable("save content"); err != nil {
		return err
	}
	if _, exists := tx.contents.lookup(c.ID); !exists {
		return notFound("save content", c.ID)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("save content: %w: %v", db.ErrCheckViolation, err)
	}
	tx.contents.put(c.ID, c, 0)
	return nil
}

func (tx *memTx) GetReviewer(_ context.Context, id string) (*models.Reviewer, error) {
	r, ok := tx.reviewers.get(id)
	if !ok {
		return nil, notFound("get reviewer", id)
	}
	return r, nil
}

func (tx *memTx) ListReviewers(_ context.Context, filter ReviewerFilter) ([]*models.Reviewer, error) {
	rows := tx.reviewers.scan(filter.Match)
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]*models.Reviewer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.v)
	}
	return out, nil
}

func (tx *memTx) CreateReviewer(_ context.Context, r *models.Reviewer) error {
	if err := tx.writable("create reviewer"); err != nil {
		return err
	}
	if _, exists := tx.reviewers.lookup(r.ID); exists {
		return fmt.Errorf("create reviewer %s: %w", r.ID, db.ErrDuplicateKey)
	}
	taken := tx.reviewers.scan(func(other *models.Reviewer) bool { return other.Username == r.Username })
	if len(taken) > 0 {
		return fmt.Errorf("create reviewer: %w (constraint: reviewers_username_key)", db.ErrDuplicateKey)
	}
	tx.reviewers.put(r.ID, r, tx.next())
	return nil
}

func (tx *memTx) SaveReviewer(_ context.Context, r *models.Reviewer) error {
	if err := tx.writable("save reviewer"); err != nil {
		return err
	}
	if _, exists := tx.reviewers.lookup(r.ID); !exists {
		return notFound("save reviewer", r.ID)
	}
	if r.QueueCapacity <= 0 || r.CurrentQueueCount < 0 {
		return fmt.Errorf("save reviewer %s: %w", r.ID, db.ErrCheckViolation)
	}
	tx.reviewers.put(r.ID, r, 0)
	return nil
}

func (tx *memTx) DeleteReviewer(_ context.Context, id string) error {
	if err := tx.writable("delete reviewer"); err != nil {
		return err
	}
	if _, exists := tx.reviewers.lookup(id); !exists {
		return notFound("delete reviewer", id)
	}
	tx.reviewers.del(id)
	return nil
}

func (tx *memTx) GetRecord(_ context.Context, id string) (*models.ReviewRecord, error) {
	r, ok := tx.records.get(id)
	if !ok {
		return nil, notFound("get record", id)
	}
	return r, nil
}

func (tx *memTx) ListRecords(_ context.Context, filter RecordFilter) ([]*models.ReviewRecord, error) {
	rows := tx.records.scan(filter.Match)
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].v, rows[j].v
		if !a.ReviewedAt.Equal(b.ReviewedAt) {
			return a.ReviewedAt.After(b.ReviewedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]*models.ReviewRecord, 0, len(rows))
	for _, r := range page(rows, filter.Limit, filter.Offset) {
		out = append(out, r.v)
	}
	return out, nil
}

func (tx *memTx) CountRecords(_ context.Context, filter RecordFilter) (int, error) {
	return len(tx.records.scan(filter.Match)), nil
}

func (tx *memTx) CreateRecord(_ context.Context, r *models.ReviewRecord) error {
	if err := tx.writable("create record"); err != nil {
		return err
	}
	if _, exists := tx.records.lookup(r.ID); exists {
		return fmt.Errorf("create record %s: %w", r.ID, db.ErrDuplicateKey)
	}
	tx.records.put(r.ID, r, tx.next())
	return nil
}

// SaveRecord persists overturn metadata. The snapshot and verdict are immutable.
func (tx *memTx) SaveRecord(_ context.Context, r *models.ReviewRecord) error {
	if err := tx.writable("save record"); err != nil {
		return err
	}
	current, ok := tx.records.get(r.ID)
	if !ok {
		return notFound("save record", r.ID)
	}
	if current.Action != r.Action || current.ReviewerID != r.ReviewerID || current.ContentID != r.ContentID ||
		!current.ReviewedAt.Equal(r.ReviewedAt) {
		return fmt.Errorf("save record %s: %w", r.ID, db.ErrImmutableRecord)
	}
	updated := current
	updated.IsOverturned = r.IsOverturned
	updated.OverturnedBy = r.OverturnedBy
	updated.OverturnedAt = r.OverturnedAt
	updated.OverturnNote = r.OverturnNote
	tx.records.put(r.ID, updated, 0)
	return nil
}

func (tx *memTx) GetListEntry(_ context.Context, publisherID string) (*models.ListEntry, error) {
	e, ok := tx.lists.get(publisherID)
	if !ok {
		return nil, notFound("get list entry", publisherID)
	}
	return e, nil
}

func (tx *memTx) ListListEntries(_ context.Context, filter ListEntryFilter) ([]*models.ListEntry, error) {
	rows := tx.lists.scan(filter.Match)
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].v, rows[j].v
		if !a.AddedAt.Equal(b.AddedAt) {
			return a.AddedAt.After(b.AddedAt)
		}
		return a.PublisherID < b.PublisherID
	})
	out := make([]*models.ListEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.v)
	}
	return out, nil
}

func (tx *memTx) UpsertListEntry(_ context.Context, e *models.ListEntry) error {
	if err := tx.writable("upsert list entry"); err != nil {
		return err
	}
	tx.lists.put(e.PublisherID, e, tx.next())
	return nil
}

func (tx *memTx) DeleteListEntry(_ context.Context, publisherID string) error {
	if err := tx.writable("delete list entry"); err != nil {
		return err
	}
	if _, exists := tx.lists.lookup(publisherID); !exists {
		return notFound("delete list entry", publisherID)
	}
	tx.lists.del(publisherID)
	return nil
}
