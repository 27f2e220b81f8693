package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/models"
)

// writerLockKey is the advisory lock that serializes writers across processes.
const writerLockKey int64 = 0x6d6f6471 // "modq"

var (
	_ Store = (*PostgresStore)(nil)
	_ Tx    = (*pgTx)(nil)
)

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// WithTx implements Store. Every writer takes the same transaction-scoped
// advisory lock, so concurrent writers run one after another.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return db.WrapError(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, writerLockKey); err != nil {
		return db.WrapError(err, "acquire writer lock")
	}
	if err = fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return db.WrapError(err, "commit transaction")
	}
	return nil
}

// View implements Store.
func (s *PostgresStore) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return db.WrapError(err, "begin read transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()
	return fn(ctx, &pgTx{tx: tx})
}

// Ping checks the database connection health.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements Store.
func (s *PostgresStore) Close() {
	db.Close(s.pool)
}

type pgTx struct {
	tx pgx.Tx
}

// where accumulates SQL predicates with positional arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *where) page(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		w.args = append(w.args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(w.args))
	}
	if offset > 0 {
		w.args = append(w.args, offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(w.args))
	}
	return b.String()
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// Contents

const contentColumns = `id, title, body, images, attachments, publisher, source, report_info, status,
	assigned_reviewer_id, assigned_at, like_count, favorite_count, comments, shadow_banned, sticky,
	created_at, updated_at`

func contentWhere(f ContentFilter) *where {
	w := &where{}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		w.add("status = ANY(?)", statuses)
	}
	if f.Source != "" {
		w.add("source = ?", string(f.Source))
	}
	if f.AssignedReviewerID != "" {
		w.add("assigned_reviewer_id = ?", f.AssignedReviewerID)
	}
	if f.PublisherID != "" {
		w.add("publisher_id = ?", f.PublisherID)
	}
	if f.Search != "" {
		w.add("(title ILIKE ? OR body ILIKE ? OR publisher->>'nickname' ILIKE ?)",
			likePattern(f.Search), likePattern(f.Search), likePattern(f.Search))
	}
	return w
}

func scanContent(row pgx.Row) (*models.ContentItem, error) {
	var c models.ContentItem
	var images, attachments, publisher, comments, reportInfo []byte
	var status, source string
	err := row.Scan(
		&c.ID, &c.Title, &c.Text, &images, &attachments, &publisher, &source, &reportInfo, &status,
		&c.AssignedReviewerID, &c.AssignedAt, &c.LikeCount, &c.FavoriteCount, &comments,
		&c.ShadowBanned, &c.Sticky, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = models.ContentStatus(status)
	c.Source = models.ContentSource(source)
	if err := unmarshalAll(
		jsonField{images, &c.Images},
		jsonField{attachments, &c.Attachments},
		jsonField{publisher, &c.Publisher},
		jsonField{comments, &c.Comments},
	); err != nil {
		return nil, err
	}
	if len(reportInfo) > 0 {
		c.ReportInfo = &models.ReportInfo{}
		if err := json.Unmarshal(reportInfo, c.ReportInfo); err != nil {
			return nil, fmt.Errorf("decode report_info: %w", err)
		}
	}
	return &c, nil
}

type jsonField struct {
	raw []byte
	dst any
}

func unmarshalAll(fields ...jsonField) error {
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return fmt.Errorf("decode json column: %w", err)
		}
	}
	return nil
}

// jsonArray encodes v, writing an empty array for nil slices.
func jsonArray[T any](v []T) ([]byte, error) {
	if v == nil {
		v = []T{}
	}
	return json.Marshal(v)
}

type contentParams struct {
	images, attachments, publisher, comments, reportInfo []byte
}

func encodeContent(c *models.ContentItem) (*contentParams, error) {
	var (
		p   contentParams
		err error
	)
	if p.images, err = jsonArray(c.Images); err != nil {
		return nil, err
	}
	if p.attachments, err = jsonArray(c.Attachments); err != nil {
		return nil, err
	}
	if p.comments, err = jsonArray(c.Comments); err != nil {
		return nil, err
	}
	if p.publisher, err = json.Marshal(c.Publisher); err != nil {
		return nil, err
	}
	if c.ReportInfo != nil {
		if p.reportInfo, err = json.Marshal(c.ReportInfo); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (t *pgTx) GetContent(ctx context.Context, id string) (*models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`
	c, err := scanContent(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, db.WrapError(err, "get content "+id)
	}
	return c, nil
}

func (t *pgTx) ListContents(ctx context.Context, filter ContentFilter) ([]*models.ContentItem, error) {
	w := contentWhere(filter)
	order := " ORDER BY created_at ASC, id ASC"
	switch filter.Order {
	case OrderCreatedDesc:
		order = " ORDER BY created_at DESC, id DESC"
	case OrderAssignedAsc:
		order = " ORDER BY assigned_at ASC NULLS LAST, created_at ASC, id ASC"
	}
	query := `SELECT ` + contentColumns + ` FROM contents` + w.String() + order + w.page(filter.Limit, filter.Offset)

	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, db.WrapError(err, "list contents")
	}
	defer rows.Close()

	var out []*models.ContentItem
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan content")
		}
		out = append(out, c)
	}
	return out, db.WrapError(rows.Err(), "list contents")
}

func (t *pgTx) CountContents(ctx context.Context, filter ContentFilter) (int, error) {
	w := contentWhere(filter)
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM contents`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, db.WrapError(err, "count contents")
	}
	return n, nil
}

func (t *pgTx) CreateContent(ctx context.Context, c *models.ContentItem) error {
	p, err := encodeContent(c)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}
	query := `
		INSERT INTO contents (id, title, body, images, attachments, publisher_id, publisher, source, report_info,
			status, assigned_reviewer_id, assigned_at, like_count, favorite_count, comments, shadow_banned, sticky,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = t.tx.Exec(ctx, query,
		c.ID, c.Title, c.Text, p.images, p.attachments, c.Publisher.ID, p.publisher, string(c.Source), p.reportInfo,
		string(c.Status), c.AssignedReviewerID, c.AssignedAt, c.LikeCount, c.FavoriteCount, p.comments,
		c.ShadowBanned, c.Sticky, c.CreatedAt, c.UpdatedAt,
	)
	return db.WrapError(err, "create content")
}

func (t *pgTx) SaveContent(ctx context.Context, c *models.ContentItem) error {
	p, err := encodeContent(c)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}
	query := `
		UPDATE contents
		SET title = $2, body = $3, images = $4, attachments = $5, status = $6, assigned_reviewer_id = $7,
		    assigned_at = $8, like_count = $9, favorite_count = $10, comments = $11, shadow_banned = $12,
		    sticky = $13, updated_at = $14
		WHERE id = $1
	`
	tag, err := t.tx.Exec(ctx, query,
		c.ID, c.Title, c.Text, p.images, p.attachments, string(c.Status), c.AssignedReviewerID, c.AssignedAt,
		c.LikeCount, c.FavoriteCount, p.comments, c.ShadowBanned, c.Sticky, c.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "save content")
	}
	if tag.RowsAffected() == 0 {
		return notFound("save content", c.ID)
	}
	return nil
}

// Reviewers

const reviewerColumns = `id, username, name, status, queue_capacity, current_queue_count, created_at, updated_at`

func scanReviewer(row pgx.Row) (*models.Reviewer, error) {
	var (
		r      models.Reviewer
		status string
	)
	if err := row.Scan(&r.ID, &r.Username, &r.Name, &status, &r.QueueCapacity, &r.CurrentQueueCount,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = models.ReviewerStatus(status)
	return &r, nil
}

func (t *pgTx) GetReviewer(ctx context.Context, id string) (*models.Reviewer, error) {
	r, err := scanReviewer(t.tx.QueryRow(ctx, `SELECT `+reviewerColumns+` FROM reviewers WHERE id = $1`, id))
	if err != nil {
		return nil, db.WrapError(err, "get reviewer "+id)
	}
	return r, nil
}

func (t *pgTx) ListReviewers(ctx context.Context, filter ReviewerFilter) ([]*models.Reviewer, error) {
	w := &where{}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.Search != "" {
		w.add("(username ILIKE ? OR name ILIKE ?)", likePattern(filter.Search), likePattern(filter.Search))
	}
	rows, err := t.tx.Query(ctx, `SELECT `+reviewerColumns+` FROM reviewers`+w.String()+` ORDER BY seq ASC`, w.args...)
	if err != nil {
		return nil, db.WrapError(err, "list reviewers")
	}
	defer rows.Close()

	var out []*models.Reviewer
	for rows.Next() {
		r, err := scanReviewer(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan reviewer")
		}
		out = append(out, r)
	}
	return out, db.WrapError(rows.Err(), "list reviewers")
}

func (t *pgTx) CreateReviewer(ctx context.Context, r *models.Reviewer) error {
	query := `
		INSERT INTO reviewers (id, username, name, status, queue_capacity, current_queue_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := t.tx.Exec(ctx, query, r.ID, r.Username, r.Name, string(r.Status), r.QueueCapacity,
		r.CurrentQueueCount, r.CreatedAt, r.UpdatedAt)
	return db.WrapError(err, "create reviewer")
}

func (t *pgTx) SaveReviewer(ctx context.Context, r *models.Reviewer) error {
	query := `
		UPDATE reviewers
		SET name = $2, status = $3, queue_capacity = $4, current_queue_count = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := t.tx.Exec(ctx, query, r.ID, r.Name, string(r.Status), r.QueueCapacity, r.CurrentQueueCount, r.UpdatedAt)
	if err != nil {
		return db.WrapError(err, "save reviewer")
	}
	if tag.RowsAffected() == 0 {
		return notFound("save reviewer", r.ID)
	}
	return nil
}

func (t *pgTx) DeleteReviewer(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM reviewers WHERE id = $1`, id)
	if err != nil {
		return db.WrapError(err, "delete reviewer")
	}
	if tag.RowsAffected() == 0 {
		return notFound("delete reviewer", id)
	}
	return nil
}

// Review records

const recordColumns = `id, content_id, content_snapshot, reviewer_id, reviewer_name, action, reject_reason,
	reject_note, reviewed_at, is_overturned, overturned_by, overturned_at, overturn_note`

func recordWhere(f RecordFilter) *where {
	w := &where{}
	if f.ReviewerID != "" {
		w.add("reviewer_id = ?", f.ReviewerID)
	}
	if f.ContentID != "" {
		w.add("content_id = ?", f.ContentID)
	}
	if f.Action != "" {
		w.add("action = ?", string(f.Action))
	}
	if f.Overturned != nil {
		w.add("is_overturned = ?", *f.Overturned)
	}
	if f.Window.From != nil {
		w.add("reviewed_at >= ?", *f.Window.From)
	}
	if f.Window.To != nil {
		w.add("reviewed_at < ?", *f.Window.To)
	}
	if f.Search != "" {
		w.add("(content_snapshot->>'title' ILIKE ? OR content_snapshot->>'text' ILIKE ? OR reviewer_name ILIKE ?)",
			likePattern(f.Search), likePattern(f.Search), likePattern(f.Search))
	}
	return w
}

func scanRecord(row pgx.Row) (*models.ReviewRecord, error) {
	var r models.ReviewRecord
	var snapshot []byte
	var action string
	var reason, note *string
	err := row.Scan(&r.ID, &r.ContentID, &snapshot, &r.ReviewerID, &r.ReviewerName, &action, &reason, &note,
		&r.ReviewedAt, &r.IsOverturned, &r.OverturnedBy, &r.OverturnedAt, &r.OverturnNote)
	if err != nil {
		return nil, err
	}
	r.Action = models.ReviewAction(action)
	if reason != nil {
		r.RejectReason = models.RejectReason(*reason)
	}
	if note != nil {
		r.RejectNote = *note
	}
	if err := json.Unmarshal(snapshot, &r.Content); err != nil {
		return nil, fmt.Errorf("decode content_snapshot: %w", err)
	}
	return &r, nil
}

func (t *pgTx) GetRecord(ctx context.Context, id string) (*models.ReviewRecord, error) {
	r, err := scanRecord(t.tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM review_records WHERE id = $1`, id))
	if err != nil {
		return nil, db.WrapError(err, "get record "+id)
	}
	return r, nil
}

func (t *pgTx) ListRecords(ctx context.Context, filter RecordFilter) ([]*models.ReviewRecord, error) {
	w := recordWhere(filter)
	query := `SELECT ` + recordColumns + ` FROM review_records` + w.String() +
		` ORDER BY reviewed_at DESC, seq DESC` + w.page(filter.Limit, filter.Offset)

	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, db.WrapError(err, "list records")
	}
	defer rows.Close()

	var out []*models.ReviewRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan record")
		}
		out = append(out, r)
	}
	return out, db.WrapError(rows.Err(), "list records")
}

func (t *pgTx) CountRecords(ctx context.Context, filter RecordFilter) (int, error) {
	w := recordWhere(filter)
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM review_records`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, db.WrapError(err, "count records")
	}
	return n, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (t *pgTx) CreateRecord(ctx context.Context, r *models.ReviewRecord) error {
	snapshot, err := json.Marshal(r.Content)
	if err != nil {
		return fmt.Errorf("failed to encode content snapshot: %w", err)
	}
	query := `
		INSERT INTO review_records (id, content_id, content_snapshot, reviewer_id, reviewer_name, action,
			reject_reason, reject_note, reviewed_at, is_overturned, overturned_by, overturned_at, overturn_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = t.tx.Exec(ctx, query, r.ID, r.ContentID, snapshot, r.ReviewerID, r.ReviewerName, string(r.Action),
		nullable(string(r.RejectReason)), nullable(r.RejectNote), r.ReviewedAt, r.IsOverturned, r.OverturnedBy,
		r.OverturnedAt, r.OverturnNote)
	return db.WrapError(err, "create record")
}

// SaveRecord persists overturn metadata only; the table trigger rejects any other change.
func (t *pgTx) SaveRecord(ctx context.Context, r *models.ReviewRecord) error {
	query := `
		UPDATE review_records
		SET is_overturned = $2, overturned_by = $3, overturned_at = $4, overturn_note = $5
		WHERE id = $1
	`
	tag, err := t.tx.Exec(ctx, query, r.ID, r.IsOverturned, r.OverturnedBy, r.OverturnedAt, r.OverturnNote)
	if err != nil {
		return db.WrapError(err, "save record")
	}
	if tag.RowsAffected() == 0 {
		return notFound("save record", r.ID)
	}
	return nil
}

// List entries

func scanListEntry(row pgx.Row) (*models.ListEntry, error) {
	var (
		e    models.ListEntry
		kind string
	)
	if err := row.Scan(&e.PublisherID, &kind, &e.AddedAt, &e.AddedBy, &e.Note); err != nil {
		return nil, err
	}
	e.Kind = models.ListKind(kind)
	return &e, nil
}

func (t *pgTx) GetListEntry(ctx context.Context, publisherID string) (*models.ListEntry, error) {
	query := `SELECT publisher_id, kind, added_at, added_by, note FROM list_entries WHERE publisher_id = $1`
	e, err := scanListEntry(t.tx.QueryRow(ctx, query, publisherID))
	if err != nil {
		return nil, db.WrapError(err, "get list entry "+publisherID)
	}
	return e, nil
}

func (t *pgTx) ListListEntries(ctx context.Context, filter ListEntryFilter) ([]*models.ListEntry, error) {
	w := &where{}
	if filter.Kind != "" {
		w.add("kind = ?", string(filter.Kind))
	}
	query := `SELECT publisher_id, kind, added_at, added_by, note FROM list_entries` + w.String() +
		` ORDER BY added_at DESC, publisher_id ASC`
	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, db.WrapError(err, "list entries")
	}
	defer rows.Close()

	var out []*models.ListEntry
	for rows.Next() {
		e, err := scanListEntry(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan list entry")
		}
		out = append(out, e)
	}
	return out, db.WrapError(rows.Err(), "list entries")
}

func (t *pgTx) UpsertListEntry(ctx context.Context, e *models.ListEntry) error {
	query := `
		INSERT INTO list_entries (publisher_id, kind, added_at, added_by, note)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (publisher_id) DO UPDATE
		SET kind = EXCLUDED.kind, added_at = EXCLUDED.added_at, added_by = EXCLUDED.added_by, note = EXCLUDED.note
	`
	_, err := t.tx.Exec(ctx, query, e.PublisherID, string(e.Kind), e.AddedAt, e.AddedBy, e.Note)
	return db.WrapError(err, "upsert list entry")
}

func (t *pgTx) DeleteListEntry(ctx context.Context, publisherID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM list_entries WHERE publisher_id = $1`, publisherID)
	if err != nil {
		return db.WrapError(err, "delete list entry")
	}
	if tag.RowsAffected() == 0 {
		return notFound("delete list entry", publisherID)
	}
	return nil
}
