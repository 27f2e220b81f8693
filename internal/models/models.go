// Package models contains the domain entities and DTOs for the moderation queue service.
package models

import (
	"fmt"
	"time"
)

// ContentStatus is the workflow position of a content item.
type ContentStatus string

// ContentStatus constants define the moderation lifecycle.
const (
	ContentStatusPending     ContentStatus = "pending"
	ContentStatusUnderReview ContentStatus = "under_review"
	ContentStatusApproved    ContentStatus = "approved"
	ContentStatusRejected    ContentStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ContentStatus) Valid() bool {
	switch s {
	case ContentStatusPending, ContentStatusUnderReview, ContentStatusApproved, ContentStatusRejected:
		return true
	}
	return false
}

// Decided reports whether s is a verdict state.
func (s ContentStatus) Decided() bool {
	return s == ContentStatusApproved || s == ContentStatusRejected
}

// ContentSource tells where a content item entered the queue from.
type ContentSource string

// ContentSource constants.
const (
	ContentSourceNormal   ContentSource = "normal"
	ContentSourceReported ContentSource = "reported"
)

// Valid reports whether s is a known source.
func (s ContentSource) Valid() bool {
	return s == ContentSourceNormal || s == ContentSourceReported
}

// ReportType classifies a user report.
type ReportType string

// ReportType constants.
const (
	ReportTypeCopyright     ReportType = "copyright"
	ReportTypeInappropriate ReportType = "inappropriate"
)

// ReviewerStatus is the presence state of a reviewer.
type ReviewerStatus string

// ReviewerStatus constants.
const (
	ReviewerStatusOnline  ReviewerStatus = "online"
	ReviewerStatusOffline ReviewerStatus = "offline"
)

// Valid reports whether s is a known reviewer status.
func (s ReviewerStatus) Valid() bool {
	return s == ReviewerStatusOnline || s == ReviewerStatusOffline
}

// ReviewAction is the verdict recorded by a reviewer.
type ReviewAction string

// ReviewAction constants.
const (
	ReviewActionApproved ReviewAction = "approved"
	ReviewActionRejected ReviewAction = "rejected"
)

// Valid reports whether a is a known action.
func (a ReviewAction) Valid() bool {
	return a == ReviewActionApproved || a == ReviewActionRejected
}

// Opposite returns the inverse verdict.
func (a ReviewAction) Opposite() ReviewAction {
	if a == ReviewActionApproved {
		return ReviewActionRejected
	}
	return ReviewActionApproved
}

// Status returns the content status produced by the action.
func (a ReviewAction) Status() ContentStatus {
	if a == ReviewActionApproved {
		return ContentStatusApproved
	}
	return ContentStatusRejected
}

// RejectReason is the policy category attached to a rejection.
type RejectReason string

// RejectReason constants.
const (
	RejectReasonPornographic RejectReason = "pornographic"
	RejectReasonViolent      RejectReason = "violent"
	RejectReasonIllegal      RejectReason = "illegal"
	RejectReasonSpam         RejectReason = "spam"
	RejectReasonCopyright    RejectReason = "copyright"
	RejectReasonFalseInfo    RejectReason = "false_info"
	RejectReasonOther        RejectReason = "other"
)

// Valid reports whether r is a known reason.
func (r RejectReason) Valid() bool {
	switch r {
	case RejectReasonPornographic, RejectReasonViolent, RejectReasonIllegal, RejectReasonSpam,
		RejectReasonCopyright, RejectReasonFalseInfo, RejectReasonOther:
		return true
	}
	return false
}

// ListKind distinguishes blacklist and whitelist entries.
type ListKind string

// ListKind constants.
const (
	ListKindBlacklist ListKind = "blacklist"
	ListKindWhitelist ListKind = "whitelist"
)

// Valid reports whether k is a known list kind.
func (k ListKind) Valid() bool {
	return k == ListKindBlacklist || k == ListKindWhitelist
}

// ReportInfo describes the user report that put a content item in the queue.
type ReportInfo struct {
	ReportType   ReportType `json:"report_type"`
	ReporterID   string     `json:"reporter_id"`
	ReportReason string     `json:"report_reason"`
	ReportedAt   time.Time  `json:"reported_at"`
}

// Publisher is the masked author profile shown to reviewers.
type Publisher struct {
	ID           string `json:"id"`
	Nickname     string `json:"nickname"`
	RegisterDays int    `json:"register_days"`
	PostCount    int    `json:"post_count"`
}

// Attachment is a file reference carried by a post.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Comment is a reply left on a post.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentItem is a user-generated post moving through moderation.
//
// Status is authoritative; AssignedReviewerID and AssignedAt are derived from it
// and must be set exactly when Status is under_review.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ContentItem struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Text               string        `json:"text"`
	Images             []string      `json:"images"`
	Attachments        []Attachment  `json:"attachments"`
	Publisher          Publisher     `json:"publisher"`
	Source             ContentSource `json:"source"`
	ReportInfo         *ReportInfo   `json:"report_info,omitempty"`
	Status             ContentStatus `json:"status"`
	AssignedReviewerID *string       `json:"assigned_reviewer_id,omitempty"`
	AssignedAt         *time.Time    `json:"assigned_at,omitempty"`
	LikeCount          int           `json:"like_count"`
	FavoriteCount      int           `json:"favorite_count"`
	Comments           []Comment     `json:"comments"`
	ShadowBanned       bool          `json:"shadow_banned"`
	Sticky             bool          `json:"sticky"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Validate checks that the assignment fields agree with the status.
func (c *ContentItem) Validate() error {
	if !c.Status.Valid() {
		return fmt.Errorf("content %s: invalid status %q", c.ID, c.Status)
	}
	assigned := c.AssignedReviewerID != nil
	if c.Status == ContentStatusUnderReview {
		if !assigned || c.AssignedAt == nil {
			return fmt.Errorf("content %s: under review without assignment", c.ID)
		}
		return nil
	}
	if assigned || c.AssignedAt != nil {
		return fmt.Errorf("content %s: assignment set while %s", c.ID, c.Status)
	}
	return nil
}

// AssignedTo reports whether the item is currently held by reviewerID.
func (c *ContentItem) AssignedTo(reviewerID string) bool {
	return c.Status == ContentStatusUnderReview && c.AssignedReviewerID != nil && *c.AssignedReviewerID == reviewerID
}

// Assign moves a pending item into a reviewer's queue.
func (c *ContentItem) Assign(reviewerID string, at time.Time) {
	id := reviewerID
	ts := at
	c.Status = ContentStatusUnderReview
	c.AssignedReviewerID = &id
	c.AssignedAt = &ts
	c.UpdatedAt = at
}

// Release returns the item to the given unassigned status.
func (c *ContentItem) Release(status ContentStatus, at time.Time) {
	c.Status = status
	c.AssignedReviewerID = nil
	c.AssignedAt = nil
	c.UpdatedAt = at
}

// Clone returns a deep copy, used for snapshots and store isolation.
func (c *ContentItem) Clone() *ContentItem {
	if c == nil {
		return nil
	}
	out := *c
	if c.Images != nil {
		out.Images = append([]string(nil), c.Images...)
	}
	if c.Attachments != nil {
		out.Attachments = append([]Attachment(nil), c.Attachments...)
	}
	if c.Comments != nil {
		out.Comments = append([]Comment(nil), c.Comments...)
	}
	if c.ReportInfo != nil {
		ri := *c.ReportInfo
		out.ReportInfo = &ri
	}
	if c.AssignedReviewerID != nil {
		id := *c.AssignedReviewerID
		out.AssignedReviewerID = &id
	}
	if c.AssignedAt != nil {
		at := *c.AssignedAt
		out.AssignedAt = &at
	}
	return &out
}

// Reviewer is a human moderator with a bounded concurrent queue.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Reviewer struct {
	ID                string         `json:"id"`
	Username          string         `json:"username"`
	Name              string         `json:"name"`
	Status            ReviewerStatus `json:"status"`
	QueueCapacity     int            `json:"queue_capacity"`
	CurrentQueueCount int            `json:"current_queue_count"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// AvailableSlots returns how many more items the reviewer may take.
// It is never negative, even after a capacity shrink.
func (r *Reviewer) AvailableSlots() int {
	if r.Status != ReviewerStatusOnline {
		return 0
	}
	if free := r.QueueCapacity - r.CurrentQueueCount; free > 0 {
		return free
	}
	return 0
}

// ReleaseSlots lowers the queue count by n, flooring at zero.
func (r *Reviewer) ReleaseSlots(n int) {
	r.CurrentQueueCount -= n
	if r.CurrentQueueCount < 0 {
		r.CurrentQueueCount = 0
	}
}

// Clone returns a copy of the reviewer.
func (r *Reviewer) Clone() *Reviewer {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

// ReviewRecord is the append-only audit entry written for every decision.
// Only the overturn fields change after creation.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ReviewRecord struct {
	ID           string       `json:"id"`
	ContentID    string       `json:"content_id"`
	Content      ContentItem  `json:"content"`
	ReviewerID   string       `json:"reviewer_id"`
	ReviewerName string       `json:"reviewer_name"`
	Action       ReviewAction `json:"action"`
	RejectReason RejectReason `json:"reject_reason,omitempty"`
	RejectNote   string       `json:"reject_note,omitempty"`
	ReviewedAt   time.Time    `json:"reviewed_at"`
	IsOverturned bool         `json:"is_overturned"`
	OverturnedBy *string      `json:"overturned_by,omitempty"`
	OverturnedAt *time.Time   `json:"overturned_at,omitempty"`
	OverturnNote *string      `json:"overturn_note,omitempty"`
}

// ClearOverturn resets the overturn metadata.
func (r *ReviewRecord) ClearOverturn() {
	r.IsOverturned = false
	r.OverturnedBy = nil
	r.OverturnedAt = nil
	r.OverturnNote = nil
}

// Clone returns a deep copy of the record including its snapshot.
func (r *ReviewRecord) Clone() *ReviewRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Content = *r.Content.Clone()
	if r.OverturnedBy != nil {
		by := *r.OverturnedBy
		out.OverturnedBy = &by
	}
	if r.OverturnedAt != nil {
		at := *r.OverturnedAt
		out.OverturnedAt = &at
	}
	if r.OverturnNote != nil {
		note := *r.OverturnNote
		out.OverturnNote = &note
	}
	return &out
}

// ListEntry flags a publisher as blacklisted or whitelisted.
// There is at most one entry per publisher.
type ListEntry struct {
	PublisherID string    `json:"publisher_id"`
	Kind        ListKind  `json:"kind"`
	AddedAt     time.Time `json:"added_at"`
	AddedBy     string    `json:"added_by"`
	Note        *string   `json:"note,omitempty"`
}

// Clone returns a copy of the entry.
func (e *ListEntry) Clone() *ListEntry {
	if e == nil {
		return nil
	}
	out := *e
	if e.Note != nil {
		note := *e.Note
		out.Note = &note
	}
	return &out
}

// QueueEntry pairs a content item with its publisher's list flag, if any.
type QueueEntry struct {
	Content       *ContentItem `json:"content"`
	PublisherList ListKind     `json:"publisher_list,omitempty"`
}

// ErrorResponse represents an error response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}
