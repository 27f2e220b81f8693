package models

import "time"

// NewContent is the ingestion payload for a content item.
// ID and CreatedAt are filled in when empty.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type NewContent struct {
	ID          string        `json:"id,omitempty"`
	Title       string        `json:"title" binding:"required,max=255"`
	Text        string        `json:"text"`
	Images      []string      `json:"images"`
	Attachments []Attachment  `json:"attachments"`
	Publisher   Publisher     `json:"publisher" binding:"required"`
	Source      ContentSource `json:"source"`
	ReportInfo  *ReportInfo   `json:"report_info,omitempty"`
	CreatedAt   *time.Time    `json:"created_at,omitempty"`
}

// ContentPatch is a partial update of moderation-orthogonal attributes.
// It carries no id and no workflow fields, so neither can change through it.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ContentPatch struct {
	Title         *string       `json:"title,omitempty"`
	Text          *string       `json:"text,omitempty"`
	Images        *[]string     `json:"images,omitempty"`
	Attachments   *[]Attachment `json:"attachments,omitempty"`
	LikeCount     *int          `json:"like_count,omitempty"`
	FavoriteCount *int          `json:"favorite_count,omitempty"`
	Comments      *[]Comment    `json:"comments,omitempty"`
	ShadowBanned  *bool         `json:"shadow_banned,omitempty"`
	Sticky        *bool         `json:"sticky,omitempty"`
}

// Apply copies the set fields onto c.
func (p *ContentPatch) Apply(c *ContentItem) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Text != nil {
		c.Text = *p.Text
	}
	if p.Images != nil {
		c.Images = append([]string(nil), (*p.Images)...)
	}
	if p.Attachments != nil {
		c.Attachments = append([]Attachment(nil), (*p.Attachments)...)
	}
	if p.LikeCount != nil {
		c.LikeCount = *p.LikeCount
	}
	if p.FavoriteCount != nil {
		c.FavoriteCount = *p.FavoriteCount
	}
	if p.Comments != nil {
		c.Comments = append([]Comment(nil), (*p.Comments)...)
	}
	if p.ShadowBanned != nil {
		c.ShadowBanned = *p.ShadowBanned
	}
	if p.Sticky != nil {
		c.Sticky = *p.Sticky
	}
}

// Empty reports whether the patch changes nothing.
func (p *ContentPatch) Empty() bool {
	return p.Title == nil && p.Text == nil && p.Images == nil && p.Attachments == nil &&
		p.LikeCount == nil && p.FavoriteCount == nil && p.Comments == nil &&
		p.ShadowBanned == nil && p.Sticky == nil
}

// StatsWindow restricts statistics to records reviewed in [From, To).
// A nil bound is open.
type StatsWindow struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls inside the window.
func (w StatsWindow) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && !t.Before(*w.To) {
		return false
	}
	return true
}

// ReviewerStats is derived from a reviewer's review records.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ReviewerStats struct {
	ReviewerID           string         `json:"reviewer_id"`
	ReviewerName         string         `json:"reviewer_name"`
	Status               ReviewerStatus `json:"status,omitempty"`
	TotalReviewed        int            `json:"total_reviewed"`
	ApprovedCount        int            `json:"approved_count"`
	RejectedCount        int            `json:"rejected_count"`
	OverturnedCount      int            `json:"overturned_count"`
	ReportedContentCount int            `json:"reported_content_count"`
	OverturnRate         float64        `json:"overturn_rate"`
}

// SystemStats is the system-wide moderation summary.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SystemStats struct {
	TotalPending     int         `json:"total_pending"`
	TotalUnderReview int         `json:"total_under_review"`
	TotalReviewed    int         `json:"total_reviewed"`
	TotalApproved    int         `json:"total_approved"`
	TotalRejected    int         `json:"total_rejected"`
	TotalOverturned  int         `json:"total_overturned"`
	TotalReported    int         `json:"total_reported"`
	OnlineReviewers  int         `json:"online_reviewers"`
	ApprovalRate     float64     `json:"approval_rate"`
	ReportedRate     float64     `json:"reported_rate"`
	Window           StatsWindow `json:"window"`
}
