// Package validation checks moderation inputs before they reach the store.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kyosocan/demo-C-platform/internal/models"
)

var (
	idRegex       = regexp.MustCompile(`^[a-zA-Z0-9_.:-]{1,64}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)
)

const (
	maxTitleLength = 255
	maxNoteLength  = 1000
	maxNameLength  = 64
)

// Validator holds the tunable limits for moderation input.
type Validator struct {
	maxCapacity int
}

// New creates a Validator that accepts queue capacities in 1..maxCapacity.
func New(maxCapacity int) *Validator {
	return &Validator{maxCapacity: maxCapacity}
}

// MaxCapacity returns the configured capacity ceiling.
func (v *Validator) MaxCapacity() int {
	return v.maxCapacity
}

// ValidateID checks an opaque entity identifier.
func (v *Validator) ValidateID(kind, id string) error {
	if !idRegex.MatchString(id) {
		return fmt.Errorf("invalid %s id format: %q", kind, id)
	}
	return nil
}

// ValidateCapacity checks a reviewer queue capacity.
func (v *Validator) ValidateCapacity(capacity int) error {
	if capacity < 1 || capacity > v.maxCapacity {
		return fmt.Errorf("queue capacity must be between 1 and %d, got %d", v.maxCapacity, capacity)
	}
	return nil
}

// ValidateNote checks free-text notes attached to decisions, overturns and list entries.
func (v *Validator) ValidateNote(note string) error {
	if utf8.RuneCountInString(note) > maxNoteLength {
		return fmt.Errorf("note exceeds maximum length of %d characters", maxNoteLength)
	}
	return nil
}

// ValidateReviewer checks the fields of a new reviewer.
func (v *Validator) ValidateReviewer(username, name string, capacity int) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("invalid username format: %q", username)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("reviewer name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("reviewer name exceeds maximum length of %d characters", maxNameLength)
	}
	return v.ValidateCapacity(capacity)
}

// ValidateContent checks an ingestion payload.
func (v *Validator) ValidateContent(c *models.NewContent) error {
	if c.ID != "" {
		if err := v.ValidateID("content", c.ID); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("content title is required")
	}
	if utf8.RuneCountInString(c.Title) > maxTitleLength {
		return fmt.Errorf("content title exceeds maximum length of %d characters", maxTitleLength)
	}
	if err := v.ValidateID("publisher", c.Publisher.ID); err != nil {
		return err
	}
	if c.Source != "" && !c.Source.Valid() {
		return fmt.Errorf("invalid content source: %q", c.Source)
	}
	if c.Source == models.ContentSourceReported && c.ReportInfo == nil {
		return fmt.Errorf("reported content requires report info")
	}
	if c.ReportInfo != nil {
		switch c.ReportInfo.ReportType {
		case models.ReportTypeCopyright, models.ReportTypeInappropriate:
		default:
			return fmt.Errorf("invalid report type: %q", c.ReportInfo.ReportType)
		}
	}
	if c.CreatedAt != nil && c.CreatedAt.After(time.Now().Add(time.Minute)) {
		return fmt.Errorf("created_at is in the future")
	}
	return nil
}

// ValidatePatch checks a partial content update.
func (v *Validator) ValidatePatch(p *models.ContentPatch) error {
	if p.Empty() {
		return fmt.Errorf("patch has no fields to update")
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return fmt.Errorf("content title cannot be empty")
		}
		if utf8.RuneCountInString(*p.Title) > maxTitleLength {
			return fmt.Errorf("content title exceeds maximum length of %d characters", maxTitleLength)
		}
	}
	if p.LikeCount != nil && *p.LikeCount < 0 {
		return fmt.Errorf("like count cannot be negative")
	}
	if p.FavoriteCount != nil && *p.FavoriteCount < 0 {
		return fmt.Errorf("favorite count cannot be negative")
	}
	return nil
}

// ValidateDecision checks the verdict fields of a decision.
func (v *Validator) ValidateDecision(action models.ReviewAction, reason models.RejectReason, note string) error {
	if !action.Valid() {
		return fmt.Errorf("invalid review action: %q", action)
	}
	if reason != "" && !reason.Valid() {
		return fmt.Errorf("invalid reject reason: %q", reason)
	}
	return v.ValidateNote(note)
}

// IsValidID reports whether id is a well-formed identifier.
func (v *Validator) IsValidID(id string) bool {
	return idRegex.MatchString(id)
}
