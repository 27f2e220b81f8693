package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kyosocan/demo-C-platform/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestValidator_ValidateCapacity(t *testing.T) {
	v := New(50)

	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{"minimum", 1, false},
		{"maximum", 50, false},
		{"zero", 0, true},
		{"negative", -3, true},
		{"above maximum", 51, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCapacity(tt.capacity)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_ValidateReviewer(t *testing.T) {
	v := New(50)

	tests := []struct {
		name     string
		username string
		display  string
		capacity int
		wantErr  string
	}{
		{"valid", "alice.w", "Alice", 5, ""},
		{"short username", "al", "Alice", 5, "invalid username"},
		{"username with spaces", "alice w", "Alice", 5, "invalid username"},
		{"blank name", "alice", "   ", 5, "name is required"},
		{"long name", "alice", strings.Repeat("a", 65), 5, "maximum length"},
		{"bad capacity", "alice", "Alice", 0, "between 1 and 50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateReviewer(tt.username, tt.display, tt.capacity)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidator_ValidateContent(t *testing.T) {
	v := New(50)
	future := time.Now().Add(time.Hour)

	valid := func() *models.NewContent {
		return &models.NewContent{
			Title:     "Weekend hike photos",
			Publisher: models.Publisher{ID: "user_42", Nickname: "hiker"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*models.NewContent)
		wantErr string
	}{
		{"valid", func(*models.NewContent) {}, ""},
		{"explicit id", func(c *models.NewContent) { c.ID = "post-1" }, ""},
		{"bad id", func(c *models.NewContent) { c.ID = "post 1" }, "invalid content id"},
		{"missing title", func(c *models.NewContent) { c.Title = "" }, "title is required"},
		{"long title", func(c *models.NewContent) { c.Title = strings.Repeat("x", 256) }, "maximum length"},
		{"missing publisher", func(c *models.NewContent) { c.Publisher.ID = "" }, "invalid publisher id"},
		{"unknown source", func(c *models.NewContent) { c.Source = "viral" }, "invalid content source"},
		{"reported without info", func(c *models.NewContent) { c.Source = models.ContentSourceReported }, "requires report info"},
		{"bad report type", func(c *models.NewContent) {
			c.Source = models.ContentSourceReported
			c.ReportInfo = &models.ReportInfo{ReportType: "rude"}
		}, "invalid report type"},
		{"reported with info", func(c *models.NewContent) {
			c.Source = models.ContentSourceReported
			c.ReportInfo = &models.ReportInfo{ReportType: models.ReportTypeCopyright, ReporterID: "u1"}
		}, ""},
		{"future creation", func(c *models.NewContent) { c.CreatedAt = &future }, "in the future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := v.ValidateContent(c)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidator_ValidatePatch(t *testing.T) {
	v := New(50)

	tests := []struct {
		name    string
		patch   models.ContentPatch
		wantErr bool
	}{
		{"empty", models.ContentPatch{}, true},
		{"title", models.ContentPatch{Title: strPtr("new")}, false},
		{"blank title", models.ContentPatch{Title: strPtr(" ")}, true},
		{"likes", models.ContentPatch{LikeCount: intPtr(3)}, false},
		{"negative likes", models.ContentPatch{LikeCount: intPtr(-1)}, true},
		{"negative favorites", models.ContentPatch{FavoriteCount: intPtr(-1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePatch(&tt.patch)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_ValidateDecision(t *testing.T) {
	v := New(50)

	assert.NoError(t, v.ValidateDecision(models.ReviewActionApproved, "", ""))
	assert.NoError(t, v.ValidateDecision(models.ReviewActionRejected, models.RejectReasonSpam, "ads"))
	assert.NoError(t, v.ValidateDecision(models.ReviewActionRejected, "", ""))
	assert.Error(t, v.ValidateDecision("maybe", "", ""))
	assert.Error(t, v.ValidateDecision(models.ReviewActionRejected, "boring", ""))
	assert.Error(t, v.ValidateDecision(models.ReviewActionRejected, models.RejectReasonOther, strings.Repeat("n", 1001)))
}

func TestValidator_IsValidID(t *testing.T) {
	v := New(50)
	assert.True(t, v.IsValidID("0b6f2c1e-7d4a-4b8e-9c3f-2a1d5e6f7a8b"))
	assert.True(t, v.IsValidID("rev_01"))
	assert.False(t, v.IsValidID(""))
	assert.False(t, v.IsValidID("has space"))
	assert.False(t, v.IsValidID(strings.Repeat("a", 65)))
}
