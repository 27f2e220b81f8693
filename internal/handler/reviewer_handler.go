package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/internal/service"
)

// ReviewerHandler serves /reviewers.
type ReviewerHandler struct {
	svc *service.ModerationService
}

// NewReviewerHandler creates a new ReviewerHandler instance.
func NewReviewerHandler(svc *service.ModerationService) *ReviewerHandler {
	return &ReviewerHandler{svc: svc}
}

// StatusRequest sets a reviewer's presence.
type StatusRequest struct {
	Status models.ReviewerStatus `json:"status" binding:"required"`
}

// CapacityRequest sets a reviewer's queue ceiling.
type CapacityRequest struct {
	QueueCapacity int `json:"queue_capacity" binding:"required"`
}

// List handles GET /reviewers.
func (h *ReviewerHandler) List(c *gin.Context) {
	filter := repository.ReviewerFilter{
		Status: models.ReviewerStatus(c.Query("status")),
		Search: strings.TrimSpace(c.Query("q")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		handleError(c, &service.ValidationError{Message: "unknown reviewer status: " + string(filter.Status)})
		return
	}
	reviewers, err := h.svc.ListReviewers(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviewers)
}

// Create handles POST /reviewers.
func (h *ReviewerHandler) Create(c *gin.Context) {
	var req service.NewReviewer
	if !bindJSON(c, &req) {
		return
	}
	reviewer, err := h.svc.CreateReviewer(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reviewer)
}

// Get handles GET /reviewers/:id.
func (h *ReviewerHandler) Get(c *gin.Context) {
	reviewer, err := h.svc.GetReviewer(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviewer)
}

// SetStatus handles PUT /reviewers/:id/status.
func (h *ReviewerHandler) SetStatus(c *gin.Context) {
	id := c.Param("id")
	if !authorizeReviewer(c, id) {
		return
	}
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	reviewer, err := h.svc.SetReviewerStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviewer)
}

// SetCapacity handles PUT /reviewers/:id/capacity.
func (h *ReviewerHandler) SetCapacity(c *gin.Context) {
	id := c.Param("id")
	if !authorizeReviewer(c, id) {
		return
	}
	var req CapacityRequest
	if !bindJSON(c, &req) {
		return
	}
	reviewer, err := h.svc.SetCapacity(c.Request.Context(), id, req.QueueCapacity)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviewer)
}

// Recall handles POST /reviewers/:id/recall.
func (h *ReviewerHandler) Recall(c *gin.Context) {
	released, err := h.svc.Recall(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	if released == nil {
		released = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"released": released, "count": len(released)})
}

// Fill handles POST /reviewers/:id/fill.
func (h *ReviewerHandler) Fill(c *gin.Context) {
	id := c.Param("id")
	if !authorizeReviewer(c, id) {
		return
	}
	assigned, err := h.svc.Fill(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if assigned == nil {
		assigned = []*models.ContentItem{}
	}
	c.JSON(http.StatusOK, gin.H{"assigned": assigned, "count": len(assigned)})
}

// Queue handles GET /reviewers/:id/queue.
func (h *ReviewerHandler) Queue(c *gin.Context) {
	id := c.Param("id")
	if !authorizeReviewer(c, id) {
		return
	}
	entries, err := h.svc.Queue(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Delete handles DELETE /reviewers/:id.
func (h *ReviewerHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteReviewer(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
