package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/internal/service"
)

// RecordHandler serves /records.
type RecordHandler struct {
	svc *service.ModerationService
}

// NewRecordHandler creates a new RecordHandler instance.
func NewRecordHandler(svc *service.ModerationService) *RecordHandler {
	return &RecordHandler{svc: svc}
}

// OverturnRequest carries the admin's note for an overturn.
type OverturnRequest struct {
	Note string `json:"note"`
}

// List handles GET /records. Reviewers only ever see their own records.
func (h *RecordHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	overturned, err := parseBool(c, "overturned")
	if err != nil {
		handleError(c, &service.ValidationError{Message: err.Error()})
		return
	}
	window, err := parseWindow(c, h.svc)
	if err != nil {
		handleError(c, err)
		return
	}
	filter := repository.RecordFilter{
		ReviewerID: c.Query("reviewer"),
		ContentID:  c.Query("content"),
		Action:     models.ReviewAction(c.Query("action")),
		Overturned: overturned,
		Search:     strings.TrimSpace(c.Query("q")),
		Window:     window,
		Limit:      parseLimit(c),
		Offset:     parseOffset(c),
	}
	if filter.Action != "" && !filter.Action.Valid() {
		handleError(c, &service.ValidationError{Message: "unknown action: " + string(filter.Action)})
		return
	}
	if rv, isReviewer := a.(models.ReviewerActor); isReviewer {
		filter.ReviewerID = rv.ID
	}

	records, total, err := h.svc.ListRecords(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Items:  records,
		Count:  len(records),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Get handles GET /records/:id.
func (h *RecordHandler) Get(c *gin.Context) {
	record, err := h.svc.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Overturn handles POST /records/:id/overturn.
func (h *RecordHandler) Overturn(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req OverturnRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	record, content, err := h.svc.Overturn(c.Request.Context(), c.Param("id"), a.ActorID(), req.Note)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record, "content": content})
}

// Restore handles POST /records/:id/restore.
func (h *RecordHandler) Restore(c *gin.Context) {
	record, content, err := h.svc.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record, "content": content})
}

// ReReview handles POST /records/:id/rereview.
func (h *RecordHandler) ReReview(c *gin.Context) {
	content, err := h.svc.RequestReReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}
