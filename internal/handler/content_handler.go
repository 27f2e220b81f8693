package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/internal/service"
)

// ContentHandler serves /contents.
type ContentHandler struct {
	svc *service.ModerationService
}

// NewContentHandler creates a new ContentHandler instance.
func NewContentHandler(svc *service.ModerationService) *ContentHandler {
	return &ContentHandler{svc: svc}
}

// AssignRequest names the reviewer for a manual assignment.
type AssignRequest struct {
	ReviewerID string `json:"reviewer_id" binding:"required"`
}

func parseContentFilter(c *gin.Context) (repository.ContentFilter, error) {
	filter := repository.ContentFilter{
		Source:             models.ContentSource(c.Query("source")),
		AssignedReviewerID: c.Query("reviewer"),
		PublisherID:        c.Query("publisher"),
		Search:             strings.TrimSpace(c.Query("q")),
		Limit:              parseLimit(c),
		Offset:             parseOffset(c),
	}
	if filter.Source != "" && !filter.Source.Valid() {
		return filter, &service.ValidationError{Message: "unknown source: " + string(filter.Source)}
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := models.ContentStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return filter, &service.ValidationError{Message: "unknown status: " + string(status)}
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	switch c.DefaultQuery("order", "asc") {
	case "asc":
		filter.Order = repository.OrderCreatedAsc
	case "desc":
		filter.Order = repository.OrderCreatedDesc
	case "assigned":
		filter.Order = repository.OrderAssignedAsc
	default:
		return filter, &service.ValidationError{Message: "order must be asc, desc or assigned"}
	}
	return filter, nil
}

// List handles GET /contents.
func (h *ContentHandler) List(c *gin.Context) {
	filter, err := parseContentFilter(c)
	if err != nil {
		handleError(c, err)
		return
	}
	items, total, err := h.svc.ListContents(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Items:  items,
		Count:  len(items),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// ListPending handles GET /contents/pending.
func (h *ContentHandler) ListPending(c *gin.Context) {
	filter, err := parseContentFilter(c)
	if err != nil {
		handleError(c, err)
		return
	}
	entries, err := h.svc.ListPending(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Ingest handles POST /contents.
func (h *ContentHandler) Ingest(c *gin.Context) {
	var req models.NewContent
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.svc.IngestContent(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Get handles GET /contents/:id.
func (h *ContentHandler) Get(c *gin.Context) {
	item, err := h.svc.GetContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Update handles PATCH /contents/:id.
func (h *ContentHandler) Update(c *gin.Context) {
	var patch models.ContentPatch
	if !bindJSON(c, &patch) {
		return
	}
	item, err := h.svc.UpdateContent(c.Request.Context(), c.Param("id"), &patch)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Assign handles POST /contents/:id/assign.
func (h *ContentHandler) Assign(c *gin.Context) {
	var req AssignRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.svc.Assign(c.Request.Context(), c.Param("id"), req.ReviewerID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Unassign handles POST /contents/:id/unassign.
func (h *ContentHandler) Unassign(c *gin.Context) {
	item, err := h.svc.Unassign(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Decide handles POST /contents/:id/decision. Only the reviewer holding the
// item may decide it.
func (h *ContentHandler) Decide(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	rv, isReviewer := a.(models.ReviewerActor)
	if !isReviewer {
		errorResponse(c, http.StatusForbidden, "only reviewers record decisions")
		return
	}

	var d service.Decision
	if !bindJSON(c, &d) {
		return
	}
	d.ContentID = c.Param("id")
	d.ReviewerID = rv.ID

	record, err := h.svc.Decide(c.Request.Context(), d)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}
