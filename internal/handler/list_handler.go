package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/service"
)

// ListHandler serves the publisher blacklist and whitelist under /lists.
type ListHandler struct {
	svc *service.ModerationService
}

// NewListHandler creates a new ListHandler instance.
func NewListHandler(svc *service.ModerationService) *ListHandler {
	return &ListHandler{svc: svc}
}

// ListEntryRequest puts a publisher on a list.
type ListEntryRequest struct {
	Kind models.ListKind `json:"kind" binding:"required"`
	Note *string         `json:"note,omitempty"`
}

// List handles GET /lists.
func (h *ListHandler) List(c *gin.Context) {
	entries, err := h.svc.ListListEntries(c.Request.Context(), models.ListKind(c.Query("kind")))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Get handles GET /lists/:publisher_id.
func (h *ListHandler) Get(c *gin.Context) {
	entry, err := h.svc.GetListEntry(c.Request.Context(), c.Param("publisher_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Upsert handles PUT /lists/:publisher_id.
func (h *ListHandler) Upsert(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req ListEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.svc.UpsertListEntry(c.Request.Context(), c.Param("publisher_id"), req.Kind, a.ActorID(), req.Note)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Remove handles DELETE /lists/:publisher_id.
func (h *ListHandler) Remove(c *gin.Context) {
	if err := h.svc.RemoveListEntry(c.Request.Context(), c.Param("publisher_id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
