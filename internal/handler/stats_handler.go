package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kyosocan/demo-C-platform/internal/service"
)

// StatsHandler serves /stats.
type StatsHandler struct {
	svc *service.ModerationService
}

// NewStatsHandler creates a new StatsHandler instance.
func NewStatsHandler(svc *service.ModerationService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// System handles GET /stats/system.
func (h *StatsHandler) System(c *gin.Context) {
	window, err := parseWindow(c, h.svc)
	if err != nil {
		handleError(c, err)
		return
	}
	stats, err := h.svc.SystemStats(c.Request.Context(), window)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Leaderboard handles GET /stats/reviewers.
func (h *StatsHandler) Leaderboard(c *gin.Context) {
	window, err := parseWindow(c, h.svc)
	if err != nil {
		handleError(c, err)
		return
	}
	board, err := h.svc.Leaderboard(c.Request.Context(), window)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// Reviewer handles GET /stats/reviewers/:id.
func (h *StatsHandler) Reviewer(c *gin.Context) {
	id := c.Param("id")
	if !authorizeReviewer(c, id) {
		return
	}
	window, err := parseWindow(c, h.svc)
	if err != nil {
		handleError(c, err)
		return
	}
	stats, err := h.svc.ReviewerStats(c.Request.Context(), id, window)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
