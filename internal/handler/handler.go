// Package handler provides the gin HTTP handlers for the moderation API.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/middleware"
	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/service"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// PaginatedResponse wraps a page of results with its paging metadata.
type PaginatedResponse struct {
	Items  interface{} `json:"items"`
	Count  int         `json:"count"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func errorResponse(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

// handleError maps service and storage errors onto HTTP responses.
func handleError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.Log.Warn("Validation error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		errorResponse(c, http.StatusBadRequest, validationErr.Message)
	case db.IsNotFound(err):
		logger.Log.Debug("Resource not found",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		errorResponse(c, http.StatusNotFound, err.Error())
	case service.IsPrecondition(err), db.IsDuplicateKey(err), db.IsForeignKeyViolation(err):
		logger.Log.Info("Request conflicts with current state",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		errorResponse(c, http.StatusConflict, err.Error())
	default:
		logger.Log.Error("Unexpected error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		errorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Log.Warn("Invalid request payload",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		errorResponse(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// actor returns the authenticated actor or aborts with 401.
func actor(c *gin.Context) (models.Actor, bool) {
	a, ok := middleware.ActorFromContext(c)
	if !ok {
		errorResponse(c, http.StatusUnauthorized, "no authenticated actor")
		return nil, false
	}
	return a, true
}

// authorizeReviewer allows admins and the reviewer identified by reviewerID.
func authorizeReviewer(c *gin.Context, reviewerID string) bool {
	a, ok := actor(c)
	if !ok {
		return false
	}
	switch a := a.(type) {
	case models.Admin:
		return true
	case models.ReviewerActor:
		if a.ID == reviewerID {
			return true
		}
	}
	errorResponse(c, http.StatusForbidden, "reviewers may only act on their own queue")
	return false
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func parseOffset(c *gin.Context) int {
	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

func parseBool(c *gin.Context, key string) (*bool, error) {
	val := c.Query(key)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, fmt.Errorf("invalid boolean value for %s", key)
	}
	return &b, nil
}

func parseTimestamp(c *gin.Context, key string) (*time.Time, error) {
	val := c.Query(key)
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp format for %s (expected RFC3339)", key)
	}
	t = t.UTC()
	return &t, nil
}

// parseWindow reads range, from and to. Explicit bounds override the preset.
func parseWindow(c *gin.Context, svc *service.ModerationService) (models.StatsWindow, error) {
	window, err := svc.Window(c.Query("range"))
	if err != nil {
		return window, err
	}
	from, err := parseTimestamp(c, "from")
	if err != nil {
		return window, &service.ValidationError{Message: err.Error()}
	}
	to, err := parseTimestamp(c, "to")
	if err != nil {
		return window, &service.ValidationError{Message: err.Error()}
	}
	if from != nil {
		window.From = from
	}
	if to != nil {
		window.To = to
	}
	if window.From != nil && window.To != nil && !window.From.Before(*window.To) {
		return window, &service.ValidationError{Message: "from must be before to"}
	}
	return window, nil
}
