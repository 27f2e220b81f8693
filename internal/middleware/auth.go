// Package middleware provides gin middleware for authentication and request logging.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

const (
	headerAPIKey      = "X-API-Key"
	headerAuth        = "Authorization"
	headerActorID     = "X-Actor-ID"
	headerReviewerID  = "X-Reviewer-ID"
	bearerPrefix      = "Bearer "
	unauthorizedError = "Unauthorized"
	forbiddenError    = "Forbidden"

	actorContextKey = "moderation.actor"
	defaultAdminID  = "admin"
)

// APIKeyAuth authenticates requests by API key and resolves the calling actor.
// Admin keys yield models.Admin; reviewer keys yield models.ReviewerActor and
// require the X-Reviewer-ID header.
type APIKeyAuth struct {
	adminKeys    map[string]bool
	reviewerKeys map[string]bool
	log          *zap.Logger
}

// NewAPIKeyAuth creates the middleware. Empty keys are ignored, and with no
// keys configured every request is rejected.
func NewAPIKeyAuth(adminKeys, reviewerKeys []string) *APIKeyAuth {
	return &APIKeyAuth{
		adminKeys:    keySet(adminKeys),
		reviewerKeys: keySet(reviewerKeys),
		log:          logger.Named("auth"),
	}
}

func keySet(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			m[key] = true
		}
	}
	return m
}

// Middleware returns the gin handler that authenticates the request.
// The API key is read from X-API-Key first, then from Authorization: Bearer.
func (a *APIKeyAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := extractAPIKey(c.Request)

		var actor models.Actor
		switch {
		case matchKey(apiKey, a.adminKeys):
			id := strings.TrimSpace(c.GetHeader(headerActorID))
			if id == "" {
				id = defaultAdminID
			}
			actor = models.Admin{ID: id}
		case matchKey(apiKey, a.reviewerKeys):
			id := strings.TrimSpace(c.GetHeader(headerReviewerID))
			if id == "" {
				abortJSON(c, http.StatusUnauthorized, unauthorizedError, "reviewer requests must set "+headerReviewerID)
				return
			}
			actor = models.ReviewerActor{ID: id}
		default:
			a.log.Warn("Unauthorized request - invalid or missing API key",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("remoteAddr", c.ClientIP()),
			)
			abortJSON(c, http.StatusUnauthorized, unauthorizedError, "invalid or missing API key")
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// RequireAdmin rejects requests whose actor is not an admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, unauthorizedError, "no authenticated actor")
			return
		}
		if _, isAdmin := actor.(models.Admin); !isAdmin {
			abortJSON(c, http.StatusForbidden, forbiddenError, "admin role required")
			return
		}
		c.Next()
	}
}

// ActorFromContext returns the actor set by APIKeyAuth.
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return nil, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// WithActor stores actor on the context. It lets tests and trusted callers
// bypass key authentication.
func WithActor(actor models.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

func extractAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get(headerAPIKey); apiKey != "" {
		return apiKey
	}

	authHeader := r.Header.Get(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}

	return ""
}

// matchKey compares in constant time against every configured key.
func matchKey(provided string, keys map[string]bool) bool {
	if provided == "" {
		return false
	}
	matched := false
	for valid := range keys {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(valid)) == 1 {
			matched = true
		}
	}
	return matched
}

func abortJSON(c *gin.Context, status int, title, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Status:    status,
		Error:     title,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}
