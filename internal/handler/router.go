package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kyosocan/demo-C-platform/internal/metrics"
	"github.com/kyosocan/demo-C-platform/internal/middleware"
	"github.com/kyosocan/demo-C-platform/internal/service"
)

// RouterConfig collects what the router needs.
type RouterConfig struct {
	Service *service.ModerationService
	Health  *HealthHandler
	// Auth authenticates /api/v1. It must resolve an actor on the gin context.
	Auth gin.HandlerFunc
}

// NewRouter builds the gin engine with every route of the moderation API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.GET("/health/live", cfg.Health.LivenessProbe)
	r.GET("/health/ready", cfg.Health.ReadinessProbe)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	contents := NewContentHandler(cfg.Service)
	reviewers := NewReviewerHandler(cfg.Service)
	records := NewRecordHandler(cfg.Service)
	lists := NewListHandler(cfg.Service)
	stats := NewStatsHandler(cfg.Service)
	admin := middleware.RequireAdmin()

	api := r.Group("/api/v1", cfg.Auth)

	api.GET("/contents", admin, contents.List)
	api.GET("/contents/pending", contents.ListPending)
	api.POST("/contents", admin, contents.Ingest)
	api.GET("/contents/:id", contents.Get)
	api.PATCH("/contents/:id", admin, contents.Update)
	api.POST("/contents/:id/assign", admin, contents.Assign)
	api.POST("/contents/:id/unassign", admin, contents.Unassign)
	api.POST("/contents/:id/decision", contents.Decide)

	api.GET("/reviewers", admin, reviewers.List)
	api.POST("/reviewers", admin, reviewers.Create)
	api.GET("/reviewers/:id", reviewers.Get)
	api.PUT("/reviewers/:id/status", reviewers.SetStatus)
	api.PUT("/reviewers/:id/capacity", reviewers.SetCapacity)
	api.POST("/reviewers/:id/recall", admin, reviewers.Recall)
	api.POST("/reviewers/:id/fill", reviewers.Fill)
	api.GET("/reviewers/:id/queue", reviewers.Queue)
	api.DELETE("/reviewers/:id", admin, reviewers.Delete)

	api.GET("/records", records.List)
	api.GET("/records/:id", records.Get)
	api.POST("/records/:id/overturn", admin, records.Overturn)
	api.POST("/records/:id/restore", admin, records.Restore)
	api.POST("/records/:id/rereview", admin, records.ReReview)

	api.GET("/lists", admin, lists.List)
	api.GET("/lists/:publisher_id", lists.Get)
	api.PUT("/lists/:publisher_id", admin, lists.Upsert)
	api.DELETE("/lists/:publisher_id", admin, lists.Remove)

	api.GET("/stats/system", admin, stats.System)
	api.GET("/stats/reviewers", admin, stats.Leaderboard)
	api.GET("/stats/reviewers/:id", stats.Reviewer)

	return r
}
