package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/kyosocan/demo-C-platform/internal/metrics"
	"github.com/kyosocan/demo-C-platform/internal/models"
)

func TestRequestLogger_RecordsLatency(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/items/:id", WithActor(models.Admin{ID: "root"}), func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	before := testutil.CollectAndCount(metrics.HTTPRequestDuration)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, before+2, testutil.CollectAndCount(metrics.HTTPRequestDuration),
		"one series per route template and status")
}
