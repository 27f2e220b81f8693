package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/service"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &service.ValidationError{Message: "bad input"}, http.StatusBadRequest},
		{"not found", fmt.Errorf("get content c1: %w", db.ErrNotFound), http.StatusNotFound},
		{"precondition", fmt.Errorf("assign c1: %w", service.ErrPrecondition), http.StatusConflict},
		{"duplicate key", fmt.Errorf("create content c1: %w", db.ErrDuplicateKey), http.StatusConflict},
		{"foreign key", fmt.Errorf("create record: %w", db.ErrForeignKeyViolation), http.StatusConflict},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/contents/c1", nil)

			handleError(c, tt.err)

			assert.Equal(t, tt.want, w.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, "/api/v1/contents/c1", resp.Path)
		})
	}
}
