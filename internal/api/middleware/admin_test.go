package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/service"
)

// adminsFunc 把函数适配为 AdminChecker
type adminsFunc func(ctx context.Context, userID int64) error

func (f adminsFunc) RequireAdmin(ctx context.Context, userID int64) error {
	return f(ctx, userID)
}

func adminRouter(userID int64) *gin.Engine {
	checker := adminsFunc(func(_ context.Context, id int64) error {
		switch id {
		case 1:
			return nil
		case 3:
			return errors.New("database is gone")
		default:
			return service.ErrAdminRequired
		}
	})

	router := gin.New()
	if userID != 0 {
		router.Use(func(c *gin.Context) {
			c.Set(ContextUserID, userID)
			c.Next()
		})
	}
	router.Use(AdminOnly(checker))
	router.GET("/admin/stats", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestAdminOnly(t *testing.T) {
	tests := []struct {
		name   string
		userID int64
		status int
		code   int
	}{
		{"admin", 1, http.StatusOK, 0},
		{"regular user", 2, http.StatusForbidden, response.CodeForbidden},
		{"lookup failed", 3, http.StatusInternalServerError, response.CodeServerError},
		{"not logged in", 0, http.StatusUnauthorized, response.CodeAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin/stats", nil)
			w := httptest.NewRecorder()
			adminRouter(tt.userID).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != 0 {
				assert.Equal(t, tt.code, parseError(t, w).Code)
			}
		})
	}
}
