package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/service"
)

// AdminChecker 由 service.AdminService 实现
type AdminChecker interface {
	RequireAdmin(ctx context.Context, userID int64) error
}

// AdminOnly 须挂在 Auth 之后，非管理员返回 403
func AdminOnly(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		if err := admins.RequireAdmin(c.Request.Context(), userID); err != nil {
			if errors.Is(err, service.ErrAdminRequired) {
				response.ForbiddenError(c, err.Error())
			} else {
				_ = c.Error(err)
				response.ServerError(c, "")
			}
			c.Abort()
			return
		}
		c.Next()
	}
}
