package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/prodviz_server/internal/pkg/jwt"
	"github.com/qs3c/prodviz_server/internal/pkg/response"
)

// ContextUserID gin 上下文中保存当前用户 ID 的键
const ContextUserID = "entitlement.user_id"

var (
	errMissingCredentials = errors.New("missing authorization header")
	errBearerScheme       = errors.New("authorization header must use the Bearer scheme")
)

// bearerToken 从 Authorization 头取出令牌
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingCredentials
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errBearerScheme
	}
	return strings.TrimSpace(token), nil
}

// Auth 校验 Bearer 令牌，失败统一返回 NotAuthenticated
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var claims *jwt.Claims
			if claims, err = jwt.ParseToken(token, jwtSecret); err == nil {
				c.Set(ContextUserID, claims.UserID)
				c.Next()
				return
			}
		}
		response.AuthError(c, err.Error())
		c.Abort()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
