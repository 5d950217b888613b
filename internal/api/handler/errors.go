package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/prodviz_server/internal/api/middleware"
	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/service"
)

// retryAfterSeconds 锁竞争时建议客户端等待的秒数
const retryAfterSeconds = 1

// handleError 按错误类别写出响应，未识别的错误记录到 gin 上下文由请求日志输出
func handleError(c *gin.Context, err error) {
	switch service.KindOf(err) {
	case service.KindUnknownTier:
		response.UnknownTierError(c, err.Error())
	case service.KindNotAuthenticated:
		response.AuthError(c, err.Error())
	case service.KindForbidden:
		response.ForbiddenError(c, err.Error())
	case service.KindQuotaExceeded:
		response.QuotaError(c, err.Error())
	case service.KindRetryable:
		response.RetryableError(c, err.Error(), retryAfterSeconds)
	case service.KindNotFound:
		response.NotFoundError(c, err.Error())
	case service.KindInvalidRequest:
		response.ParamError(c, err.Error())
	case service.KindDuplicate:
		response.DuplicateError(c, err.Error())
	default:
		_ = c.Error(err)
		response.ServerError(c, "")
	}
}

// requireUser 取当前用户，未登录时写出 401
func requireUser(c *gin.Context) (int64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
	}
	return userID, ok
}

// bindJSON 绑定请求体，校验失败时写出 400
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ParamError(c, err.Error())
		return false
	}
	return true
}
