package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/service"
)

// QuotaCheck 生成前的快速配额检查。
// 不加锁也不扣减，真正的扣减由 UsageService.TryConsume 完成。
func QuotaCheck(usage *service.UsageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		quota, err := usage.Quota(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrRetryable) {
				response.RetryableError(c, err.Error(), 1)
			} else {
				response.ServerError(c, "")
			}
			c.Abort()
			return
		}

		if !quota.HasSubscription {
			response.NotFoundError(c, service.ErrSubscriptionNotFound.Error())
			c.Abort()
			return
		}

		if quota.RemainingImages <= 0 {
			response.QuotaError(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
