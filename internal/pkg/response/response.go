package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/prodviz_server/internal/service"
)

// 错误码定义
const (
	CodeParamError       = 1000
	CodeAuthFailed       = 1001
	CodeForbidden        = 1002
	CodeResourceNotFound = 1003
	CodeQuotaExceeded    = 1004
	CodeDuplicateAction  = 1005
	CodeUnknownTier      = 1006
	CodeRetryable        = 1007
	CodeServerError      = 5000
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeParamError:       "invalid request",
	CodeAuthFailed:       "authentication required",
	CodeForbidden:        "access denied",
	CodeResourceNotFound: "resource not found",
	CodeQuotaExceeded:    "monthly image limit reached",
	CodeDuplicateAction:  "already exists",
	CodeUnknownTier:      "invalid subscription tier",
	CodeRetryable:        "request conflicted with another in-flight request, retry shortly",
	CodeServerError:      "internal server error",
}

// ErrorBody 错误响应结构，kind 取值与 service.KindOf 一致，调用方据此分支处理
type ErrorBody struct {
	Error string       `json:"error"`
	Code  int          `json:"code"`
	Kind  service.Kind `json:"kind"`
}

// Success 成功响应，直接返回数据本身
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Error 错误响应
func Error(c *gin.Context, status, code int, kind service.Kind, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(status, ErrorBody{
		Error: message,
		Code:  code,
		Kind:  kind,
	})
}

// ParamError 参数错误
func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeParamError, service.KindInvalidRequest, message)
}

// AuthError 认证失败
func AuthError(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeAuthFailed, service.KindNotAuthenticated, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeResourceNotFound, service.KindNotFound, message)
}

// ForbiddenError 已登录但无权访问
func ForbiddenError(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, CodeForbidden, service.KindForbidden, message)
}

// QuotaError 配额不足
func QuotaError(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, CodeQuotaExceeded, service.KindQuotaExceeded, message)
}

// DuplicateError 重复操作
func DuplicateError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeDuplicateAction, service.KindDuplicate, message)
}

// UnknownTierError 套餐不存在
func UnknownTierError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeUnknownTier, service.KindUnknownTier, message)
}

// RetryableError 锁竞争，客户端应退避重试
func RetryableError(c *gin.Context, message string, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	Error(c, http.StatusConflict, CodeRetryable, service.KindRetryable, message)
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeServerError, service.KindInternal, message)
}
