package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/service"
)

// AccountHandler 当前用户的资料与额度
type AccountHandler struct {
	users *service.UserService
	usage *service.UsageService
}

func NewAccountHandler(users *service.UserService, usage *service.UsageService) *AccountHandler {
	return &AccountHandler{users: users, usage: usage}
}

// Quota GET /api/quota
func (h *AccountHandler) Quota(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	info, err := h.usage.Quota(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, info)
}

// Profile GET /api/user/profile
func (h *AccountHandler) Profile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	info, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, info)
}

// UpdateProfile PUT /api/user/profile，未提供的字段保持不变
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	info, err := h.users.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, info)
}
