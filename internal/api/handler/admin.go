package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/service"
)

// AdminHandler 管理端接口，除 Setup 外都挂在 AdminOnly 之后
type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// userIDParam 解析路径中的用户 ID，非法时写出 400
func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "invalid user ID format")
		return 0, false
	}
	return id, true
}

// ListUsers GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q dto.AdminUserQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	resp, err := h.admin.ListUsers(c.Request.Context(), &q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// GetUser GET /api/admin/users/:id
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	resp, err := h.admin.GetUser(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// UpdateUser PUT /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req dto.AdminUpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.admin.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// SetActivation PUT /api/admin/users/:id/activation
func (h *AdminHandler) SetActivation(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req dto.ActivationRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.admin.SetActivation(c.Request.Context(), id, req.Activate)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// Stats GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	resp, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// Setup POST /api/admin/setup，仅在还没有管理员时可用
func (h *AdminHandler) Setup(c *gin.Context) {
	var req dto.AdminSetupRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.admin.Setup(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, resp)
}
