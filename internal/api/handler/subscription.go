package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/service"
)

type SubscriptionHandler struct {
	subService *service.SubscriptionService
}

func NewSubscriptionHandler(subService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subService: subService,
	}
}

// ListPlans 套餐列表
// GET /api/subscriptions
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	response.Success(c, h.subService.Plans())
}

// GetSubscription 当前订阅，未订阅时 subscription 为 null
// GET /api/subscription
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	resp, err := h.subService.Detail(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, resp)
}

// Subscribe 订阅或切换套餐
// POST /api/subscribe
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.UnknownTierError(c, "")
		return
	}

	resp, err := h.subService.Subscribe(c.Request.Context(), userID, req.Tier)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, resp)
}
