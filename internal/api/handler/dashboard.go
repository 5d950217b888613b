package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/service"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
}

func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// Stats 控制台统计
// GET /api/dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	stats, err := h.dashboardService.Stats(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, stats)
}
