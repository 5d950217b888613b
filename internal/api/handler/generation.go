package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/service"
)

type GenerationHandler struct {
	genService *service.GenerationService
}

func NewGenerationHandler(genService *service.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		genService: genService,
	}
}

// Scenes 场景模板
// GET /api/scenes
func (h *GenerationHandler) Scenes(c *gin.Context) {
	response.Success(c, dto.ScenesResponse{Scenes: h.genService.Scenes()})
}

// Generate 生成场景图，扣减一次额度
// POST /api/generate
func (h *GenerationHandler) Generate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.GenerateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.genService.Generate(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, resp)
}

// List 生成历史
// GET /api/generations
func (h *GenerationHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	resp, err := h.genService.History(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, resp)
}

// Get 单条生成记录
// GET /api/generations/:id
func (h *GenerationHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	item, err := h.genService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, item)
}

// Delete 删除一条生成记录，已用额度不退还
// DELETE /api/generations/:id
func (h *GenerationHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.genService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.MessageResponse{Message: "Generated image deleted successfully"})
}
