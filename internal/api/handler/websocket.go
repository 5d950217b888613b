package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/prodviz_server/internal/api/middleware"
	"github.com/qs3c/prodviz_server/internal/pkg/jwt"
	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/pkg/ws"
)

type WebSocketHandler struct {
	hub       *ws.Hub
	jwtSecret string
	upgrader  websocket.Upgrader
	log       logrus.FieldLogger
}

// NewWebSocketHandler allowedOrigins 为空或含 "*" 时不校验 Origin
func NewWebSocketHandler(hub *ws.Hub, jwtSecret string, allowedOrigins []string, log logrus.FieldLogger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	policy := middleware.NewOriginPolicy(allowed)
	return func(r *http.Request) bool {
		// 非浏览器客户端不带 Origin
		origin := r.Header.Get("Origin")
		return origin == "" || len(allowed) == 0 || policy.Allows(origin)
	}
}

// Handle WebSocket 连接处理，推送额度变化
// GET /api/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	// 浏览器 WebSocket 无法设置 Authorization 头，token 走查询参数
	token := c.Query("token")
	if token == "" {
		response.AuthError(c, "missing token")
		return
	}

	claims, err := jwt.ParseToken(token, h.jwtSecret)
	if err != nil {
		response.AuthError(c, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).WithField("user_id", claims.UserID).Warn("websocket upgrade failed")
		return
	}

	// 阻塞到连接断开，写入统一由 client 的 writePump 完成
	ws.NewClient(h.hub, claims.UserID, conn).Serve()
}
