package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/prodviz_server/internal/pkg/pubsub"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message 推送给前端的消息
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub 按用户维护连接，同一用户的多个标签页都会收到推送
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	log     logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		log:     log,
	}
}

// Client 单个 websocket 连接，写操作只在 writePump 中进行
type Client struct {
	hub    *Hub
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

func NewClient(hub *Hub, userID int64, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

// Serve 注册连接并阻塞到连接断开
func (c *Client) Serve() {
	c.hub.Register(c)
	go c.writePump()
	c.readPump()
}

// readPump 客户端不发业务消息，读循环只用来处理 pong 和感知断开
func (c *Client) readPump() {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.hub.log.WithError(err).WithField("user_id", c.userID).Warn("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.clients[c.userID]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.clients[c.userID] = conns
	}
	conns[c] = struct{}{}

	h.log.WithFields(logrus.Fields{
		"user_id":    c.userID,
		"user_conns": len(conns),
	}).Debug("websocket connected")
}

// Unregister 移除连接并关闭发送队列，可重复调用
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.log.WithField("user_id", c.userID).Debug("websocket disconnected")
}

// Broadcast 把消息放入该用户所有连接的发送队列，返回成功入队的连接数
// 队列已满的连接视为卡死，直接断开
func (h *Hub) Broadcast(userID int64, payload []byte) int {
	var delivered int
	var stalled []*Client

	h.mu.RLock()
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
			delivered++
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		h.log.WithField("user_id", userID).Warn("websocket send queue full, dropping connection")
		h.Unregister(c)
	}
	return delivered
}

// Dispatch 把用量事件推给对应用户，作为 pubsub 的处理函数
func (h *Hub) Dispatch(event *pubsub.UsageEvent) {
	payload, err := json.Marshal(&Message{Type: event.Type, Data: event})
	if err != nil {
		h.log.WithError(err).Warn("encode usage event")
		return
	}
	h.Broadcast(event.UserID, payload)
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
