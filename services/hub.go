package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"chatorder-backend/models"
)

// Client 是连接与 Hub 之间的桥梁
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte // 每个客户端独立的待发送消息队列
}

// Hub 维护管理 App 的连接并广播订单事件
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logrus.Info("📱 管理端已连接")
		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				logrus.Info("👋 管理端已断开")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// 慢客户端直接踢掉
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast 不阻塞调用方，队列满时丢弃并记日志
func (h *Hub) Broadcast(payload models.WSMessage) {
	message, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("❌ 事件序列化失败")
		return
	}
	select {
	case h.broadcast <- message:
	default:
		logrus.WithField("type", payload.Type).Warn("⚠️ 广播队列已满，事件丢弃")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- Client 相关方法 ---

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	// 只用来感知心跳和断开
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) WritePump() {
	defer c.Conn.Close()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
