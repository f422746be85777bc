package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatorder-backend/models"
	"chatorder-backend/services"
)

type MessageHandler struct {
	Engine *services.Engine
	token  string // 传输网关的共享 token，为空则不校验
}

func NewMessageHandler(engine *services.Engine, token string) *MessageHandler {
	return &MessageHandler{Engine: engine, token: token}
}

func (h *MessageHandler) authorized(c *gin.Context) bool {
	if h.token == "" {
		return true
	}
	got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

func (h *MessageHandler) bind(c *gin.Context) (models.InboundMessage, bool) {
	var msg models.InboundMessage
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token inválido"})
		return msg, false
	}
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return msg, false
	}
	return msg, true
}

// HandleMessage 同步处理，直接在响应里带回复
func (h *MessageHandler) HandleMessage(c *gin.Context) {
	msg, ok := h.bind(c)
	if !ok {
		return
	}
	reply, err := h.Engine.HandleMessage(c.Request.Context(), msg)
	if err != nil {
		respondError(c, err)
		return
	}
	if reply.Silent {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// EnqueueMessage 入队完成后返回 202，等待和发送在后台进行
func (h *MessageHandler) EnqueueMessage(c *gin.Context) {
	msg, ok := h.bind(c)
	if !ok {
		return
	}
	ctx := context.Background()
	wait := h.Engine.Enqueue(ctx, msg)
	go h.Engine.Deliver(ctx, msg.CustomerID, wait)
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
