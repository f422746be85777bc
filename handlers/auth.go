package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"chatorder-backend/config"
	"chatorder-backend/utils"
)

type AuthHandler struct {
	cfg     config.AuthConfig
	ownerID string
}

func NewAuthHandler(cfg config.AuthConfig, ownerID string) *AuthHandler {
	return &AuthHandler{cfg: cfg, ownerID: ownerID}
}

type tokenReq struct {
	APIKey string `json:"api_key" binding:"required"`
}

func (h *AuthHandler) checkKey(key string) bool {
	if h.cfg.OwnerAPIKeyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(h.cfg.OwnerAPIKeyHash), []byte(key)) == nil
	}
	if h.cfg.OwnerAPIKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(h.cfg.OwnerAPIKey), []byte(key)) == 1
}

// Token 用店主 API key 换管理 token
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "falta api_key"})
		return
	}
	if !h.checkKey(req.APIKey) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "api key inválida"})
		return
	}

	token, err := utils.GenerateToken(h.ownerID, h.cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"owner_id":   h.ownerID,
		"expires_in": h.cfg.TokenExpireHours * 3600,
	})
}
