package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatorder-backend/utils"
)

// AuthMiddleware 只放行店主 token
func AuthMiddleware(jwtKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no autenticado"})
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(authHeader, "Bearer "), jwtKey)
		if err != nil || claims.Role != utils.RoleOwner {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token inválido"})
			return
		}

		c.Set("current_owner", claims.OwnerID)
		c.Next()
	}
}
