package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatorder-backend/config"
	"chatorder-backend/utils"
)

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AuthMiddleware("secret"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("current_owner"))
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	good, err := utils.GenerateToken("5491100000000", config.AuthConfig{JWTSecret: "secret", TokenExpireHours: 1})
	require.NoError(t, err)
	w := call("Bearer " + good)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5491100000000", w.Body.String())

	other, _ := utils.GenerateToken("x", config.AuthConfig{JWTSecret: "other", TokenExpireHours: 1})
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+other).Code)
	assert.Equal(t, http.StatusUnauthorized, call(good).Code)
	assert.Equal(t, http.StatusUnauthorized, call("").Code)

	// 签名正确但不是店主角色
	claims := &utils.Claims{OwnerID: "x", Role: "viewer"}
	viewer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+viewer).Code)
}
