package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chatorder-backend/config"
)

const RoleOwner = "owner"

type Claims struct {
	OwnerID string `json:"owner_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken 给店主签发管理 API 的 token
func GenerateToken(ownerID string, cfg config.AuthConfig) (string, error) {
	if cfg.JWTSecret == "" {
		return "", errors.New("jwt secret 未配置")
	}
	now := time.Now()
	expirationTime := now.Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := &Claims{
		OwnerID: ownerID,
		Role:    RoleOwner,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken 校验签名、算法和有效期
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("无效的Token")
	}
	return claims, nil
}
