package middleware

import (
	"strings"

	"mfs_backend/internal/auth"
	"mfs_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// Ключи gin-контекста, которые заполняет AuthMiddleware
const (
	ContextUserIDKey = "userID"
	ContextClaimsKey = "claims"
)

// AuthMiddleware проверяет Bearer access-токен и кладет claims в
// контекст. Без валидного токена запрос дальше не проходит.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := ExtractBearerToken(c)
		if !ok {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization token required"))
			c.Abort()
			return
		}

		claims, err := auth.ParseAccessToken(tokenString, jwtSecret)
		if err != nil {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.ID)
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// ExtractBearerToken достает токен из заголовка Authorization.
// Схема "Bearer" сравнивается без учета регистра.
func ExtractBearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
