package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/review_comments/internal/pkg/jwt"
	"github.com/qs3c/review_comments/internal/pkg/response"
)

const (
	ViewerIDKey = "viewerID"
)

// Auth JWT 认证中间件
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "认证失败或已过期")
			c.Abort()
			return
		}

		c.Set(ViewerIDKey, claims.ViewerID)
		c.Next()
	}
}

// GetViewerID 从上下文获取当前查看者 ID
func GetViewerID(c *gin.Context) (string, bool) {
	viewerID, exists := c.Get(ViewerIDKey)
	if !exists {
		return "", false
	}
	id, ok := viewerID.(string)
	return id, ok && id != ""
}
