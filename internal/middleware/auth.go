package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"sudooom.grimoire/internal/auth"
	"sudooom.grimoire/pkg/response"
)

const (
	ctxUserID      = "user_id"
	ctxDisplayName = "display_name"
)

// JWTAuth JWT 认证中间件
// 浏览器 WebSocket 无法设置请求头，允许通过 token 查询参数传递
func JWTAuth(jwtService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := jwtService.Validate(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				response.Error(c, response.CodeTokenExpired)
			} else {
				response.Error(c, response.CodeTokenInvalid)
			}
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxDisplayName, claims.DisplayName)
		c.Next()
	}
}

// TokenFromRequest 优先取 Authorization header，其次取 token 查询参数
func TokenFromRequest(c *gin.Context) string {
	if token := extractToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	return c.Query("token")
}

// extractToken 从 Authorization header 提取 token
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

// GetUserID 从 context 获取 user_id
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetDisplayName 从 context 获取昵称
func GetDisplayName(c *gin.Context) string {
	return c.GetString(ctxDisplayName)
}
