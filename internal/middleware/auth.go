// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"philo-chat-go/pkg/log"
	"philo-chat-go/pkg/token"
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionIDKey 是会话 ID 在 Gin 上下文中的键。
const SessionIDKey = "sessionID"

// SessionMiddleware 从 Authorization 头中解析会话 token，并把会话 ID 存入上下文。
//
// 它从不中止请求：缺失或无效的 token 等同于未登录，是否允许访问由 service 层判断。
func SessionMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(SessionIDKey, SessionIDFromHeader(jwtManager, c.GetHeader("Authorization")))
		c.Next()
	}
}

// SessionIDFromHeader 解析 "Bearer <token>" 形式的授权头，失败时返回空字符串。
func SessionIDFromHeader(jwtManager *token.JWTManager, authHeader string) string {
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	return SessionIDFromToken(jwtManager, strings.TrimPrefix(authHeader, bearerPrefix))
}

// SessionIDFromToken 验证 token 并返回其中的会话 ID。
func SessionIDFromToken(jwtManager *token.JWTManager, tokenString string) string {
	if tokenString == "" {
		return ""
	}
	claims, err := jwtManager.VerifyToken(tokenString)
	if err != nil {
		log.Debugf("会话 token 无效: %v", err)
		return ""
	}
	return claims.SessionID
}

// SessionID 返回由 SessionMiddleware 注入的会话 ID。
func SessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
