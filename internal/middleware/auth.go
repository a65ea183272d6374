package middleware

import (
	"strings"

	"socialhub_backend/internal/config"
	"socialhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 只解析外部身份服务签发的令牌，不负责签发
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		// WebSocket 握手没法带 Header，退回 query 参数
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		cfg := c.MustGet("config").(*config.Config)
		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// UserActivityRecorder 活跃时间回写，解耦对 service 包的依赖
type UserActivityRecorder interface {
	TouchLastSeen(userID uint) error
}

// ActivityMiddleware 请求后异步刷新 last_seen
func ActivityMiddleware(recorder UserActivityRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		user := util.GetUserFromContext(c)
		if user == nil || recorder == nil {
			return
		}
		go recorder.TouchLastSeen(user.UserID)
	}
}
