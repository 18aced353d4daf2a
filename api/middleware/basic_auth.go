package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/story-overlay/config"
)

// BasicAuth 管理端 HTTP Basic 认证。
// 凭据来自配置；密码未配置时拒绝一切请求，避免空密码放行。
func BasicAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := config.Get()
		username, password, ok := c.Request.BasicAuth()
		if !ok || cfg.AdminPassword == "" || !credentialsMatch(username, password, cfg.AdminUsername, cfg.AdminPassword) {
			c.Header("WWW-Authenticate", `Basic realm="admin", charset="UTF-8"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// credentialsMatch 常数时间比较，两项都比完再判定
func credentialsMatch(username, password, wantUsername, wantPassword string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(wantUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(wantPassword)) == 1
	return userOK && passOK
}
