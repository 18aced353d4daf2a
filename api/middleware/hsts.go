package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// HSTS 在所有响应上设置 Strict-Transport-Security 头
func HSTS(maxAgeSeconds int) gin.HandlerFunc {
	value := fmt.Sprintf("max-age=%d", maxAgeSeconds)
	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", value)
		c.Next()
	}
}
