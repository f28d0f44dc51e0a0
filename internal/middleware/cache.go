package middleware

import "github.com/gin-gonic/gin"

// NoStore sets strict no-cache headers on every response. Session screens and
// reports carry personal data and must never be served from a cache.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
