package config

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func PerformanceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		log.Printf("[PERF] %s %s | Status: %d | Time: %v",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			latency)

		// SSE streams stay open for the life of the client; their latency is
		// not a slowness signal.
		if strings.HasSuffix(c.Request.URL.Path, "/stream") {
			return
		}

		if latency > 200*time.Millisecond {
			log.Printf("🐌 SLOW REQUEST: %s %s took %v",
				c.Request.Method, c.Request.URL.Path, latency)
		}
	}
}
