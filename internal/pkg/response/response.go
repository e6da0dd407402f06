package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// All payloads carry a stable "error" marker so the frontend can branch on a
// single field regardless of status code.

func Success(c *gin.Context, payload gin.H) {
	body := gin.H{"error": false}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": true, "message": message})
}

// RateLimited additionally surfaces the upstream retry-delay hint so clients
// can implement a backoff countdown.
func RateLimited(c *gin.Context, message, retryAfter string) {
	body := gin.H{"error": true, "message": message}
	if retryAfter != "" {
		body["retryAfter"] = retryAfter
	}
	c.JSON(http.StatusTooManyRequests, body)
}
