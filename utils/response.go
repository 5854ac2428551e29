package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONRejection sends an error response with a machine-readable reason and
// any extra fields the client needs to recover, such as the minimum
// acceptable amount or the bid ID to resubmit with.
func JSONRejection(c *gin.Context, status int, err error, message, reason string, details map[string]any) {
	body := gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	}
	if reason != "" {
		body["reason"] = reason
	}
	for k, v := range details {
		body[k] = v
	}
	c.JSON(status, body)
}
