// Package response holds the uniform error envelope used by every non-2xx
// gin handler in internal/httpapi, adapted from pkg/response/response.go:
// same {success, error:{code, message}} shape. Success bodies are NOT routed
// through this package — spec.md §6 mandates exact flat response shapes for
// the 2xx cases, so handlers build those structs directly.
package response

import "github.com/gin-gonic/gin"

// Envelope is the uniform error body.
type Envelope struct {
	Success bool       `json:"success"`
	Error   *ErrorData `json:"error"`
}

// ErrorData carries the machine-readable code and a human-readable message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error writes status with a {success:false, error:{code,message}} body.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	})
}
