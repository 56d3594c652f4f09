package models

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the uniform envelope of every gateway endpoint.
// Data and Error are never both set.
type APIResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RespondSuccess writes a 200 envelope carrying data
func RespondSuccess(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// RespondError writes an error envelope with the given status
func RespondError(c *gin.Context, status int, message, errMsg string) {
	c.JSON(status, APIResponse{
		Status:  status,
		Message: message,
		Error:   errMsg,
	})
}
