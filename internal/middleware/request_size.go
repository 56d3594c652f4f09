package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"chain-gateway/internal/models"
	"chain-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequestSizeMiddleware reports the request size and caps request bodies at
// maxBytes. A declared length over the cap is rejected up front; bodies of
// unknown length fail while being read. A non-positive maxBytes disables the cap.
func RequestSizeMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > 0 {
			c.Header("X-Request-Size", strconv.FormatInt(c.Request.ContentLength, 10))
		}
		if maxBytes <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			log := logger.GetLogger().WithContext(c.Request.Context())
			models.HandleError(c, models.NewAppErrorWithDetails(
				models.ErrorCodeRequestTooLarge,
				"Request body too large",
				fmt.Sprintf("request body exceeds %d bytes", maxBytes),
			), log)
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
