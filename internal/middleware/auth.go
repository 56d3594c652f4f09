package middleware

import (
	"errors"
	"strings"

	"chain-gateway/internal/models"
	"chain-gateway/internal/services"
	"chain-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer"

// Context keys set for authenticated requests
const (
	ContextAPIKey     = "api_key"
	ContextAPIKeyID   = "api_key_id"
	ContextAPIKeyName = "api_key_name"
)

// AuthMiddleware rejects requests without an active API key. The key is read
// from "Authorization: Bearer <key>", a bare Authorization value, or X-API-Key.
func AuthMiddleware(authService services.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger().WithContext(c.Request.Context()).WithFields(map[string]interface{}{
			"path":      c.Request.URL.Path,
			"client_ip": c.ClientIP(),
		})

		key, supplied := apiKeyFromRequest(c)
		switch {
		case !supplied:
			reject(c, log, models.NewAuthenticationError(models.ErrorCodeMissingAPIKey,
				"provide an API key in the Authorization or X-API-Key header"))
			return
		case key == "":
			reject(c, log, models.NewAuthenticationError(models.ErrorCodeInvalidAPIKey, "API key cannot be empty"))
			return
		}

		// the key itself is never logged
		apiKey, err := authService.ValidateAPIKey(c.Request.Context(), key)
		if err != nil {
			reject(c, log, authFailure(err))
			return
		}

		id := apiKey.ID.Hex()
		c.Set(ContextAPIKey, apiKey)
		c.Set(ContextAPIKeyID, id)
		c.Set(ContextAPIKeyName, apiKey.Name)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), id))

		log.Debug("Request authenticated", zap.String("api_key_id", id), zap.String("api_key_name", apiKey.Name))
		c.Next()
	}
}

// apiKeyFromRequest reports whether any credential header was sent and the
// key it carries, with an optional case-insensitive Bearer prefix removed
func apiKeyFromRequest(c *gin.Context) (string, bool) {
	raw := c.GetHeader("Authorization")
	if raw == "" {
		raw = c.GetHeader("X-API-Key")
	}
	if raw == "" {
		return "", false
	}

	key := strings.TrimSpace(raw)
	if len(key) >= len(bearerPrefix) && strings.EqualFold(key[:len(bearerPrefix)], bearerPrefix) {
		// only a whole word counts as the scheme
		if rest := key[len(bearerPrefix):]; rest == "" || rest[0] == ' ' || rest[0] == '\t' {
			key = strings.TrimSpace(rest)
		}
	}
	return key, true
}

func authFailure(err error) *models.AppError {
	switch {
	case errors.Is(err, services.ErrInactiveAPIKey):
		return models.NewAuthenticationError(models.ErrorCodeInactiveAPIKey, "API key is inactive")
	case errors.Is(err, services.ErrDatabaseError):
		return models.NewAppErrorWithCause(models.ErrorCodeDatabaseError, "Authentication service unavailable", err)
	default:
		appErr := models.NewAuthenticationError(models.ErrorCodeInvalidAPIKey, "invalid API key")
		appErr.Cause = err
		return appErr
	}
}

func reject(c *gin.Context, log *logger.Logger, appErr *models.AppError) {
	models.HandleError(c, appErr, log)
	c.Abort()
}
