package logger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(t *testing.T) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	zl := zap.New(core)
	return &Logger{Logger: zl, sugar: zl.Sugar()}, logs
}

func TestWithContextAddsRequestFields(t *testing.T) {
	log, logs := observed(t)

	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithUserID(ctx, "key-1")

	log.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "corr-1", fields["correlation_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "key-1", fields["user_id"])
}

func TestWithContextSkipsMissingFields(t *testing.T) {
	log, logs := observed(t)

	log.WithContext(context.Background()).WithFields(map[string]interface{}{"network": "ETH"}).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.NotContains(t, fields, "correlation_id")
	assert.Equal(t, "ETH", fields["network"])
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, Initialize(&Config{Level: "info", Environment: "development", OutputPaths: []string{"stderr"}}))
	defer func() { _ = SetLevel("info") }()

	assert.False(t, GetLogger().Core().Enabled(zapcore.DebugLevel))
	require.NoError(t, SetLevel("debug"))
	assert.True(t, GetLogger().Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, SetLevel("loud"))
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Initialize(&Config{Level: "verbose"}))
}

func TestLoggingMiddlewareCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(LoggingMiddleware())

	var seen string
	engine.GET("/", func(c *gin.Context) {
		seen = GetCorrelationIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "upstream-id")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "upstream-id", seen)
	assert.Equal(t, "upstream-id", w.Header().Get("X-Correlation-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get("X-Correlation-ID"), 36)
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RecoveryMiddleware())
	engine.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", w.Header().Get("X-Error-Code"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusInternalServerError), body["status"])
	assert.NotContains(t, body, "data")
	assert.NotContains(t, body["error"], "boom")
}
