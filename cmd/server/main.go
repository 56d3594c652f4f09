package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chain-gateway/internal/chains"
	"chain-gateway/internal/config"
	"chain-gateway/internal/handlers"
	"chain-gateway/internal/middleware"
	"chain-gateway/internal/services"
	"chain-gateway/pkg/logger"
	"chain-gateway/pkg/metrics"
	"chain-gateway/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server represents the main application server
type Server struct {
	httpServer  *http.Server
	config      *config.Config
	registry    *chains.Registry
	gateway     *services.GatewayService
	authService *services.AuthService
	// authenticator guards the gateway routes; nil disables API key checks
	authenticator services.AuthServiceInterface
	rateLimiter   *ratelimiter.RateLimiter
	router        *handlers.Router
	stop          chan struct{}
}

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize logging
	loggerConfig := &logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
		OutputPaths: cfg.Logging.OutputPaths,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
	}

	if err := logger.Initialize(loggerConfig); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log := logger.GetLogger()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	log.Info("Starting chain gateway",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.App.Environment),
		zap.String("eth_rpc", cfg.Chains.ETH.RPCURL),
		zap.String("bsc_rpc", cfg.Chains.BSC.RPCURL),
		zap.String("tron_api", cfg.Chains.Tron.APIURL),
		zap.String("ton_api", cfg.Chains.TON.APIURL),
		zap.String("btc_network", cfg.Chains.BTC.Network),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.Int("rate_limit_requests", cfg.RateLimit.Requests),
		zap.Duration("rate_limit_window", cfg.RateLimit.Window),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
		zap.String("log_level", cfg.Logging.Level),
	)

	// Initialize and start server
	server, err := NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Start server with graceful shutdown
	if err := server.Start(); err != nil {
		log.Fatal("Server failed to start", zap.Error(err))
	}
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log := logger.GetLogger()

	log.Info("Initializing server components")

	// Initialize chain clients
	log.Debug("Initializing chain clients")
	registry, err := chains.NewRegistry(cfg.Chains)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chain clients: %w", err)
	}

	var (
		authService     *services.AuthService
		dbHealthChecker *services.DatabaseHealthChecker
	)
	if cfg.Auth.Enabled {
		log.Debug("Initializing authentication service")
		authService, err = services.NewAuthService(ctx, &cfg.MongoDB)
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("failed to initialize auth service: %w", err)
		}
		// shares the auth client, so it is never closed on its own
		dbHealthChecker = services.NewDatabaseHealthCheckerFromClient(authService.Client(), &cfg.MongoDB)
	} else {
		log.Warn("API key authentication disabled")
	}

	server := newServer(cfg, registry, dbHealthChecker)
	if authService != nil {
		server.authService = authService
		server.authenticator = authService
	}

	// Ping chains once so misconfiguration shows up in the startup logs
	for network, err := range server.gateway.CheckChains(ctx) {
		if err != nil {
			log.Warn("Chain client unreachable", zap.String("network", string(network)), zap.Error(err))
		} else {
			log.Info("Chain client reachable", zap.String("network", string(network)))
		}
	}

	log.Info("Server components initialized successfully")
	return server, nil
}

// newServer wires the gateway, rate limiter and routes around registry
func newServer(cfg *config.Config, registry *chains.Registry, dbHealthChecker *services.DatabaseHealthChecker) *Server {
	collector := metrics.NewMetricsCollector()
	gateway := services.NewGatewayService(registry, collector, services.GatewayOptions{
		CallTimeout:          cfg.Chains.CallTimeout,
		SendTimeout:          sendTimeout(cfg.Chains),
		CacheTTL:             cfg.Cache.TTL,
		CacheCleanupInterval: cfg.Cache.CleanupInterval,
	})

	healthHandler := handlers.NewHealthHandler(cfg.App.Environment, gateway, dbHealthChecker)

	return &Server{
		config:      cfg,
		registry:    registry,
		gateway:     gateway,
		rateLimiter: ratelimiter.New(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		router:      handlers.NewRouter(gateway, healthHandler),
		stop:        make(chan struct{}),
	}
}

// sendTimeout leaves room for receipt polling on top of the broadcast itself
func sendTimeout(cfg config.ChainsConfig) time.Duration {
	timeout := cfg.CallTimeout
	var receipt time.Duration
	for _, evm := range []config.EVMConfig{cfg.ETH, cfg.BSC} {
		if evm.WaitForReceipt && evm.ReceiptTimeout > receipt {
			receipt = evm.ReceiptTimeout
		}
	}
	return timeout + receipt
}

// Handler builds the gin engine with the full middleware stack and routes
func (s *Server) Handler() *gin.Engine {
	log := logger.GetLogger()

	log.Debug("Creating Gin engine")

	engine := gin.New()

	s.setupMiddleware(engine)
	s.setupRoutes(engine)

	return engine
}

// Start starts the HTTP server with graceful shutdown handling
func (s *Server) Start() error {
	log := logger.GetLogger()

	// Set Gin mode based on environment
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,

		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
		TLSNextProto:      make(map[string]func(*http.Server, *tls.Conn, http.Handler)),
	}

	log.Info("HTTP server configured",
		zap.String("address", s.httpServer.Addr),
		zap.Duration("read_timeout", s.config.Server.ReadTimeout),
		zap.Duration("write_timeout", s.config.Server.WriteTimeout),
		zap.Duration("idle_timeout", s.config.Server.IdleTimeout),
	)

	// Start cleanup routines
	s.startCleanupRoutines()

	// Start server in a goroutine
	go func() {
		log.Info("Starting HTTP server", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	return s.waitForShutdown()
}

// setupMiddleware configures the middleware stack
func (s *Server) setupMiddleware(engine *gin.Engine) {
	log := logger.GetLogger()

	log.Debug("Setting up middleware stack")

	// Recovery middleware with structured logging (should be first)
	engine.Use(logger.RecoveryMiddleware())

	// Structured logging middleware with correlation IDs
	engine.Use(logger.LoggingMiddleware())

	// Request metrics and response time headers
	engine.Use(middleware.MetricsMiddleware(s.gateway.GetMetricsCollector()))
	engine.Use(middleware.ResponseTimeMiddleware())

	engine.Use(s.corsMiddleware())

	// Rate limiting middleware (before auth to prevent auth bypass attempts)
	engine.Use(s.rateLimiter.Middleware())

	engine.Use(middleware.RequestSizeMiddleware(s.config.Server.MaxBodyBytes))

	log.Debug("Middleware stack configured")
}

// setupRoutes configures all application routes
func (s *Server) setupRoutes(engine *gin.Engine) {
	// Health check routes (no authentication required)
	s.router.SetupHealthRoutes(engine)

	// Prometheus exposition
	engine.GET("/metrics", gin.WrapH(s.gateway.GetMetricsCollector().Handler()))

	// Gateway routes, with authentication when enabled
	var guards []gin.HandlerFunc
	if s.authenticator != nil {
		guards = append(guards, middleware.AuthMiddleware(s.authenticator))
	}
	s.router.SetupRoutes(engine, guards...)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// startCleanupRoutines starts background cleanup tasks
func (s *Server) startCleanupRoutines() {
	log := logger.GetLogger()

	interval := s.config.RateLimit.CleanupInterval
	if interval <= 0 {
		interval = s.config.RateLimit.Window
	}

	// Rate limiter cleanup
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Debug("Starting rate limiter cleanup routine", zap.Duration("interval", interval))

		for {
			select {
			case <-ticker.C:
				s.rateLimiter.Cleanup()
			case <-s.stop:
				return
			}
		}
	}()

	log.Info("Background cleanup routines started")
}

// waitForShutdown waits for interrupt signal and performs graceful shutdown
func (s *Server) waitForShutdown() error {
	log := logger.GetLogger()

	// Create channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until signal received
	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Info("Shutting down HTTP server", zap.Duration("timeout", 30*time.Second))

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	s.cleanup()

	log.Info("Server gracefully stopped")
	return nil
}

// cleanup performs cleanup of all services
func (s *Server) cleanup() {
	log := logger.GetLogger()

	log.Info("Cleaning up services...")

	close(s.stop)

	if s.registry != nil {
		log.Debug("Closing chain clients")
		s.registry.Close()
	}

	// Close auth service (MongoDB connection)
	if s.authService != nil {
		log.Debug("Closing auth service")
		if err := s.authService.Close(); err != nil {
			log.Error("Error closing auth service", zap.Error(err))
		}
	}

	log.Info("Cleanup completed")

	// Sync logger before exit; stderr sinks report EINVAL here on Linux
	_ = logger.GetLogger().Sync()
}
