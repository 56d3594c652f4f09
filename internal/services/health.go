package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"chain-gateway/internal/config"
	"chain-gateway/internal/models"
	"chain-gateway/pkg/logger"

	"github.com/sourcegraph/conc"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HealthStatus represents the health status of a service
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck represents a health check result
type HealthCheck struct {
	Service      string        `json:"service"`
	Status       HealthStatus  `json:"status"`
	Message      string        `json:"message,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
	Timestamp    time.Time     `json:"timestamp"`
}

// requiredAPIKeyIndexes are the default names MongoDB gives the indexes
// created by AuthService.EnsureIndexes
var requiredAPIKeyIndexes = []string{"key_1", "active_1", "key_1_active_1"}

// minAvailableConnections below which the pool is reported degraded
const minAvailableConnections = 10

// DatabaseHealthChecker checks the MongoDB deployment behind the API key store
type DatabaseHealthChecker struct {
	client *mongo.Client
	db     *mongo.Database
	config *config.MongoDBConfig
}

// NewDatabaseHealthChecker opens its own MongoDB connection
func NewDatabaseHealthChecker(ctx context.Context, cfg *config.MongoDBConfig) (*DatabaseHealthChecker, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := connectMongo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewDatabaseHealthCheckerFromClient(client, cfg), nil
}

// NewDatabaseHealthCheckerFromClient reuses an existing connection, e.g. the auth service's
func NewDatabaseHealthCheckerFromClient(client *mongo.Client, cfg *config.MongoDBConfig) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{
		client: client,
		db:     client.Database(cfg.Database),
		config: cfg,
	}
}

// timedCheck runs check under timeout and stamps the result
func timedCheck(ctx context.Context, service string, timeout time.Duration, check func(ctx context.Context) (HealthStatus, string)) *HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	status, message := check(ctx)
	return &HealthCheck{
		Service:      service,
		Status:       status,
		Message:      message,
		ResponseTime: time.Since(start),
		Timestamp:    start,
	}
}

// CheckHealth pings the server, then reads database and collection stats.
// A failed ping is unhealthy; failing stats only degrade.
func (dhc *DatabaseHealthChecker) CheckHealth(ctx context.Context) *HealthCheck {
	return timedCheck(ctx, "mongodb", 5*time.Second, func(ctx context.Context) (HealthStatus, string) {
		if err := dhc.client.Ping(ctx, nil); err != nil {
			return HealthStatusUnhealthy, fmt.Sprintf("ping failed: %v", err)
		}
		if err := dhc.runCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}, nil); err != nil {
			return HealthStatusDegraded, fmt.Sprintf("database stats failed: %v", err)
		}
		if err := dhc.runCommand(ctx, bson.D{{Key: "collStats", Value: dhc.config.APIKeyCollection}}, nil); err != nil {
			return HealthStatusDegraded, fmt.Sprintf("collection stats failed: %v", err)
		}
		if _, err := dhc.db.Collection(dhc.config.APIKeyCollection).EstimatedDocumentCount(ctx); err != nil {
			return HealthStatusDegraded, fmt.Sprintf("collection count failed: %v", err)
		}
		return HealthStatusHealthy, "all checks passed"
	})
}

func (dhc *DatabaseHealthChecker) runCommand(ctx context.Context, cmd bson.D, out *bson.M) error {
	var result bson.M
	if err := dhc.db.RunCommand(ctx, cmd).Decode(&result); err != nil {
		return err
	}
	if out != nil {
		*out = result
	}
	return nil
}

// CheckConnectionPool reports the server's current and available connections
func (dhc *DatabaseHealthChecker) CheckConnectionPool(ctx context.Context) *HealthCheck {
	return timedCheck(ctx, "mongodb_pool", 5*time.Second, func(ctx context.Context) (HealthStatus, string) {
		var serverStatus bson.M
		if err := dhc.runCommand(ctx, bson.D{{Key: "serverStatus", Value: 1}}, &serverStatus); err != nil {
			return HealthStatusUnhealthy, fmt.Sprintf("server status failed: %v", err)
		}
		return poolStatus(serverStatus)
	})
}

func poolStatus(serverStatus bson.M) (HealthStatus, string) {
	connections, ok := serverStatus["connections"].(bson.M)
	if !ok {
		return HealthStatusDegraded, "connection stats not available"
	}
	current, currentOK := connections["current"].(int32)
	available, availableOK := connections["available"].(int32)
	if !currentOK || !availableOK {
		return HealthStatusDegraded, "unable to parse connection stats"
	}
	if available < minAvailableConnections {
		return HealthStatusDegraded, fmt.Sprintf("low available connections: %d current, %d available", current, available)
	}
	return HealthStatusHealthy, fmt.Sprintf("connection pool healthy: %d current, %d available", current, available)
}

// CheckIndexes verifies the API key indexes exist
func (dhc *DatabaseHealthChecker) CheckIndexes(ctx context.Context) *HealthCheck {
	return timedCheck(ctx, "mongodb_indexes", 10*time.Second, func(ctx context.Context) (HealthStatus, string) {
		cursor, err := dhc.db.Collection(dhc.config.APIKeyCollection).Indexes().List(ctx)
		if err != nil {
			return HealthStatusUnhealthy, fmt.Sprintf("failed to list indexes: %v", err)
		}
		var indexes []bson.M
		if err := cursor.All(ctx, &indexes); err != nil {
			return HealthStatusUnhealthy, fmt.Sprintf("failed to decode indexes: %v", err)
		}

		names := make([]string, 0, len(indexes))
		for _, index := range indexes {
			if name, ok := index["name"].(string); ok {
				names = append(names, name)
			}
		}
		if missing := missingIndexes(names); len(missing) > 0 {
			return HealthStatusDegraded, "missing indexes: " + strings.Join(missing, ", ")
		}
		return HealthStatusHealthy, "all required indexes present"
	})
}

func missingIndexes(present []string) []string {
	var missing []string
	for _, required := range requiredAPIKeyIndexes {
		if !slices.Contains(present, required) {
			missing = append(missing, required)
		}
	}
	return missing
}

// GetDetailedHealth runs every database check concurrently
func (dhc *DatabaseHealthChecker) GetDetailedHealth(ctx context.Context) map[string]*HealthCheck {
	var (
		wg                          conc.WaitGroup
		connectivity, pool, indexes *HealthCheck
	)
	wg.Go(func() { connectivity = dhc.CheckHealth(ctx) })
	wg.Go(func() { pool = dhc.CheckConnectionPool(ctx) })
	wg.Go(func() { indexes = dhc.CheckIndexes(ctx) })
	wg.Wait()

	return map[string]*HealthCheck{
		"connectivity":    connectivity,
		"connection_pool": pool,
		"indexes":         indexes,
	}
}

// Close closes the database connection
func (dhc *DatabaseHealthChecker) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return dhc.client.Disconnect(ctx)
}

// ChainChecker reports reachability per network
type ChainChecker interface {
	CheckChains(ctx context.Context) map[models.Network]error
}

// CheckChainHealth converts a reachability check of every chain client into health checks keyed by network
func CheckChainHealth(ctx context.Context, checker ChainChecker) map[string]*HealthCheck {
	start := time.Now()
	results := checker.CheckChains(ctx)
	elapsed := time.Since(start)

	checks := make(map[string]*HealthCheck, len(results))
	for network, err := range results {
		check := &HealthCheck{
			Service:      "chain_" + strings.ToLower(string(network)),
			Status:       HealthStatusHealthy,
			Message:      "reachable",
			ResponseTime: elapsed,
			Timestamp:    start,
		}
		if err != nil {
			// the error is only logged: node errors can carry RPC URLs with API keys
			logger.GetLogger().WithContext(ctx).Warn("Chain health check failed",
				zap.String("network", string(network)), zap.Error(err))
			check.Status = HealthStatusUnhealthy
			check.Message = "unreachable"
		}
		checks[string(network)] = check
	}
	return checks
}
