package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"chain-gateway/internal/chains"
	"chain-gateway/internal/models"
	"chain-gateway/pkg/cache"
	"chain-gateway/pkg/logger"
	"chain-gateway/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ChainRegistry resolves a network to its chain client
type ChainRegistry interface {
	Lookup(network models.Network) (chains.Client, bool)
	Networks() []models.Network
	PingAll(ctx context.Context) map[models.Network]error
}

// operation describes one gateway operation for metrics and error messages
type operation struct {
	label       string
	description string
}

var (
	opCreateWallet = operation{"create_wallet", "wallet creation"}
	opBalance      = operation{"balance", "balance lookup"}
	opTokenBalance = operation{"token_balance", "token balance lookup"}
	opSend         = operation{"send_transaction", "transaction submission"}
)

// GatewayOptions configures timeouts and the balance cache
type GatewayOptions struct {
	CallTimeout          time.Duration
	SendTimeout          time.Duration
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration
}

// GatewayService validates requests, resolves the network and dispatches to
// the matching chain client, normalizing every failure into an AppError.
type GatewayService struct {
	registry    ChainRegistry
	cache       *cache.Cache[*models.BalanceResult]
	flights     singleflight.Group
	metrics     *metrics.MetricsCollector
	callTimeout time.Duration
	sendTimeout time.Duration

	// sends bumps on every submitted transaction; a balance fetched across a
	// bump is not kept in the cache
	sends atomic.Uint64
}

// NewGatewayService creates a new GatewayService instance
func NewGatewayService(registry ChainRegistry, collector *metrics.MetricsCollector, opts GatewayOptions) *GatewayService {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.SendTimeout < opts.CallTimeout {
		opts.SendTimeout = opts.CallTimeout
	}
	if collector == nil {
		collector = metrics.NewMetricsCollector()
	}
	return &GatewayService{
		registry:    registry,
		cache:       cache.New[*models.BalanceResult](opts.CacheTTL, opts.CacheCleanupInterval),
		metrics:     collector,
		callTimeout: opts.CallTimeout,
		sendTimeout: opts.SendTimeout,
	}
}

// CreateWallet generates a new wallet on network
func (gs *GatewayService) CreateWallet(ctx context.Context, network string) (*models.WalletRecord, error) {
	if strings.TrimSpace(network) == "" {
		return nil, models.NewMissingParameterError("network")
	}
	net, client, err := gs.resolve(network)
	if err != nil {
		return nil, err
	}

	var wallet *models.WalletRecord
	err = gs.call(ctx, net, opCreateWallet, gs.callTimeout, func(ctx context.Context) error {
		var err error
		wallet, err = client.CreateWallet(ctx)
		return err
	})
	if err != nil {
		return nil, gs.normalize(ctx, net, opCreateWallet, err)
	}

	logger.GetLogger().WithContext(ctx).Info("Wallet created",
		zap.String("network", string(net)),
		zap.String("address", wallet.Address),
	)
	return wallet, nil
}

// SendTransaction signs and broadcasts a value transfer with the caller's key
func (gs *GatewayService) SendTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TxResult, error) {
	if missing := req.MissingFields(); len(missing) > 0 {
		return nil, models.NewMissingParameterError(missing...)
	}
	if fields := req.OutOfRange(); len(fields) > 0 {
		return nil, models.NewAppErrorWithDetails(
			models.ErrorCodeInvalidParameter,
			"Invalid amount",
			strings.Join(fields, ", ")+" out of range",
		)
	}
	net, client, err := gs.resolve(req.Network)
	if err != nil {
		return nil, err
	}

	var result *models.TxResult
	err = gs.call(ctx, net, opSend, gs.sendTimeout, func(ctx context.Context) error {
		var err error
		result, err = client.SendTransaction(ctx, req)
		return err
	})
	if err != nil {
		return nil, gs.normalize(ctx, net, opSend, err)
	}

	// balances of both parties just changed
	gs.sends.Add(1)
	for _, address := range []string{result.From, result.To} {
		key := balanceCacheKey(net, address, "")
		gs.flights.Forget(key)
		gs.cache.Delete(key)
	}

	logger.GetLogger().WithContext(ctx).Info("Transaction submitted",
		zap.String("network", string(net)),
		zap.String("tx_hash", result.TxHash),
		zap.String("from", result.From),
		zap.String("to", result.To),
		zap.String("amount", result.Amount),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

// GetBalance returns the native or token balance of an address. Identical
// concurrent lookups share one chain call and successful results are cached.
func (gs *GatewayService) GetBalance(ctx context.Context, query *models.BalanceQuery) (*models.BalanceResult, error) {
	if missing := query.MissingFields(); len(missing) > 0 {
		return nil, models.NewMissingParameterError(missing...)
	}
	net, client, err := gs.resolve(query.Network)
	if err != nil {
		return nil, err
	}

	op := opBalance
	if query.IsToken() {
		op = opTokenBalance
	}
	key := balanceCacheKey(net, query.Address, query.ContractAddress)
	log := logger.GetLogger().WithContext(ctx)

	if cached, found := gs.cache.Get(key); found {
		gs.metrics.RecordCacheHit()
		log.Debug("Balance cache hit", zap.String("network", string(net)), zap.String("address", query.Address))
		result := *cached
		result.Cached = true
		return &result, nil
	}
	gs.metrics.RecordCacheMiss()

	// the shared flight must outlive whichever caller started it
	flightCtx := context.WithoutCancel(ctx)
	flight := gs.flights.DoChan(key, func() (interface{}, error) {
		sends := gs.sends.Load()
		var result *models.BalanceResult
		err := gs.call(flightCtx, net, op, gs.callTimeout, func(ctx context.Context) error {
			var err error
			result, err = client.GetBalance(ctx, query)
			return err
		})
		if err != nil {
			return nil, err
		}
		gs.cache.Set(key, result)
		// a send during the fetch may have deleted the entry before the Set
		if gs.sends.Load() != sends {
			gs.cache.Delete(key)
		}
		return result, nil
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return nil, gs.normalize(ctx, net, op, ctx.Err())
	}
	if res.Err != nil {
		return nil, gs.normalize(ctx, net, op, res.Err)
	}
	value, shared := res.Val, res.Shared

	log.Debug("Balance fetched from chain",
		zap.String("network", string(net)),
		zap.String("address", query.Address),
		zap.Bool("shared_flight", shared),
	)
	result := *value.(*models.BalanceResult)
	result.Cached = false
	return &result, nil
}

// CheckChains pings every chain client
func (gs *GatewayService) CheckChains(ctx context.Context) map[models.Network]error {
	ctx, cancel := context.WithTimeout(ctx, gs.callTimeout)
	defer cancel()
	return gs.registry.PingAll(ctx)
}

// Networks lists the networks the gateway can serve
func (gs *GatewayService) Networks() []models.Network {
	return gs.registry.Networks()
}

// GetCacheStats returns cache statistics for monitoring
func (gs *GatewayService) GetCacheStats() map[string]interface{} {
	return map[string]interface{}{
		"cache_enabled": gs.cache.Enabled(),
		"cache_size":    gs.cache.Size(),
		"cache_ttl_ms":  gs.cache.TTL().Milliseconds(),
	}
}

// GetPerformanceStats returns comprehensive performance statistics
func (gs *GatewayService) GetPerformanceStats() map[string]interface{} {
	snapshot := gs.metrics.GetMetrics()

	return map[string]interface{}{
		"uptime":                   gs.metrics.GetUptime().String(),
		"total_requests":           snapshot.TotalRequests,
		"successful_requests":      snapshot.SuccessfulRequests,
		"failed_requests":          snapshot.FailedRequests,
		"success_rate_percent":     gs.metrics.GetSuccessRate(),
		"average_response_time_ms": snapshot.AverageResponseTime.Milliseconds(),
		"max_response_time_ms":     snapshot.MaxResponseTime.Milliseconds(),
		"cache_hits":               snapshot.CacheHits,
		"cache_misses":             snapshot.CacheMisses,
		"cache_hit_ratio_percent":  gs.metrics.GetCacheHitRatio(),
		"chain_calls":              snapshot.ChainCalls,
		"chain_failures":           snapshot.ChainFailures,
		"average_chain_time_ms":    snapshot.AverageChainTime.Milliseconds(),
		"active_requests":          snapshot.ActiveRequests,
		"cache_size":               gs.cache.Size(),
	}
}

// ClearCache clears all cached balances
func (gs *GatewayService) ClearCache() {
	gs.cache.Clear()
}

// GetMetricsCollector returns the metrics collector for middleware integration
func (gs *GatewayService) GetMetricsCollector() *metrics.MetricsCollector {
	return gs.metrics
}

func (gs *GatewayService) resolve(name string) (models.Network, chains.Client, error) {
	net, ok := models.ParseNetwork(name)
	if !ok {
		return net, nil, models.NewUnsupportedNetworkError(strings.TrimSpace(name))
	}
	client, ok := gs.registry.Lookup(net)
	if !ok {
		return net, nil, models.NewUnsupportedNetworkError(string(net))
	}
	return net, client, nil
}

// call runs fn under its own deadline and records it
func (gs *GatewayService) call(ctx context.Context, net models.Network, op operation, timeout time.Duration, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	// unimplemented operations are not chain failures
	success := err == nil || errors.Is(err, chains.ErrUnsupportedOperation)
	gs.metrics.RecordChainCall(string(net), op.label, time.Since(start), success)
	return err
}

// normalize maps a chain client error onto the gateway's error taxonomy
func (gs *GatewayService) normalize(ctx context.Context, net models.Network, op operation, err error) error {
	var appErr *models.AppError
	switch {
	case errors.Is(err, chains.ErrUnsupportedOperation):
		appErr = models.NewUnsupportedOperationError(net, op.description)
	case errors.Is(err, chains.ErrInvalidAddress):
		appErr = models.NewInvalidParameterError("Invalid address", err)
	case errors.Is(err, chains.ErrInvalidPrivateKey):
		appErr = models.NewInvalidParameterError("Invalid private key", err)
	case errors.Is(err, chains.ErrInvalidAmount):
		appErr = models.NewInvalidParameterError("Invalid amount", err)
	default:
		appErr = models.NewClientError(net, op.description, err)
		logger.GetLogger().WithContext(ctx).Error("Chain client call failed",
			zap.String("network", string(net)),
			zap.String("operation", op.label),
			zap.Error(err),
		)
	}
	return appErr.WithContext("network", string(net))
}

func balanceCacheKey(net models.Network, address, contract string) string {
	address = strings.TrimSpace(address)
	contract = strings.TrimSpace(contract)
	// hex addresses are case-insensitive, base58/base64 ones are not
	if net.IsEVM() {
		address = strings.ToLower(address)
		contract = strings.ToLower(contract)
	}
	return string(net) + "|" + address + "|" + contract
}
