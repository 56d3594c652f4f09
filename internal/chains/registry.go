package chains

import (
	"context"
	"fmt"
	"sync"

	"chain-gateway/internal/config"
	"chain-gateway/internal/models"

	"github.com/sourcegraph/conc/pool"
)

// Registry maps each network to its client. It is filled once and never
// mutated afterwards, so lookups need no locking.
type Registry struct {
	clients map[models.Network]Client
}

// NewRegistry builds every client from configuration
func NewRegistry(cfg config.ChainsConfig) (*Registry, error) {
	eth, err := NewEVMClient(models.NetworkETH, cfg.ETH)
	if err != nil {
		return nil, err
	}
	bsc, err := NewEVMClient(models.NetworkBSC, cfg.BSC)
	if err != nil {
		return nil, err
	}
	tron, err := NewTronClient(cfg.Tron)
	if err != nil {
		return nil, err
	}
	btc, err := NewBitcoinClient(cfg.BTC)
	if err != nil {
		return nil, err
	}
	ton, err := NewTONClient(cfg.TON)
	if err != nil {
		return nil, err
	}
	return NewRegistryFromClients(bsc, eth, tron, btc, ton), nil
}

// NewRegistryFromClients indexes the given clients by their network
func NewRegistryFromClients(clients ...Client) *Registry {
	r := &Registry{clients: make(map[models.Network]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.Network()] = c
	}
	return r
}

// Lookup returns the client serving network
func (r *Registry) Lookup(network models.Network) (Client, bool) {
	c, ok := r.clients[network]
	return c, ok
}

// Networks lists the registered networks in display order
func (r *Registry) Networks() []models.Network {
	var out []models.Network
	for _, n := range models.SupportedNetworks() {
		if _, ok := r.clients[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// PingAll pings every client concurrently. A nil entry means reachable.
func (r *Registry) PingAll(ctx context.Context) map[models.Network]error {
	results := make(map[models.Network]error, len(r.clients))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(len(r.clients) + 1)
	for network, client := range r.clients {
		network, client := network, client
		p.Go(func() {
			err := client.Ping(ctx)
			if err != nil {
				err = fmt.Errorf("%s: %w", network, err)
			}
			mu.Lock()
			results[network] = err
			mu.Unlock()
		})
	}
	p.Wait()

	return results
}

// Close releases client connections
func (r *Registry) Close() {
	for _, c := range r.clients {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}
