// Package chainclient manages RPC clients for the configured chains.
package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/config"
	"github.com/fd1az/flasharb/internal/ratelimit"
)

// Client pairs an RPC connection with its chain settings and a rate
// limiter sized from config. All pool reads for a chain go through the
// same limiter so scans cannot starve execution calls.
type Client struct {
	Eth     *ethclient.Client
	Chain   config.ChainConfig
	Limiter *ratelimit.Limiter
}

// MaxGasPriceWei returns the configured gas ceiling in wei.
func (c *Client) MaxGasPriceWei() *big.Int {
	gwei := big.NewInt(c.Chain.MaxGasPriceGwei)
	return gwei.Mul(gwei, big.NewInt(1_000_000_000))
}

// Registry holds one Client per enabled chain, keyed by chain ID.
type Registry struct {
	mu      sync.RWMutex
	clients map[uint64]*Client
}

// NewRegistry dials every enabled chain. A chain that fails to dial
// fails the whole startup; a bot that silently runs with half its
// chains produces misleading opportunity sets.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{clients: make(map[uint64]*Client)}
	for name, chain := range cfg.Chains {
		if !chain.Enabled {
			continue
		}
		eth, err := ethclient.Dial(chain.RPCURL)
		if err != nil {
			r.Close()
			return nil, apperror.New(apperror.CodeRPCConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext("failed to dial chain "+name),
			)
		}
		r.clients[chain.ChainID] = &Client{
			Eth:     eth,
			Chain:   chain,
			Limiter: ratelimit.New(chain.RPCRateLimit),
		}
	}
	return r, nil
}

// Get returns the client for a chain ID.
func (r *Registry) Get(chainID uint64) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[chainID]
	if !ok {
		return nil, apperror.New(apperror.CodeChainNotConfigured,
			apperror.WithContext(fmt.Sprintf("chain %d not configured", chainID)))
	}
	return c, nil
}

// MustGet returns the client for a chain ID, panicking when absent.
// Use only during wiring, after config validation has run.
func (r *Registry) MustGet(chainID uint64) *Client {
	c, err := r.Get(chainID)
	if err != nil {
		panic(fmt.Sprintf("chainclient: chain %d not configured", chainID))
	}
	return c
}

// All returns every registered client.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// ChainIDs returns the IDs of every registered chain.
func (r *Registry) ChainIDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint64, 0, len(r.clients))
	for id := range r.clients {
		out = append(out, id)
	}
	return out
}

// Ping verifies connectivity to every chain by fetching its chain ID
// and checking it matches the configured one.
func (r *Registry) Ping(ctx context.Context) error {
	for _, c := range r.All() {
		got, err := c.Eth.ChainID(ctx)
		if err != nil {
			return apperror.New(apperror.CodeRPCCallFailed,
				apperror.WithCause(err),
				apperror.WithContext("chain id query failed for "+c.Chain.Name),
			)
		}
		if got.Uint64() != c.Chain.ChainID {
			return apperror.New(apperror.CodeChainNotConfigured,
				apperror.WithMessage(fmt.Sprintf("rpc for %s reports chain %d, configured %d",
					c.Chain.Name, got.Uint64(), c.Chain.ChainID)),
			)
		}
	}
	return nil
}

// Close closes all RPC connections.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		c.Eth.Close()
	}
	r.clients = make(map[uint64]*Client)
}
