package db

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jocarsa/jocarsa-lavender/internal/oxidb"
)

type PoolConfig struct {
	Host      string
	Port      int
	Size      int
	Timeout   time.Duration
	Keepalive time.Duration
}

// Pool is a round-robin connection pool for OxiDB with auto-reconnect.
type Pool struct {
	cfg     PoolConfig
	log     zerolog.Logger
	clients []*oxidb.Client
	mu      []sync.RWMutex
	idx     uint64
	stop    chan struct{}
	done    chan struct{}
}

// NewPool creates a pool of cfg.Size OxiDB connections.
func NewPool(cfg PoolConfig, log zerolog.Logger) (*Pool, error) {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	p := &Pool{
		cfg:     cfg,
		log:     log.With().Str("component", "oxidb-pool").Logger(),
		clients: make([]*oxidb.Client, cfg.Size),
		mu:      make([]sync.RWMutex, cfg.Size),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for i := 0; i < cfg.Size; i++ {
		c, err := oxidb.Connect(cfg.Host, cfg.Port, cfg.Timeout)
		if err != nil {
			p.closeClients()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	// Keepalive pings prevent the server's idle timeout from dropping connections.
	if cfg.Keepalive > 0 {
		go p.keepalive()
	} else {
		close(p.done)
	}
	return p, nil
}

// Get returns the next client in round-robin order. A client retired by a
// failed exchange is redialed first; if that fails the broken client is
// returned and its calls report oxidb.ErrBroken.
func (p *Pool) Get() *oxidb.Client {
	n := atomic.AddUint64(&p.idx, 1)
	i := int(n % uint64(len(p.clients)))
	p.mu[i].RLock()
	c := p.clients[i]
	p.mu[i].RUnlock()
	if c.Broken() {
		c = p.reconnect(i, c)
	}
	return c
}

// Ping checks one connection.
func (p *Pool) Ping(ctx context.Context) error {
	_, err := p.Get().Ping(ctx)
	return err
}

// reconnect replaces stale, the client seen failing at index i, and
// returns whichever client the slot holds afterwards.
func (p *Pool) reconnect(i int, stale *oxidb.Client) *oxidb.Client {
	p.mu[i].Lock()
	defer p.mu[i].Unlock()
	old := p.clients[i]
	// Another caller already redialed.
	if old != stale {
		return old
	}
	c, err := oxidb.Connect(p.cfg.Host, p.cfg.Port, p.cfg.Timeout)
	if err != nil {
		p.log.Warn().Err(err).Int("client", i).Msg("reconnect failed")
		return old
	}
	p.clients[i] = c
	if old != nil {
		old.Close()
	}
	return c
}

func (p *Pool) keepalive() {
	defer close(p.done)
	ticker := time.NewTicker(p.cfg.Keepalive)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			for i := range p.clients {
				p.mu[i].RLock()
				c := p.clients[i]
				p.mu[i].RUnlock()
				ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
				_, err := c.Ping(ctx)
				cancel()
				if err != nil {
					p.log.Warn().Err(err).Int("client", i).Msg("ping failed, reconnecting")
					p.reconnect(i, c)
				}
			}
		}
	}
}

// Close stops the keepalive loop and closes all connections.
func (p *Pool) Close() {
	close(p.stop)
	<-p.done
	p.closeClients()
}

func (p *Pool) closeClients() {
	for i, c := range p.clients {
		if c != nil {
			c.Close()
			p.clients[i] = nil
		}
	}
}
