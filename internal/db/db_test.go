package db

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jocarsa/jocarsa-lavender/internal/oxidb/oxidbtest"
)

func TestPoolRoundRobin(t *testing.T) {
	srv, err := oxidbtest.NewServer()
	require.NoError(t, err)
	defer srv.Close()

	p, err := NewPool(PoolConfig{Host: srv.Host(), Port: srv.Port(), Size: 3}, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	seen := map[any]bool{}
	for i := 0; i < 3; i++ {
		seen[p.Get()] = true
	}
	assert.Len(t, seen, 3)
	assert.NoError(t, p.Ping(context.Background()))
}

func TestPoolConnectFailure(t *testing.T) {
	srv, err := oxidbtest.NewServer()
	require.NoError(t, err)
	port := srv.Port()
	srv.Close()

	_, err = NewPool(PoolConfig{Host: "127.0.0.1", Port: port, Size: 2, Timeout: time.Second}, zerolog.Nop())
	assert.Error(t, err)
}

func TestPoolKeepaliveStops(t *testing.T) {
	srv, err := oxidbtest.NewServer()
	require.NoError(t, err)
	defer srv.Close()

	p, err := NewPool(PoolConfig{Host: srv.Host(), Port: srv.Port(), Size: 1, Keepalive: 10 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	p.Close()
}

func TestPoolRedialsBrokenClient(t *testing.T) {
	srv, err := oxidbtest.NewServer()
	require.NoError(t, err)
	defer srv.Close()

	p, err := NewPool(PoolConfig{Host: srv.Host(), Port: srv.Port(), Size: 1}, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	_, err = p.Get().Insert(ctx, "form_a", map[string]any{"owner": "a"})
	require.NoError(t, err)
	_, err = p.Get().Insert(ctx, "form_b", map[string]any{"owner": "b"})
	require.NoError(t, err)

	first := p.Get()
	srv.Delay("find", 200*time.Millisecond)
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = first.Find(short, "form_a", map[string]any{}, nil)
	require.Error(t, err)

	next := p.Get()
	assert.NotSame(t, first, next)
	docs, err := next.Find(ctx, "form_b", map[string]any{}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0]["owner"])
}
