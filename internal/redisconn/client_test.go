// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package redisconn

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/battlecache/internal/battle"
)

func TestOpen_ConnectsAndServesConns(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := Open(ctx, Options{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, mr.Addr(), c.Addr())
	require.NoError(t, c.Ping(ctx))

	conn, err := c.Conn(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.SetEx(ctx, "k", "v", time.Minute).Err())
	require.NoError(t, conn.Close())

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, uint32(0), c.Stats().TotalConns-c.Stats().IdleConns, "connection should be back in the pool")
}

func TestOpen_GivesUpAfterRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), Options{
		Addr:           addr,
		DialTimeout:    100 * time.Millisecond,
		ConnectRetries: 2,
		RetryBase:      time.Millisecond,
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, battle.ErrConnection)
	assert.Equal(t, battle.KindConnection, battle.KindOf(err))
}

func TestOpen_RespectsContextCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, Options{Addr: addr, ConnectRetries: 100}, nil)
	require.Error(t, err)
}

func TestClient_ConnAfterClose(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(Options{Addr: mr.Addr()})

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second close is a no-op")

	_, err := c.Conn(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrClosed)
}

func TestClient_ConnHonoursCancelledContext(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Conn(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
