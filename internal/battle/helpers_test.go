// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle_test

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/holomush/battlecache/internal/battle"
	"github.com/holomush/battlecache/internal/redisconn"
)

// fixedNow is the clock every fixture starts at.
var fixedNow = time.Unix(1_700_000_000, 0)

type fixture struct {
	mr     *miniredis.Miniredis
	client *redisconn.Client
	cache  *battle.Cache
	obs    *recordingObserver
}

func newFixture(t *testing.T, opts ...battle.Option) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisconn.New(redisconn.Options{
		Addr:        mr.Addr(),
		DialTimeout: 200 * time.Millisecond,
		IOTimeout:   200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	obs := &recordingObserver{}
	base := []battle.Option{
		battle.WithClock(func() time.Time { return fixedNow }),
		battle.WithLogger(slog.New(slog.DiscardHandler)),
		battle.WithObserver(obs),
	}
	return &fixture{
		mr:     mr,
		client: client,
		cache:  battle.New(client, append(base, opts...)...),
		obs:    obs,
	}
}

type observation struct {
	operation string
	outcome   string
}

type recordingObserver struct {
	mu             sync.Mutex
	ops            []observation
	decodeFailures int
}

func (o *recordingObserver) ObserveCacheOp(operation, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, observation{operation: operation, outcome: outcome})
}

func (o *recordingObserver) ObserveEventDecodeFailure() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decodeFailures++
}

func (o *recordingObserver) last() observation {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.ops) == 0 {
		return observation{}
	}
	return o.ops[len(o.ops)-1]
}
