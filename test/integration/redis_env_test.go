// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/holomush/battlecache/internal/redisconn"
)

// testEnv holds the Redis container shared by every spec.
type testEnv struct {
	container *tcredis.RedisContainer
	addr      string
	// raw is an independent client for seeding and asserting on keys.
	raw    *redis.Client
	client *redisconn.Client
}

var env *testEnv

var _ = BeforeSuite(func() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	Expect(err).NotTo(HaveOccurred())

	uri, err := container.ConnectionString(ctx)
	Expect(err).NotTo(HaveOccurred())
	opt, err := redis.ParseURL(uri)
	Expect(err).NotTo(HaveOccurred())

	client, err := redisconn.Open(ctx, redisconn.Options{
		Addr:           opt.Addr,
		PoolSize:       8,
		DialTimeout:    2 * time.Second,
		IOTimeout:      2 * time.Second,
		ConnectRetries: 10,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	Expect(err).NotTo(HaveOccurred())

	env = &testEnv{
		container: container,
		addr:      opt.Addr,
		raw:       redis.NewClient(opt),
		client:    client,
	}
})

var _ = AfterSuite(func() {
	if env == nil {
		return
	}
	_ = env.raw.Close()
	_ = env.client.Close()
	Expect(testcontainers.TerminateContainer(env.container)).To(Succeed())
})

var _ = BeforeEach(func() {
	Expect(env.raw.FlushDB(context.Background()).Err()).To(Succeed())
})
