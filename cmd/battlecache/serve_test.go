// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readinessStatus(t *testing.T, addr string) int {
	t.Helper()
	resp, err := http.Get("http://" + addr + "/healthz/readiness")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode
}

func TestServe_ReadinessFollowsRedis(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	mr, _ := newBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRootCmd()
	out := new(syncBuffer)
	cmd.SetOut(out)
	cmd.SetErr(new(syncBuffer))
	cmd.SetArgs([]string{"serve",
		"--redis-addr", mr.Addr(),
		"--redis-op-timeout", "300ms",
		"--metrics-addr", "127.0.0.1:0",
		"--log-level", "error",
	})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	var addr string
	require.Eventually(t, func() bool {
		line := out.String()
		_, rest, ok := strings.Cut(line, "serving on ")
		if !ok {
			return false
		}
		addr, _, _ = strings.Cut(rest, " ")
		return addr != ""
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusOK, readinessStatus(t, addr))

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, readinessStatus(t, addr))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}

func TestServe_FailsWhenRedisNeverAnswers(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	mr, _ := newBackend(t)
	addr := mr.Addr()
	mr.Close()

	_, err := runCLI(context.Background(), t, "serve",
		"--redis-addr", addr,
		"--redis-connect-retries", "0",
		"--redis-dial-timeout", "100ms",
		"--metrics-addr", "",
		"--log-level", "error",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}
