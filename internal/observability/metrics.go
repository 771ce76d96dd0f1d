// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/holomush/battlecache/internal/battle"
)

var _ battle.Observer = (*Metrics)(nil)

// Metrics records cache operation outcomes. It satisfies battle.Observer.
type Metrics struct {
	OperationsTotal     *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	EventDecodeFailures prometheus.Counter
}

// NewMetrics creates and registers the battle cache metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battlecache_operations_total",
				Help: "Total number of cache operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "battlecache_operation_duration_seconds",
				Help:    "Cache operation latency including connection acquisition",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		EventDecodeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "battlecache_event_decode_failures_total",
				Help: "Event log entries skipped because they could not be decoded",
			},
		),
	}

	reg.MustRegister(m.OperationsTotal)
	reg.MustRegister(m.OperationDuration)
	reg.MustRegister(m.EventDecodeFailures)

	return m
}

// ObserveCacheOp counts one finished operation. Operations rejected before
// reaching the backend report a zero duration and are not timed.
func (m *Metrics) ObserveCacheOp(operation, outcome string, elapsed time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	if elapsed > 0 {
		m.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}

// ObserveEventDecodeFailure counts a skipped event log entry.
func (m *Metrics) ObserveEventDecodeFailure() {
	m.EventDecodeFailures.Inc()
}

// PoolStatsFunc reports the current connection pool counters.
type PoolStatsFunc func() *redis.PoolStats

// RegisterPoolStats exposes connection pool gauges read from stats at
// scrape time.
func RegisterPoolStats(reg prometheus.Registerer, stats PoolStatsFunc) {
	gauge := func(name, help string, read func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: name,
			Help: help,
		}, func() float64 {
			s := stats()
			if s == nil {
				return 0
			}
			return float64(read(s))
		})
	}
	counter := func(name, help string, read func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: name,
			Help: help,
		}, func() float64 {
			s := stats()
			if s == nil {
				return 0
			}
			return float64(read(s))
		})
	}

	reg.MustRegister(
		gauge("battlecache_redis_pool_total_connections", "Connections currently held by the pool",
			func(s *redis.PoolStats) uint32 { return s.TotalConns }),
		gauge("battlecache_redis_pool_idle_connections", "Idle connections in the pool",
			func(s *redis.PoolStats) uint32 { return s.IdleConns }),
		counter("battlecache_redis_pool_hits_total", "Times a free connection was found in the pool",
			func(s *redis.PoolStats) uint32 { return s.Hits }),
		counter("battlecache_redis_pool_misses_total", "Times a new connection had to be dialed",
			func(s *redis.PoolStats) uint32 { return s.Misses }),
		counter("battlecache_redis_pool_timeouts_total", "Times waiting for a connection timed out",
			func(s *redis.PoolStats) uint32 { return s.Timeouts }),
	)
}
