// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import (
	"log/slog"
	"time"
)

// Default expirations and limits.
const (
	DefaultBattleTTL  = 30 * time.Minute
	DefaultIndexTTL   = 2 * time.Hour
	DefaultOpTimeout  = 2 * time.Second
	DefaultEventLimit = 50
)

type options struct {
	stateTTL       time.Duration
	participantTTL time.Duration
	eventTTL       time.Duration
	modifiedTTL    time.Duration
	indexTTL       time.Duration
	opTimeout      time.Duration
	eventLimit     int
	now            func() time.Time
	logger         *slog.Logger
	observer       Observer
}

// Option configures a cache component.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		stateTTL:       DefaultBattleTTL,
		participantTTL: DefaultBattleTTL,
		eventTTL:       DefaultBattleTTL,
		modifiedTTL:    DefaultBattleTTL,
		indexTTL:       DefaultIndexTTL,
		opTimeout:      DefaultOpTimeout,
		eventLimit:     DefaultEventLimit,
		now:            time.Now,
		observer:       nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithTTL sets the expiry of every battle-scoped record: state, participants,
// events and the modified marker.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			return
		}
		o.stateTTL, o.participantTTL, o.eventTTL, o.modifiedTTL = d, d, d, d
	}
}

// WithParticipantTTL overrides the participant record expiry.
func WithParticipantTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.participantTTL = d
		}
	}
}

// WithEventTTL overrides the event log expiry.
func WithEventTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.eventTTL = d
		}
	}
}

// WithIndexTTL sets the expiry of per-user active-battle sets.
func WithIndexTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.indexTTL = d
		}
	}
}

// WithOpTimeout bounds each operation, including connection acquisition.
func WithOpTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.opTimeout = d
		}
	}
}

// WithEventLimit sets the number of events Recent returns when called with
// a non-positive limit.
func WithEventLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventLimit = n
		}
	}
}

// WithClock replaces time.Now for event and modified-marker timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers an operation observer, typically Prometheus metrics.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}
