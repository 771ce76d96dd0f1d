// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps each battle's whole state blob under one key with a
// sliding expiry that resets on every write.
type StateStore struct {
	runner
}

// NewStateStore creates a StateStore.
func NewStateStore(p Provider, opts ...Option) *StateStore {
	return &StateStore{runner: newRunner(p, opts)}
}

// Set stores state as JSON with the configured battle TTL.
func (s *StateStore) Set(ctx context.Context, battleID int64, state any) error {
	return s.SetWithTTL(ctx, battleID, state, s.opts.stateTTL)
}

// SetWithTTL stores state as JSON, replacing any previous value and
// resetting the key's expiry to ttl. A non-positive ttl uses the default.
func (s *StateStore) SetWithTTL(ctx context.Context, battleID int64, state any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.opts.stateTTL
	}
	b := s.builder("set_state").With("battle_id", battleID)

	data, err := json.Marshal(state)
	if err != nil {
		return s.reject(ctx, "set_state", serializationError(b, err))
	}

	return s.run(ctx, "set_state", b, func(ctx context.Context, conn Conn) error {
		if err := conn.SetEx(ctx, StateKey(battleID), data, ttl).Err(); err != nil {
			return backendError(b, err)
		}
		s.opts.logger.DebugContext(ctx, "stored battle state", "battle_id", battleID, "ttl", ttl)
		return nil
	})
}

// Get decodes the battle's state into dst. It returns an error wrapping
// ErrNotFound when no state is stored.
func (s *StateStore) Get(ctx context.Context, battleID int64, dst any) error {
	b := s.builder("get_state").With("battle_id", battleID)
	return s.run(ctx, "get_state", b, func(ctx context.Context, conn Conn) error {
		data, err := conn.Get(ctx, StateKey(battleID)).Bytes()
		if errors.Is(err, redis.Nil) {
			return notFoundError(b, CodeStateNotFound)
		}
		if err != nil {
			return backendError(b, err)
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return serializationError(b, err)
		}
		return nil
	})
}

// Delete removes the battle's state. It returns an error wrapping
// ErrNotFound when there was nothing to delete.
func (s *StateStore) Delete(ctx context.Context, battleID int64) error {
	b := s.builder("delete_state").With("battle_id", battleID)
	return s.run(ctx, "delete_state", b, func(ctx context.Context, conn Conn) error {
		n, err := conn.Del(ctx, StateKey(battleID)).Result()
		if err != nil {
			return backendError(b, err)
		}
		if n == 0 {
			return notFoundError(b, CodeStateNotFound)
		}
		s.opts.logger.DebugContext(ctx, "deleted battle state", "battle_id", battleID)
		return nil
	})
}
