// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import (
	"context"
	"fmt"
	"slices"
	"strconv"
)

// ActiveIndex tracks which battles each user currently takes part in, so a
// user's battles can be found without scanning keys. Its expiry is separate
// from, and longer than, the battle records' expiry.
type ActiveIndex struct {
	runner
}

// NewActiveIndex creates an ActiveIndex.
func NewActiveIndex(p Provider, opts ...Option) *ActiveIndex {
	return &ActiveIndex{runner: newRunner(p, opts)}
}

// Add records that userID is in battleID and refreshes the set's expiry.
// Adding an existing membership is a no-op apart from the refresh.
func (x *ActiveIndex) Add(ctx context.Context, userID, battleID int64) error {
	b := x.builder("add_user_to_battle").With("user_id", userID).With("battle_id", battleID)
	key := UserActiveKey(userID)
	return x.run(ctx, "add_user_to_battle", b, func(ctx context.Context, conn Conn) error {
		if err := conn.SAdd(ctx, key, strconv.FormatInt(battleID, 10)).Err(); err != nil {
			return backendError(b, err)
		}
		if err := conn.Expire(ctx, key, x.opts.indexTTL).Err(); err != nil {
			return backendError(b, err)
		}
		x.opts.logger.DebugContext(ctx, "added user to active battle", "user_id", userID, "battle_id", battleID)
		return nil
	})
}

// Remove drops battleID from the user's set. It reports false with a nil
// error when the user was not in that battle.
func (x *ActiveIndex) Remove(ctx context.Context, userID, battleID int64) (bool, error) {
	b := x.builder("remove_user_from_battle").With("user_id", userID).With("battle_id", battleID)
	var removed bool
	err := x.run(ctx, "remove_user_from_battle", b, func(ctx context.Context, conn Conn) error {
		n, err := conn.SRem(ctx, UserActiveKey(userID), strconv.FormatInt(battleID, 10)).Result()
		if err != nil {
			return backendError(b, err)
		}
		removed = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if !removed {
		x.opts.logger.DebugContext(ctx, "user was not in active battle", "user_id", userID, "battle_id", battleID)
	}
	return removed, nil
}

// List returns the user's active battle IDs in ascending order.
func (x *ActiveIndex) List(ctx context.Context, userID int64) ([]int64, error) {
	b := x.builder("list_active_battles").With("user_id", userID)
	var ids []int64
	err := x.run(ctx, "list_active_battles", b, func(ctx context.Context, conn Conn) error {
		members, err := conn.SMembers(ctx, UserActiveKey(userID)).Result()
		if err != nil {
			return backendError(b, err)
		}
		ids = make([]int64, 0, len(members))
		for _, m := range members {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				return serializationError(b.With("member", m), fmt.Errorf("battle id: %w", err))
			}
			ids = append(ids, id)
		}
		slices.Sort(ids)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
