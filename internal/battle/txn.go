// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Update is the set of changes one turn commits together. Zero-valued parts
// are skipped; the modified marker is always written.
type Update struct {
	// State replaces the battle's state blob when non-nil.
	State any
	// Event is appended to the battle's log when non-nil.
	Event *Event
	// Participants maps participant ID to the fields to write.
	Participants map[int64]Fields
}

// Coordinator applies multi-record updates to a battle in one round trip.
//
// Every value is encoded before anything is sent, so an encoding failure
// leaves the backend untouched. The batch is then submitted as MULTI/EXEC:
// other clients never observe a half-applied commit. Redis does not roll back
// inside EXEC, so if one queued command is rejected (WRONGTYPE, OOM) Commit
// reports ErrBackendCommand and the remaining commands stay applied.
type Coordinator struct {
	runner
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(p Provider, opts ...Option) *Coordinator {
	return &Coordinator{runner: newRunner(p, opts)}
}

type participantWrite struct {
	key    string
	values map[string]any
}

// Commit writes u and refreshes the battle's modified marker.
func (c *Coordinator) Commit(ctx context.Context, battleID int64, u Update) error {
	batchID := ulid.Make().String()
	b := c.builder("commit").With("battle_id", battleID).With("batch_id", batchID)
	now := c.opts.now()

	var stateData []byte
	if u.State != nil {
		data, err := json.Marshal(u.State)
		if err != nil {
			return c.reject(ctx, "commit", serializationError(b.With("part", "state"), err))
		}
		stateData = data
	}

	var eventData []byte
	if u.Event != nil {
		ev := *u.Event
		ev.Timestamp = now
		data, err := json.Marshal(ev)
		if err != nil {
			return c.reject(ctx, "commit", serializationError(b.With("part", "event"), err))
		}
		eventData = data
	}

	writes := make([]participantWrite, 0, len(u.Participants))
	for _, pid := range slices.Sorted(maps.Keys(u.Participants)) {
		fields := u.Participants[pid]
		if len(fields) == 0 {
			continue
		}
		values, err := encodeFields(fields)
		if err != nil {
			return c.reject(ctx, "commit", serializationError(
				b.With("part", "participant").With("participant_id", pid), err))
		}
		writes = append(writes, participantWrite{key: ParticipantKey(battleID, pid), values: values})
	}

	marker := strconv.FormatFloat(unixSeconds(now), 'f', 6, 64)

	return c.run(ctx, "commit", b, func(ctx context.Context, conn Conn) error {
		cmds, err := conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if stateData != nil {
				pipe.SetEx(ctx, StateKey(battleID), stateData, c.opts.stateTTL)
			}
			if eventData != nil {
				pipe.RPush(ctx, EventsKey(battleID), eventData)
				pipe.Expire(ctx, EventsKey(battleID), c.opts.eventTTL)
			}
			for _, w := range writes {
				pipe.HSet(ctx, w.key, w.values)
				pipe.Expire(ctx, w.key, c.opts.participantTTL)
			}
			pipe.SetEx(ctx, ModifiedKey(battleID), marker, c.opts.modifiedTTL)
			return nil
		})
		if err != nil {
			return backendError(b.With("commands", len(cmds)).With("failed_commands", countFailed(cmds)), err)
		}
		c.opts.logger.DebugContext(ctx, "committed battle update",
			"battle_id", battleID, "batch_id", batchID, "commands", len(cmds))
		return nil
	})
}

// LastModified returns the time of the battle's most recent commit.
func (c *Coordinator) LastModified(ctx context.Context, battleID int64) (time.Time, error) {
	b := c.builder("last_modified").With("battle_id", battleID)
	var ts time.Time
	err := c.run(ctx, "last_modified", b, func(ctx context.Context, conn Conn) error {
		raw, err := conn.Get(ctx, ModifiedKey(battleID)).Result()
		if errors.Is(err, redis.Nil) {
			return notFoundError(b, CodeModifiedNotFound)
		}
		if err != nil {
			return backendError(b, err)
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return serializationError(b, fmt.Errorf("modified marker: %w", err))
		}
		ts = fromUnixSeconds(f)
		return nil
	})
	return ts, err
}

// EndBattle removes every record of a battle in one MULTI/EXEC: state, event
// log, modified marker, the named participant records, and the battle's
// membership in each named user's active set. Records that are already gone
// are ignored.
func (c *Coordinator) EndBattle(ctx context.Context, battleID int64, participantIDs, userIDs []int64) error {
	b := c.builder("end_battle").With("battle_id", battleID)

	keys := []string{StateKey(battleID), EventsKey(battleID), ModifiedKey(battleID)}
	for _, pid := range participantIDs {
		keys = append(keys, ParticipantKey(battleID, pid))
	}
	member := strconv.FormatInt(battleID, 10)

	return c.run(ctx, "end_battle", b, func(ctx context.Context, conn Conn) error {
		var del *redis.IntCmd
		_, err := conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			del = pipe.Del(ctx, keys...)
			for _, uid := range userIDs {
				pipe.SRem(ctx, UserActiveKey(uid), member)
			}
			return nil
		})
		if err != nil {
			return backendError(b, err)
		}
		c.opts.logger.DebugContext(ctx, "ended battle",
			"battle_id", battleID, "deleted_keys", del.Val(), "users", len(userIDs))
		return nil
	})
}

func countFailed(cmds []redis.Cmder) int {
	n := 0
	for _, cmd := range cmds {
		if cmd.Err() != nil {
			n++
		}
	}
	return n
}
