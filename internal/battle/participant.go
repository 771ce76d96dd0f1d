// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import (
	"context"
)

// ParticipantStore keeps one field map per (battle, participant). Each record
// carries its own expiry, refreshed on every write and independent of the
// battle's state record.
type ParticipantStore struct {
	runner
}

// NewParticipantStore creates a ParticipantStore.
func NewParticipantStore(p Provider, opts ...Option) *ParticipantStore {
	return &ParticipantStore{runner: newRunner(p, opts)}
}

// Set writes the given fields into the participant's record, leaving fields
// not named in the map untouched, then reapplies the record's expiry.
//
// The write and the expiry are two commands: a concurrent reader may see the
// new fields before the expiry is refreshed. An empty map writes nothing.
func (s *ParticipantStore) Set(ctx context.Context, battleID, participantID int64, fields Fields) error {
	b := s.builder("set_participant").
		With("battle_id", battleID).
		With("participant_id", participantID)

	if len(fields) == 0 {
		return nil
	}
	values, err := encodeFields(fields)
	if err != nil {
		return s.reject(ctx, "set_participant", serializationError(b, err))
	}

	key := ParticipantKey(battleID, participantID)
	return s.run(ctx, "set_participant", b, func(ctx context.Context, conn Conn) error {
		if err := conn.HSet(ctx, key, values).Err(); err != nil {
			return backendError(b, err)
		}
		if err := conn.Expire(ctx, key, s.opts.participantTTL).Err(); err != nil {
			return backendError(b, err)
		}
		s.opts.logger.DebugContext(ctx, "stored participant",
			"battle_id", battleID, "participant_id", participantID, "fields", len(values))
		return nil
	})
}

// Get returns every field of the participant's record. It returns an error
// wrapping ErrNotFound when the record does not exist.
func (s *ParticipantStore) Get(ctx context.Context, battleID, participantID int64) (Fields, error) {
	b := s.builder("get_participant").
		With("battle_id", battleID).
		With("participant_id", participantID)

	var fields Fields
	err := s.run(ctx, "get_participant", b, func(ctx context.Context, conn Conn) error {
		raw, err := conn.HGetAll(ctx, ParticipantKey(battleID, participantID)).Result()
		if err != nil {
			return backendError(b, err)
		}
		// HGETALL on a missing key is an empty reply, not nil.
		if len(raw) == 0 {
			return notFoundError(b, CodeParticipantNotFound)
		}
		fields = decodeFields(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}
