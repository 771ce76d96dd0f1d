// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package battle holds the live state of running battles in Redis: the
// state blob, per-participant field maps, the event log, the per-user
// active-battle index, and a coordinator that commits a turn's changes to
// several of those records in one round trip.
//
// All records expire. Nothing here is durable; final results belong in the
// relational store.
package battle

import (
	"context"
	"errors"
	"time"
)

// Cache groups the battle cache components over one Provider. Commit,
// LastModified and EndBattle are promoted from the Coordinator.
type Cache struct {
	*Coordinator
	State        *StateStore
	Participants *ParticipantStore
	Events       *EventLog
	Active       *ActiveIndex
}

// New creates a Cache whose components share p and opts.
func New(p Provider, opts ...Option) *Cache {
	return &Cache{
		Coordinator:  NewCoordinator(p, opts...),
		State:        NewStateStore(p, opts...),
		Participants: NewParticipantStore(p, opts...),
		Events:       NewEventLog(p, opts...),
		Active:       NewActiveIndex(p, opts...),
	}
}

// Ping checks that the backend answers.
func (c *Cache) Ping(ctx context.Context) error {
	b := c.builder("ping")
	return c.run(ctx, "ping", b, func(ctx context.Context, conn Conn) error {
		if err := conn.Ping(ctx).Err(); err != nil {
			return backendError(b, err)
		}
		return nil
	})
}

// Snapshot is a read of everything cached for one battle. Sub-records expire
// independently, so any part may be missing while others are present.
type Snapshot struct {
	BattleID            int64            `json:"battle_id"`
	State               any              `json:"state,omitempty"`
	Participants        map[int64]Fields `json:"participants,omitempty"`
	MissingParticipants []int64          `json:"missing_participants,omitempty"`
	Events              []Event          `json:"events,omitempty"`
	LastModified        time.Time        `json:"last_modified,omitzero"`

	hasState bool
}

// Empty reports whether nothing at all was found for the battle.
func (s *Snapshot) Empty() bool {
	return !s.hasState && s.State == nil && len(s.Participants) == 0 && len(s.Events) == 0 && s.LastModified.IsZero()
}

// Snapshot reads the battle's state, the named participants, its most recent
// events and its modified marker. Missing parts are left empty; it returns
// ErrNotFound only when every part is missing. Any other failure aborts.
func (c *Cache) Snapshot(ctx context.Context, battleID int64, participantIDs []int64, limit int) (*Snapshot, error) {
	snap := &Snapshot{BattleID: battleID}

	var state any
	switch err := c.State.Get(ctx, battleID, &state); {
	case err == nil:
		snap.State = state
		snap.hasState = true
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	for _, pid := range participantIDs {
		fields, err := c.Participants.Get(ctx, battleID, pid)
		if errors.Is(err, ErrNotFound) {
			snap.MissingParticipants = append(snap.MissingParticipants, pid)
			continue
		}
		if err != nil {
			return nil, err
		}
		if snap.Participants == nil {
			snap.Participants = make(map[int64]Fields, len(participantIDs))
		}
		snap.Participants[pid] = fields
	}

	events, err := c.Events.Recent(ctx, battleID, limit)
	if err != nil {
		return nil, err
	}
	snap.Events = events

	switch ts, err := c.LastModified(ctx, battleID); {
	case err == nil:
		snap.LastModified = ts
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	if snap.Empty() {
		return nil, notFoundError(c.builder("snapshot").With("battle_id", battleID), CodeBattleNotFound)
	}
	return snap, nil
}
