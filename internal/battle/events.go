// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Event types written by the turn engine.
const (
	EventBattleStart  = "battle_start"
	EventAbility      = "ability"
	EventSwap         = "swap"
	EventItem         = "item"
	EventForfeit      = "forfeit"
	EventStatusEffect = "status_effect"
	EventBattleEnd    = "battle_end"
)

// Reserved keys in an event's JSON object.
const (
	eventKeyType      = "type"
	eventKeyTimestamp = "timestamp"
)

// Event is one entry of a battle's history. On the wire it is a flat JSON
// object: {"type": ..., <fields>..., "timestamp": <unix seconds>}.
// Fields named "type" or "timestamp" are shadowed by the event's own.
type Event struct {
	Type      string
	Fields    map[string]any
	Timestamp time.Time
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		m[k] = v
	}
	m[eventKeyType] = e.Type
	if !e.Timestamp.IsZero() {
		m[eventKeyTimestamp] = unixSeconds(e.Timestamp)
	}
	return json.Marshal(m)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(string(data))
	if err != nil {
		return err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("event must be a JSON object, got %T", v)
	}

	*e = Event{}
	if t, ok := m[eventKeyType]; ok {
		s, ok := t.(string)
		if !ok {
			return fmt.Errorf("event type must be a string, got %T", t)
		}
		e.Type = s
		delete(m, eventKeyType)
	}
	if ts, ok := m[eventKeyTimestamp]; ok {
		switch x := ts.(type) {
		case int64:
			e.Timestamp = time.Unix(x, 0)
		case float64:
			e.Timestamp = fromUnixSeconds(x)
		default:
			return fmt.Errorf("event timestamp must be a number, got %T", ts)
		}
		delete(m, eventKeyTimestamp)
	}
	if len(m) > 0 {
		e.Fields = m
	}
	return nil
}

// unixSeconds renders t as fractional seconds since the epoch.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// fromUnixSeconds reverses unixSeconds at microsecond precision.
func fromUnixSeconds(f float64) time.Time {
	sec := math.Floor(f)
	usec := math.Round((f - sec) * 1e6)
	return time.Unix(int64(sec), int64(usec)*int64(time.Microsecond))
}

// EventLog is an append-only, ordered history per battle. Every append
// slides the log's expiry, so the log outlives the battle only by its TTL.
type EventLog struct {
	runner
}

// NewEventLog creates an EventLog.
func NewEventLog(p Provider, opts ...Option) *EventLog {
	return &EventLog{runner: newRunner(p, opts)}
}

// Append stamps ev with the current time and pushes it to the tail of the
// battle's log, then refreshes the log's expiry.
func (l *EventLog) Append(ctx context.Context, battleID int64, ev Event) error {
	b := l.builder("append_event").With("battle_id", battleID).With("event_type", ev.Type)

	ev.Timestamp = l.opts.now()
	data, err := json.Marshal(ev)
	if err != nil {
		return l.reject(ctx, "append_event", serializationError(b, err))
	}

	key := EventsKey(battleID)
	return l.run(ctx, "append_event", b, func(ctx context.Context, conn Conn) error {
		if err := conn.RPush(ctx, key, data).Err(); err != nil {
			return backendError(b, err)
		}
		if err := conn.Expire(ctx, key, l.opts.eventTTL).Err(); err != nil {
			return backendError(b, err)
		}
		l.opts.logger.DebugContext(ctx, "appended battle event", "battle_id", battleID, "event_type", ev.Type)
		return nil
	})
}

// Recent returns up to limit of the battle's most recent events, oldest
// first. A non-positive limit uses the configured default. Entries that fail
// to decode are logged and skipped. A battle with no log yields no events.
func (l *EventLog) Recent(ctx context.Context, battleID int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = l.opts.eventLimit
	}
	b := l.builder("get_events").With("battle_id", battleID).With("limit", limit)

	var events []Event
	err := l.run(ctx, "get_events", b, func(ctx context.Context, conn Conn) error {
		raw, err := conn.LRange(ctx, EventsKey(battleID), -int64(limit), -1).Result()
		if err != nil {
			return backendError(b, err)
		}
		events = make([]Event, 0, len(raw))
		for i, entry := range raw {
			var ev Event
			if err := json.Unmarshal([]byte(entry), &ev); err != nil {
				l.opts.observer.ObserveEventDecodeFailure()
				l.opts.logger.WarnContext(ctx, "skipping undecodable battle event",
					"battle_id", battleID, "index", i, "error", err)
				continue
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
