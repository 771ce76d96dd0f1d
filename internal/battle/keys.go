// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import "strconv"

// Key suffixes under a battle's namespace.
const (
	suffixState       = "state"
	suffixEvents      = "events"
	suffixModified    = "modified"
	suffixParticipant = "participant"
)

// BattleKey returns "battle:{id}" or "battle:{id}:{suffix}" when suffix is set.
// Battle IDs are integers, so the first ':' after the prefix always ends the ID.
func BattleKey(battleID int64, suffix string) string {
	base := "battle:" + strconv.FormatInt(battleID, 10)
	if suffix == "" {
		return base
	}
	return base + ":" + suffix
}

// UserActiveKey returns the key of a user's active-battle set.
func UserActiveKey(userID int64) string {
	return "active_battles:user:" + strconv.FormatInt(userID, 10)
}

// StateKey returns the key holding a battle's state blob.
func StateKey(battleID int64) string { return BattleKey(battleID, suffixState) }

// EventsKey returns the key holding a battle's event list.
func EventsKey(battleID int64) string { return BattleKey(battleID, suffixEvents) }

// ModifiedKey returns the key holding a battle's last-commit timestamp.
func ModifiedKey(battleID int64) string { return BattleKey(battleID, suffixModified) }

// ParticipantKey returns the key holding one participant's field map.
func ParticipantKey(battleID, participantID int64) string {
	return BattleKey(battleID, suffixParticipant+":"+strconv.FormatInt(participantID, 10))
}
