// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// Sentinel errors. Every error returned by this package wraps exactly one.
var (
	// ErrNotFound means the key is absent. It is an expected outcome
	// (battle not started yet, record expired) rather than a fault.
	ErrNotFound = errors.New("not found")
	// ErrConnection means the backend was unreachable or timed out.
	ErrConnection = errors.New("cache connection failure")
	// ErrSerialization means a value could not be encoded or decoded.
	ErrSerialization = errors.New("serialization failure")
	// ErrBackendCommand means the backend rejected a command.
	ErrBackendCommand = errors.New("backend command failure")
)

// Error codes attached to returned oops errors.
const (
	CodeStateNotFound       = "BATTLE_STATE_NOT_FOUND"
	CodeParticipantNotFound = "BATTLE_PARTICIPANT_NOT_FOUND"
	CodeModifiedNotFound    = "BATTLE_MODIFIED_NOT_FOUND"
	CodeBattleNotFound      = "BATTLE_NOT_FOUND"
	CodeKeyNotFound         = "CACHE_KEY_NOT_FOUND"
	CodeConnectionFailed    = "CACHE_CONNECTION_FAILED"
	CodeSerializationFailed = "CACHE_SERIALIZATION_FAILED"
	CodeCommandFailed       = "CACHE_COMMAND_FAILED"
)

// Kind classifies an error returned by this package.
type Kind uint8

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	KindNotFound
	KindConnection
	KindSerialization
	KindBackendCommand
	// KindUnknown is reported for errors that did not come from this package.
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindConnection:
		return "connection"
	case KindSerialization:
		return "serialization"
	case KindBackendCommand:
		return "backend_command"
	default:
		return "unknown"
	}
}

// KindOf reports which of the package sentinels err wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrSerialization):
		return KindSerialization
	case errors.Is(err, ErrBackendCommand):
		return KindBackendCommand
	case errors.Is(err, ErrConnection):
		return KindConnection
	default:
		return KindUnknown
	}
}

// IsRetryable reports whether err is an infrastructure failure worth retrying.
// NotFound and Serialization errors are never retryable.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConnection, KindBackendCommand:
		return true
	default:
		return false
	}
}

// backendError converts a go-redis error into a classified oops error.
// Callers that give redis.Nil a domain meaning must check for it first.
func backendError(b oops.OopsErrorBuilder, err error) error {
	var redisErr redis.Error
	switch {
	case errors.Is(err, redis.Nil):
		return b.Code(CodeKeyNotFound).Wrap(ErrNotFound)
	case errors.As(err, &redisErr):
		return b.Code(CodeCommandFailed).Wrap(fmt.Errorf("%w: %w", ErrBackendCommand, err))
	default:
		return b.Code(CodeConnectionFailed).Wrap(fmt.Errorf("%w: %w", ErrConnection, err))
	}
}

func serializationError(b oops.OopsErrorBuilder, err error) error {
	return b.Code(CodeSerializationFailed).Wrap(fmt.Errorf("%w: %w", ErrSerialization, err))
}

func notFoundError(b oops.OopsErrorBuilder, code string) error {
	return b.Code(code).Wrap(ErrNotFound)
}
