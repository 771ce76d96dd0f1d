// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil logs and asserts on oops errors.
package errutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/oops"
)

// notFoundSuffix marks error codes for expected misses.
const notFoundSuffix = "_NOT_FOUND"

// Code returns err's oops code as a string, or "" when it has none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := fmt.Sprint(oopsErr.Code()); code {
	case "", "<nil>":
		return ""
	default:
		return code
	}
}

// LogError logs err with its oops code, domain and context when present.
// Errors whose code ends in _NOT_FOUND describe expected misses and are
// logged at debug level; everything else is logged at error level.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	level := slog.LevelError
	attrs := []slog.Attr{slog.String("error", err.Error())}

	if oopsErr, ok := oops.AsOops(err); ok {
		if code := Code(err); code != "" {
			attrs = append(attrs, slog.String("code", code))
			if strings.HasSuffix(code, notFoundSuffix) {
				level = slog.LevelDebug
			}
		}
		if domain := oopsErr.Domain(); domain != "" {
			attrs = append(attrs, slog.String("domain", domain))
		}
		if c := oopsErr.Context(); len(c) > 0 {
			attrs = append(attrs, slog.Any("context", c))
		}
	}

	logger.LogAttrs(ctx, level, msg, attrs...)
}
