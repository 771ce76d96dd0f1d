// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/battlecache/pkg/errutil"
)

// runner owns the acquire/release discipline shared by every component:
// one timeout-bounded context and one connection per operation.
type runner struct {
	provider Provider
	opts     options
}

func newRunner(p Provider, opts []Option) runner {
	return runner{provider: p, opts: newOptions(opts)}
}

// builder starts an oops error builder tagged with the operation name.
func (r *runner) builder(op string) oops.OopsErrorBuilder {
	return oops.In("battlecache").With("operation", op)
}

// run acquires a connection, runs fn, releases the connection and records
// the outcome. Errors returned by fn must already be classified.
func (r *runner) run(ctx context.Context, op string, b oops.OopsErrorBuilder, fn func(context.Context, Conn) error) (err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.opts.opTimeout)
	defer cancel()

	defer func() {
		r.opts.observer.ObserveCacheOp(op, KindOf(err).String(), time.Since(start))
		if err != nil {
			errutil.LogError(ctx, r.opts.logger, "battle cache operation failed", err)
		}
	}()

	conn, err := r.provider.Conn(ctx)
	if err != nil {
		if KindOf(err) != KindUnknown {
			return err
		}
		return backendError(b, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			r.opts.logger.WarnContext(ctx, "failed to release cache connection",
				"operation", op, "error", cerr)
		}
	}()

	return fn(ctx, conn)
}

// reject records an operation that failed before reaching the backend.
func (r *runner) reject(ctx context.Context, op string, err error) error {
	r.opts.observer.ObserveCacheOp(op, KindOf(err).String(), 0)
	errutil.LogError(ctx, r.opts.logger, "battle cache operation failed", err)
	return err
}
