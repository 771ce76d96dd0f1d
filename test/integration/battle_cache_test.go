// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/battlecache/internal/battle"
)

func newCache(opts ...battle.Option) *battle.Cache {
	base := []battle.Option{battle.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return battle.New(env.client, append(base, opts...)...)
}

var _ = Describe("Battle cache against Redis", func() {
	var (
		ctx   context.Context
		cache *battle.Cache
	)

	BeforeEach(func() {
		ctx = context.Background()
		cache = newCache()
	})

	Describe("Commit", func() {
		It("applies state, event, participants and marker together", func() {
			err := cache.Commit(ctx, 1, battle.Update{
				State: map[string]any{"turn": 2},
				Event: &battle.Event{Type: battle.EventSwap, Fields: map[string]any{"to": 3}},
				Participants: map[int64]battle.Fields{
					10: {"hp": 80},
					11: {"hp": 65, "active": "Pikachu"},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			var state map[string]any
			Expect(cache.State.Get(ctx, 1, &state)).To(Succeed())
			Expect(state).To(HaveKeyWithValue("turn", BeNumerically("==", 2)))

			fields, err := cache.Participants.Get(ctx, 1, 11)
			Expect(err).NotTo(HaveOccurred())
			Expect(fields).To(HaveKeyWithValue("hp", int64(65)))
			Expect(fields).To(HaveKeyWithValue("active", "Pikachu"))

			events, err := cache.Events.Recent(ctx, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(battle.EventSwap))

			_, err = cache.LastModified(ctx, 1)
			Expect(err).NotTo(HaveOccurred())

			for _, key := range []string{battle.StateKey(1), battle.EventsKey(1), battle.ModifiedKey(1), battle.ParticipantKey(1, 10)} {
				ttl, err := env.raw.TTL(ctx, key).Result()
				Expect(err).NotTo(HaveOccurred())
				Expect(ttl).To(BeNumerically(">", 29*time.Minute), key)
			}
		})

		It("keeps the other commands when one is rejected", func() {
			Expect(env.raw.Set(ctx, battle.ParticipantKey(2, 20), "not a hash", 0).Err()).To(Succeed())

			err := cache.Commit(ctx, 2, battle.Update{
				State:        map[string]any{"turn": 9},
				Participants: map[int64]battle.Fields{20: {"hp": 1}},
			})
			Expect(err).To(MatchError(battle.ErrBackendCommand))
			Expect(battle.KindOf(err)).To(Equal(battle.KindBackendCommand))

			var state map[string]any
			Expect(cache.State.Get(ctx, 2, &state)).To(Succeed())
			Expect(env.raw.Exists(ctx, battle.ModifiedKey(2)).Val()).To(Equal(int64(1)))
		})

		It("serializes concurrent appends from many goroutines", func() {
			const writers = 16
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := range writers {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- cache.Commit(ctx, 3, battle.Update{
						Event:        &battle.Event{Type: battle.EventAbility, Fields: map[string]any{"n": i}},
						Participants: map[int64]battle.Fields{int64(100 + i): {"hp": i}},
					})
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(env.raw.LLen(ctx, battle.EventsKey(3)).Val()).To(Equal(int64(writers)))
			stats := env.client.Stats()
			Expect(stats.TotalConns).To(Equal(stats.IdleConns), "every connection returned to the pool")
		})
	})

	Describe("Expiry", func() {
		It("drops records once their TTL passes", func() {
			short := newCache(battle.WithTTL(time.Second))
			Expect(short.State.Set(ctx, 4, map[string]any{"turn": 1})).To(Succeed())

			Eventually(func() error {
				var state map[string]any
				return short.State.Get(ctx, 4, &state)
			}).WithTimeout(5 * time.Second).WithPolling(100 * time.Millisecond).
				Should(MatchError(battle.ErrNotFound))
		})
	})

	Describe("Legacy participant fields", func() {
		It("decodes untagged values in the legacy order", func() {
			Expect(env.raw.HSet(ctx, battle.ParticipantKey(5, 50),
				"hp", "50",
				"effects", `["burn"]`,
				"speed", "1.5",
				"flag", "True",
			).Err()).To(Succeed())

			fields, err := cache.Participants.Get(ctx, 5, 50)
			Expect(err).NotTo(HaveOccurred())
			Expect(fields).To(Equal(battle.Fields{
				"hp":      int64(50),
				"effects": []any{"burn"},
				"speed":   1.5,
				"flag":    "True",
			}))
		})
	})

	Describe("EndBattle", func() {
		It("removes the battle and its index entries", func() {
			Expect(cache.Commit(ctx, 6, battle.Update{
				State:        map[string]any{"turn": 1},
				Event:        &battle.Event{Type: battle.EventBattleStart},
				Participants: map[int64]battle.Fields{60: {"hp": 10}},
			})).To(Succeed())
			Expect(cache.Active.Add(ctx, 600, 6)).To(Succeed())
			Expect(cache.Active.Add(ctx, 600, 7)).To(Succeed())

			Expect(cache.EndBattle(ctx, 6, []int64{60}, []int64{600})).To(Succeed())

			Expect(env.raw.Exists(ctx,
				battle.StateKey(6), battle.EventsKey(6), battle.ModifiedKey(6), battle.ParticipantKey(6, 60),
			).Val()).To(BeZero())
			ids, err := cache.Active.List(ctx, 600)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]int64{7}))
		})
	})
})
