// Package worker implements C6: the deadline-driven scheduler that claims
// battles whose turn deadline has passed and drives their resolution.
package worker

import (
	"context"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"forgefight.gg/duel-server/internal/config"
	"forgefight.gg/duel-server/internal/obs"
	"forgefight.gg/duel-server/internal/ports"
	"forgefight.gg/duel-server/internal/store"
)

// Store is the subset of C3 the deadline worker depends on.
type Store interface {
	ClaimDueBattles(ctx context.Context, now time.Time, limit int, leaseTTL, smallDelay time.Duration) ([]store.ClaimedBattle, error)
}

// Resolver is the subset of C5 the deadline worker drives.
type Resolver interface {
	ResolveTurn(ctx context.Context, battleID string) (bool, error)
}

// Worker runs the single long-lived per-process deadline tick loop.
type Worker struct {
	store    Store
	resolver Resolver
	clock    ports.Clock
	cfg      config.WorkerConfig
	logger   runtime.Logger
}

func New(store Store, resolver Resolver, clock ports.Clock, cfg config.WorkerConfig, logger runtime.Logger) *Worker {
	return &Worker{store: store, resolver: resolver, clock: clock, cfg: cfg, logger: logger}
}

// Run ticks until ctx is cancelled, applying the adaptive backoff described
// in spec §4.6 step 3: an empty batch backs off exponentially between
// IdleDelayMin and IdleDelayMax; a non-empty batch uses the short
// BacklogDelay to chase any remaining backlog.
func (w *Worker) Run(ctx context.Context) {
	idleDelay := w.cfg.IdleDelayMin
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		claimed, err := w.tick(ctx)
		if err != nil {
			obs.Error(ctx, w.logger, obs.Fields{}, "deadline worker tick failed", err)
			if !sleep(ctx, w.cfg.ErrorDelay) {
				return
			}
			continue
		}

		if len(claimed) == 0 {
			if !sleep(ctx, idleDelay) {
				return
			}
			idleDelay *= 2
			if idleDelay > w.cfg.IdleDelayMax {
				idleDelay = w.cfg.IdleDelayMax
			}
			continue
		}

		idleDelay = w.cfg.IdleDelayMin
		if !sleep(ctx, w.cfg.BacklogDelay) {
			return
		}
	}
}

// tick performs one claim-and-resolve pass (spec §4.6 steps 1-2). Resolver
// failures for individual battles are logged and left for the lease to
// expire; one battle's transient failure must not abort the batch.
func (w *Worker) tick(ctx context.Context) ([]store.ClaimedBattle, error) {
	now := w.clock.Now()
	claimed, err := w.store.ClaimDueBattles(ctx, now, w.cfg.BatchSize, w.cfg.LeaseTtl, w.cfg.SmallDelay)
	if err != nil {
		return nil, err
	}
	for _, battle := range claimed {
		if ctx.Err() != nil {
			return claimed, nil
		}
		if _, err := w.resolver.ResolveTurn(ctx, battle.BattleID); err != nil {
			fields := obs.Fields{BattleID: battle.BattleID, TurnIndex: battle.TurnIndex}
			obs.Error(ctx, w.logger, fields, "resolve turn failed, leaving for lease expiry", err)
		}
	}
	return claimed, nil
}

// sleep waits for d or ctx cancellation, reporting whether it completed
// without being cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
