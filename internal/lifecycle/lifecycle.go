// Package lifecycle implements C4: turning an inbound BattleCreated event
// into an initialized Battle record and its first open turn.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"forgefight.gg/duel-server/internal/battledom"
	"forgefight.gg/duel-server/internal/combat"
	"forgefight.gg/duel-server/internal/events"
	"forgefight.gg/duel-server/internal/notify"
	"forgefight.gg/duel-server/internal/ports"
)

// Store is the subset of C3 the lifecycle service depends on.
type Store interface {
	TryInitialize(ctx context.Context, battle battledom.Battle) (bool, error)
	TryOpenTurn(ctx context.Context, battleID string, turnIndex int, deadlineUtcMs int64) (bool, error)
	GetState(ctx context.Context, battleID string) (*battledom.Battle, error)
}

// Service implements C4's HandleBattleCreated.
type Service struct {
	store    Store
	profiles ports.ProfileSource
	balance  ports.BalanceProvider
	clock    ports.Clock
	notifier notify.Notifier
}

func New(store Store, profiles ports.ProfileSource, balance ports.BalanceProvider, clock ports.Clock, notifier notify.Notifier) *Service {
	return &Service{store: store, profiles: profiles, balance: balance, clock: clock, notifier: notifier}
}

// HandleBattleCreated implements spec §4.4's six steps. Delivery is
// at-least-once; every step is safe to repeat, and a redelivered event for
// an already-initialized battle returns nil without re-notifying.
func (s *Service) HandleBattleCreated(ctx context.Context, evt events.BattleCreated) error {
	// Validate the raw descriptor before Normalize: Normalize replaces any
	// non-positive TurnSeconds/NoActionLimit with its default, which would
	// hide a negative value from IsValidForInit.
	if !evt.Ruleset.IsValidForInit() {
		return fmt.Errorf("lifecycle: invalid ruleset for battle %s", evt.BattleID)
	}
	ruleset := battledom.Normalize(evt.Ruleset, s.balance.CombatBalance())
	if !battledom.ValidateCombatBalance(ruleset.CombatBalance) {
		return fmt.Errorf("lifecycle: invalid ruleset for battle %s", evt.BattleID)
	}

	statsA, foundA, err := s.profiles.GetPlayerStats(ctx, evt.PlayerAID)
	if err != nil {
		return fmt.Errorf("lifecycle: resolve player A stats: %w", err)
	}
	statsB, foundB, err := s.profiles.GetPlayerStats(ctx, evt.PlayerBID)
	if err != nil {
		return fmt.Errorf("lifecycle: resolve player B stats: %w", err)
	}
	if !foundA || !foundB {
		return fmt.Errorf("lifecycle: missing profile for battle %s (playerA=%v playerB=%v)", evt.BattleID, foundA, foundB)
	}

	initial := battledom.Battle{
		BattleID: evt.BattleID,
		MatchID:  evt.MatchID,
		PlayerA: battledom.PlayerState{
			PlayerID:  evt.PlayerAID,
			CurrentHp: combat.HpMax(statsA, ruleset.CombatBalance),
			MaxHp:     combat.HpMax(statsA, ruleset.CombatBalance),
			Stats:     statsA,
		},
		PlayerB: battledom.PlayerState{
			PlayerID:  evt.PlayerBID,
			CurrentHp: combat.HpMax(statsB, ruleset.CombatBalance),
			MaxHp:     combat.HpMax(statsB, ruleset.CombatBalance),
			Stats:     statsB,
		},
		Ruleset:               ruleset,
		Phase:                 battledom.PhaseArenaOpen,
		TurnIndex:             0,
		LastResolvedTurnIndex: 0,
		Version:               evt.Version,
	}

	// TryInitialize's own result is ignored: redelivery of an already
	// created battle must not abort the rest of this handler, since the
	// first turn may not have opened yet if a prior attempt crashed between
	// steps.
	if _, err := s.store.TryInitialize(ctx, initial); err != nil {
		return fmt.Errorf("lifecycle: TryInitialize: %w", err)
	}

	deadline := s.clock.Now().Add(time.Duration(ruleset.TurnSeconds) * time.Second)
	opened, err := s.store.TryOpenTurn(ctx, evt.BattleID, 1, deadline.UnixMilli())
	if err != nil {
		return fmt.Errorf("lifecycle: TryOpenTurn: %w", err)
	}
	if !opened {
		// Another delivery already opened turn 1 (or moved the battle past
		// it) — nothing left for this call to announce.
		return nil
	}

	// Re-read the committed record rather than trust the locally built
	// `initial` value: TryInitialize is first-write-wins, so a concurrent
	// redelivery may have been the one that actually created the battle.
	current, err := s.store.GetState(ctx, evt.BattleID)
	if err != nil {
		return fmt.Errorf("lifecycle: GetState after open: %w", err)
	}
	if current == nil {
		return fmt.Errorf("lifecycle: battle %s vanished after TryOpenTurn reported success", evt.BattleID)
	}

	if err := s.notifier.BattleReady(ctx, evt.BattleID, current.PlayerA.PlayerID, current.PlayerB.PlayerID); err != nil {
		return fmt.Errorf("lifecycle: notify BattleReady: %w", err)
	}
	if err := s.notifier.TurnOpened(ctx, evt.BattleID, current.TurnIndex, current.DeadlineUtcMs); err != nil {
		return fmt.Errorf("lifecycle: notify TurnOpened: %w", err)
	}
	return nil
}
