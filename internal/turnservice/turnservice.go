// Package turnservice implements C5: submitting one player's action for the
// open turn, and resolving a turn once both sides have submitted or its
// deadline has passed.
package turnservice

import (
	"context"
	"fmt"
	"time"

	"forgefight.gg/duel-server/errors"
	"forgefight.gg/duel-server/internal/battledom"
	"forgefight.gg/duel-server/internal/engine"
	"forgefight.gg/duel-server/internal/intake"
	"forgefight.gg/duel-server/internal/notify"
	"forgefight.gg/duel-server/internal/ports"
	"forgefight.gg/duel-server/internal/store"
)

// Store is the subset of C3 the turn service depends on.
type Store interface {
	GetState(ctx context.Context, battleID string) (*battledom.Battle, error)
	StoreActionAndCheckBothSubmitted(ctx context.Context, battleID string, turnIndex int, playerID, otherPlayerID string, action battledom.PlayerAction) (store.StoreResult, bool, error)
	GetActions(ctx context.Context, battleID string, turnIndex int, playerA, playerB string) (actionA, actionB *battledom.PlayerAction, err error)
	TryMarkTurnResolving(ctx context.Context, battleID string, turnIndex int) (bool, error)
	MarkTurnResolvedAndOpenNext(ctx context.Context, battleID string, currentIdx, nextIdx int, nextDeadlineUtcMs int64, streak, hpA, hpB int) (bool, error)
	EndBattleAndMarkResolved(ctx context.Context, battleID string, turnIndex, streak, hpA, hpB int) (store.EndResult, error)
}

// Service implements C5's SubmitAction and ResolveTurn.
type Service struct {
	store     Store
	clock     ports.Clock
	notifier  notify.Notifier
	publisher notify.Publisher
}

func New(s Store, clock ports.Clock, notifier notify.Notifier, publisher notify.Publisher) *Service {
	return &Service{store: s, clock: clock, notifier: notifier, publisher: publisher}
}

// SubmitAction implements spec §4.5's four steps: load state, normalize the
// raw payload via the intake pipeline (C7), store it first-write-wins, and
// trigger immediate resolution when both sides have now submitted.
func (s *Service) SubmitAction(ctx context.Context, battleID, playerID string, clientTurnIndex int, rawPayload []byte) error {
	battle, err := s.store.GetState(ctx, battleID)
	if err != nil {
		return fmt.Errorf("turnservice: GetState: %w", err)
	}
	if battle == nil {
		return errors.ErrBattleNotFound
	}
	if !battle.IsParticipant(playerID) {
		return errors.ErrNotParticipant
	}

	action := intake.Normalize(intake.Input{
		PlayerID:        playerID,
		ClientTurnIndex: clientTurnIndex,
		RawPayload:      rawPayload,
		Battle:          *battle,
		Now:             s.clock.Now(),
	})

	otherPlayerID := battle.OtherPlayerID(playerID)
	_, bothSubmitted, err := s.store.StoreActionAndCheckBothSubmitted(ctx, battleID, battle.TurnIndex, playerID, otherPlayerID, action)
	if err != nil {
		return fmt.Errorf("turnservice: StoreActionAndCheckBothSubmitted: %w", err)
	}
	if !bothSubmitted {
		return nil
	}
	_, err = s.ResolveTurn(ctx, battleID)
	return err
}

// ResolveTurn implements spec §4.5's seven steps. It is safe to call
// concurrently for the same battle and turn: only the caller that wins the
// TryMarkTurnResolving CAS performs the resolution; all others return
// (false, nil).
func (s *Service) ResolveTurn(ctx context.Context, battleID string) (bool, error) {
	battle, err := s.store.GetState(ctx, battleID)
	if err != nil {
		return false, fmt.Errorf("turnservice: GetState: %w", err)
	}
	if battle == nil {
		return false, fmt.Errorf("turnservice: battle %s not found", battleID)
	}
	if battle.Phase != battledom.PhaseTurnOpen {
		return false, nil
	}

	won, err := s.store.TryMarkTurnResolving(ctx, battleID, battle.TurnIndex)
	if err != nil {
		return false, fmt.Errorf("turnservice: TryMarkTurnResolving: %w", err)
	}
	if !won {
		return false, nil
	}

	actionA, actionB, err := s.store.GetActions(ctx, battleID, battle.TurnIndex, battle.PlayerA.PlayerID, battle.PlayerB.PlayerID)
	if err != nil {
		return false, fmt.Errorf("turnservice: GetActions: %w", err)
	}
	normalizedA := intake.OrNoAction(actionA, battle.PlayerA.PlayerID, battle.TurnIndex)
	normalizedB := intake.OrNoAction(actionB, battle.PlayerB.PlayerID, battle.TurnIndex)

	domainState := engine.BattleDomainState{
		BattleID:              battle.BattleID,
		MatchID:               battle.MatchID,
		Ruleset:               battle.Ruleset,
		Phase:                 battledom.PhaseResolving,
		TurnIndex:             battle.TurnIndex,
		NoActionStreakBoth:    battle.NoActionStreakBoth,
		LastResolvedTurnIndex: battle.LastResolvedTurnIndex,
		PlayerA:               battle.PlayerA,
		PlayerB:               battle.PlayerB,
	}
	next, events, err := engine.ResolveTurn(domainState, normalizedA, normalizedB)
	if err != nil {
		return false, fmt.Errorf("turnservice: ResolveTurn: %w", err)
	}

	if next.Phase == battledom.PhaseEnded {
		endReason, winnerPlayerID := endOutcome(events)
		result, err := s.store.EndBattleAndMarkResolved(ctx, battleID, battle.TurnIndex, next.NoActionStreakBoth, next.PlayerA.CurrentHp, next.PlayerB.CurrentHp)
		if err != nil {
			return false, fmt.Errorf("turnservice: EndBattleAndMarkResolved: %w", err)
		}
		if result != store.EndedNow {
			return false, nil
		}

		// TryMarkTurnResolving and EndBattleAndMarkResolved each bump the
		// stored version by one (scripts.go), so the battle read at the top
		// of this call is two versions stale. Re-read the committed record
		// rather than guess the delta, so the published version matches what
		// a concurrent JoinBattle snapshot would observe.
		committed, err := s.store.GetState(ctx, battleID)
		if err != nil {
			return false, fmt.Errorf("turnservice: GetState after end: %w", err)
		}
		if committed == nil {
			return false, fmt.Errorf("turnservice: battle %s vanished after EndBattleAndMarkResolved committed", battleID)
		}

		if err := s.publishResolutionNotifications(ctx, battleID, battle.TurnIndex, events); err != nil {
			return false, err
		}
		endedAtMs := s.clock.Now().UnixMilli()
		if err := s.notifier.BattleEnded(ctx, battleID, endReason, winnerPlayerID, endedAtMs); err != nil {
			return false, fmt.Errorf("turnservice: notify BattleEnded: %w", err)
		}
		if err := s.publisher.PublishBattleEnded(ctx, battleID, battle.MatchID, endReason, winnerPlayerID, endedAtMs, committed.Version); err != nil {
			return false, fmt.Errorf("turnservice: PublishBattleEnded: %w", err)
		}
		return true, nil
	}

	nextIdx := battle.TurnIndex + 1
	nextDeadline := s.clock.Now().Add(turnDuration(battle.Ruleset))
	committed, err := s.store.MarkTurnResolvedAndOpenNext(ctx, battleID, battle.TurnIndex, nextIdx, nextDeadline.UnixMilli(), next.NoActionStreakBoth, next.PlayerA.CurrentHp, next.PlayerB.CurrentHp)
	if err != nil {
		return false, fmt.Errorf("turnservice: MarkTurnResolvedAndOpenNext: %w", err)
	}
	if !committed {
		return false, nil
	}
	if err := s.publishResolutionNotifications(ctx, battleID, battle.TurnIndex, events); err != nil {
		return false, err
	}
	if err := s.notifier.TurnOpened(ctx, battleID, nextIdx, nextDeadline.UnixMilli()); err != nil {
		return false, fmt.Errorf("turnservice: notify TurnOpened: %w", err)
	}
	return true, nil
}

func (s *Service) publishResolutionNotifications(ctx context.Context, battleID string, turnIndex int, events []engine.Event) error {
	for _, evt := range events {
		switch evt.Kind {
		case engine.EventTurnResolved:
			if err := s.notifier.TurnResolved(ctx, battleID, turnIndex, evt.TurnResolved.Log); err != nil {
				return fmt.Errorf("turnservice: notify TurnResolved: %w", err)
			}
		case engine.EventPlayerDamaged:
			d := evt.PlayerDamaged
			if err := s.notifier.PlayerDamaged(ctx, battleID, d.PlayerID, d.Damage, d.RemainingHp, d.TurnIndex); err != nil {
				return fmt.Errorf("turnservice: notify PlayerDamaged: %w", err)
			}
		}
	}
	return nil
}

func endOutcome(events []engine.Event) (battledom.EndReason, string) {
	for _, evt := range events {
		if evt.Kind == engine.EventBattleEnded {
			return evt.BattleEnded.Reason, evt.BattleEnded.WinnerPlayerID
		}
	}
	return battledom.EndReasonNormal, ""
}

func turnDuration(ruleset battledom.Ruleset) time.Duration {
	return time.Duration(ruleset.TurnSeconds) * time.Second
}
