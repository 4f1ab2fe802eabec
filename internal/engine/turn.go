// Package engine implements the duel engine's deterministic turn
// resolution (spec §4.2, C2): ResolveTurn is a pure function of
// (BattleDomainState, actionA, actionB) — no clock, no implicit RNG, no I/O.
package engine

import (
	"fmt"

	"forgefight.gg/duel-server/internal/battledom"
	"forgefight.gg/duel-server/internal/combat"
)

// AttackOutcome classifies the result of one direction's attack resolution.
type AttackOutcome string

const (
	OutcomeNoAction              AttackOutcome = "NoAction"
	OutcomeDodged                AttackOutcome = "Dodged"
	OutcomeBlocked               AttackOutcome = "Blocked"
	OutcomeHit                   AttackOutcome = "Hit"
	OutcomeCriticalHit           AttackOutcome = "CriticalHit"
	OutcomeCriticalBypassBlock   AttackOutcome = "CriticalBypassBlock"
	OutcomeCriticalHybridBlocked AttackOutcome = "CriticalHybridBlocked"
)

// AttackResolution is the full, reproducible record of one attacker's
// attack against one defender within a turn.
type AttackResolution struct {
	AttackerID string        `json:"attacker_id"`
	DefenderID string        `json:"defender_id"`
	Outcome    AttackOutcome `json:"outcome"`
	Damage     int           `json:"damage"`
	WasBlocked bool          `json:"was_blocked"` // observability only: zone matched a block pattern, even if dodged
}

// TurnLog is the ordered pair of attack resolutions for one turn:
// attacker A -> defender B, then attacker B -> defender A.
type TurnLog struct {
	AToB AttackResolution `json:"a_to_b"`
	BToA AttackResolution `json:"b_to_a"`
}

// EventKind discriminates the engine's output events.
type EventKind string

const (
	EventPlayerDamaged EventKind = "PlayerDamaged"
	EventTurnResolved  EventKind = "TurnResolved"
	EventBattleEnded   EventKind = "BattleEnded"
)

// Event is one entry in ResolveTurn's ordered output.
type Event struct {
	Kind   EventKind
	PlayerDamaged *PlayerDamagedEvent `json:"player_damaged,omitempty"`
	TurnResolved  *TurnResolvedEvent  `json:"turn_resolved,omitempty"`
	BattleEnded   *BattleEndedEvent   `json:"battle_ended,omitempty"`
}

type PlayerDamagedEvent struct {
	PlayerID    string `json:"player_id"`
	Damage      int    `json:"damage"`
	RemainingHp int    `json:"remaining_hp"`
	TurnIndex   int    `json:"turn_index"`
}

type TurnResolvedEvent struct {
	TurnIndex int     `json:"turn_index"`
	Log       TurnLog `json:"log"`
}

type BattleEndedEvent struct {
	Reason         battledom.EndReason `json:"reason"`
	WinnerPlayerID string              `json:"winner_player_id,omitempty"`
}

// BattleDomainState is the subset of Battle the turn engine reads and
// produces a new copy of. It deliberately excludes persistence-only fields
// (Version, DeadlineUtcMs) which the state store owns exclusively.
type BattleDomainState struct {
	BattleID  string
	MatchID   string
	Ruleset   battledom.Ruleset
	Phase     battledom.Phase
	TurnIndex int

	NoActionStreakBoth   int
	LastResolvedTurnIndex int

	PlayerA battledom.PlayerState
	PlayerB battledom.PlayerState
}

// InvalidStateError is raised when ResolveTurn's precondition is violated:
// a programmer error, not a runtime condition to recover from.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("engine: invalid state: %s", e.Reason)
}

// ResolveTurn resolves one turn from (state, actionA, actionB), returning
// the new domain state and the ordered events produced. Calling it twice
// with equal inputs produces equal outputs (spec §8 property 5).
//
// Precondition: state.Phase == Resolving and both actions carry
// TurnIndex == state.TurnIndex.
func ResolveTurn(state BattleDomainState, actionA, actionB battledom.PlayerAction) (BattleDomainState, []Event, error) {
	if state.Phase != battledom.PhaseResolving {
		return BattleDomainState{}, nil, &InvalidStateError{Reason: "phase is not Resolving"}
	}
	if actionA.TurnIndex != state.TurnIndex || actionB.TurnIndex != state.TurnIndex {
		return BattleDomainState{}, nil, &InvalidStateError{Reason: "action turn index does not match state"}
	}

	next := state // shallow copy; PlayerState/Ruleset are value types

	abStream := combat.NewStream(state.BattleID, state.MatchID, state.Ruleset.Seed, state.TurnIndex, combat.DirectionAToB)
	baStream := combat.NewStream(state.BattleID, state.MatchID, state.Ruleset.Seed, state.TurnIndex, combat.DirectionBToA)

	balance := state.Ruleset.CombatBalance
	aToB := resolveAttack(actionA, actionB, state.PlayerA, state.PlayerB, balance, abStream)
	bToA := resolveAttack(actionB, actionA, state.PlayerB, state.PlayerA, balance, baStream)

	// Simultaneous damage: both computed from the pre-turn snapshot, both
	// applied against pre-turn HP, so a lethal exchange can be mutual.
	newHpA := clampHp(state.PlayerA.CurrentHp-bToA.Damage, state.PlayerA.MaxHp)
	newHpB := clampHp(state.PlayerB.CurrentHp-aToB.Damage, state.PlayerB.MaxHp)
	next.PlayerA.CurrentHp = newHpA
	next.PlayerB.CurrentHp = newHpB

	var events []Event

	bothNoAction := actionA.IsNoAction() && actionB.IsNoAction()
	if bothNoAction {
		next.NoActionStreakBoth = state.NoActionStreakBoth + 1
	} else {
		next.NoActionStreakBoth = 0
		if aToB.Damage > 0 {
			events = append(events, Event{Kind: EventPlayerDamaged, PlayerDamaged: &PlayerDamagedEvent{
				PlayerID: state.PlayerB.PlayerID, Damage: aToB.Damage, RemainingHp: newHpB, TurnIndex: state.TurnIndex,
			}})
		}
		if bToA.Damage > 0 {
			events = append(events, Event{Kind: EventPlayerDamaged, PlayerDamaged: &PlayerDamagedEvent{
				PlayerID: state.PlayerA.PlayerID, Damage: bToA.Damage, RemainingHp: newHpA, TurnIndex: state.TurnIndex,
			}})
		}
	}

	events = append(events, Event{Kind: EventTurnResolved, TurnResolved: &TurnResolvedEvent{
		TurnIndex: state.TurnIndex,
		Log:       TurnLog{AToB: aToB, BToA: bToA},
	}})

	if bothNoAction && next.NoActionStreakBoth >= state.Ruleset.NoActionLimit {
		next.Phase = battledom.PhaseEnded
		events = append(events, Event{Kind: EventBattleEnded, BattleEnded: &BattleEndedEvent{
			Reason: battledom.EndReasonDoubleForfeit,
		}})
		return next, events, nil
	}

	aDead := next.PlayerA.CurrentHp <= 0
	bDead := next.PlayerB.CurrentHp <= 0
	if aDead || bDead {
		next.Phase = battledom.PhaseEnded
		winner := ""
		switch {
		case aDead && !bDead:
			winner = state.PlayerB.PlayerID
		case bDead && !aDead:
			winner = state.PlayerA.PlayerID
		}
		events = append(events, Event{Kind: EventBattleEnded, BattleEnded: &BattleEndedEvent{
			Reason: battledom.EndReasonNormal, WinnerPlayerID: winner,
		}})
		return next, events, nil
	}

	// Otherwise the phase remains Resolving; the caller (turn service) is
	// responsible for committing the next turn via the state store.
	return next, events, nil
}

func clampHp(hp, max int) int {
	if hp < 0 {
		return 0
	}
	if hp > max {
		return max
	}
	return hp
}

// resolveAttack runs the authoritative per-direction resolution order
// (spec §4.2) for one attacker against one defender.
func resolveAttack(attackerAction, defenderAction battledom.PlayerAction, attacker, defender battledom.PlayerState, balance battledom.CombatBalance, rng *combat.Rand) AttackResolution {
	res := AttackResolution{AttackerID: attacker.PlayerID, DefenderID: defender.PlayerID}

	if attackerAction.IsNoAction() {
		res.Outcome = OutcomeNoAction
		return res
	}

	attackerDerived := combat.DeriveStats(attacker.Stats, balance)
	defenderDerived := combat.DeriveStats(defender.Stats, balance)

	zoneMatched := defenderAction.Quality == battledom.QualityValid &&
		battledom.ZoneMatchesBlock(attackerAction.AttackZone, defenderAction.BlockZonePrimary, defenderAction.BlockZoneSecondary)

	dodgeChance := combat.DodgeChance(balance.DodgeCurve, defenderDerived, attackerDerived)
	if rng.Float64() < dodgeChance {
		res.Outcome = OutcomeDodged
		res.WasBlocked = zoneMatched
		return res
	}

	critChance := combat.CritChance(balance.CritCurve, attackerDerived, defenderDerived)
	isCrit := rng.Float64() < critChance

	hybridBlocked := false
	if zoneMatched {
		if !isCrit {
			res.Outcome = OutcomeBlocked
			return res
		}
		switch balance.CritMode {
		case battledom.CritModeHybrid:
			res.Outcome = OutcomeCriticalHybridBlocked
			hybridBlocked = true
		default: // BypassBlock
			res.Outcome = OutcomeCriticalBypassBlock
		}
	} else if isCrit {
		res.Outcome = OutcomeCriticalHit
	} else {
		res.Outcome = OutcomeHit
	}

	raw := combat.RollDamage(rng, attackerDerived.DamageMin, attackerDerived.DamageMax)
	if isCrit {
		raw *= balance.CritMultiplier
	}
	if hybridBlocked {
		raw *= balance.HybridBlockMultiplier
	}

	damage := combat.RoundAwayFromZero(raw)
	if damage <= 0 {
		// Rounding collapsed to nothing. The zoneMatched/non-crit path
		// already returned Blocked before ever rolling damage, so in
		// practice only the plain Hit path reaches here — but collapsing
		// unconditionally keeps both invariants (damage 0 implies
		// NoAction/Dodged/Blocked; any Critical* implies damage > 0)
		// true regardless of how aggressive a balance config's spread is.
		res.Outcome = OutcomeBlocked
		res.Damage = 0
		res.WasBlocked = zoneMatched
		return res
	}

	res.Damage = damage
	res.WasBlocked = zoneMatched
	return res
}
