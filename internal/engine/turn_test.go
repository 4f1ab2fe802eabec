package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forgefight.gg/duel-server/internal/battledom"
)

func deterministicBalance() battledom.CombatBalance {
	return battledom.CombatBalance{
		HpBase:           100,
		HpPerStamina:     10,
		BaseWeaponDamage: 5,
		KStr:             1,
		KAgi:             0.5,
		KInt:             0.5,
		SpreadMin:        1.0,
		SpreadMax:        1.0,
		MfPerAgi:         1,
		MfPerInt:         1,
		// Curves pinned to 0 so dodge/crit never fire regardless of stream draw.
		DodgeCurve:     battledom.ChanceCurve{Base: 0, Min: 0, Max: 0, Scale: 0, KBase: 1},
		CritCurve:      battledom.ChanceCurve{Base: 0, Min: 0, Max: 0, Scale: 0, KBase: 1},
		CritMode:       battledom.CritModeBypassBlock,
		CritMultiplier: 2,
	}
}

func identicalStats() battledom.PlayerStats {
	return battledom.PlayerStats{Strength: 10, Stamina: 10, Agility: 10, Intellect: 10}
}

func baseState() BattleDomainState {
	balance := deterministicBalance()
	stats := identicalStats()
	return BattleDomainState{
		BattleID: "battle-1",
		MatchID:  "match-1",
		Ruleset: battledom.Ruleset{
			Version: 1, TurnSeconds: 10, NoActionLimit: 3, Seed: 42,
			CombatBalance: balance,
		},
		Phase:     battledom.PhaseResolving,
		TurnIndex: 1,
		PlayerA:   battledom.PlayerState{PlayerID: "A", CurrentHp: 200, MaxHp: 200, Stats: stats},
		PlayerB:   battledom.PlayerState{PlayerID: "B", CurrentHp: 200, MaxHp: 200, Stats: stats},
	}
}

// S2 — one hit, one miss. A attacks Head with no block; B attacks RightLeg
// (A has no block pattern, so it lands as a plain valid attack) and blocks
// {Head, RightArm}, an adjacent pair on the ring.
func TestResolveTurn_S2_OneHitOneBlocked(t *testing.T) {
	state := baseState()

	actionA := battledom.PlayerAction{
		PlayerID: "A", TurnIndex: 1, Quality: battledom.QualityValid,
		AttackZone: battledom.ZoneHead,
	}
	actionB := battledom.PlayerAction{
		PlayerID: "B", TurnIndex: 1, Quality: battledom.QualityValid,
		AttackZone:         battledom.ZoneRightLeg,
		BlockZonePrimary:   battledom.ZoneHead,
		BlockZoneSecondary: battledom.ZoneRightArm,
	}

	next, events, err := ResolveTurn(state, actionA, actionB)
	require.NoError(t, err)

	// BaseDamage = 5 + 10*1 + 10*0.5 + 10*0.5 = 25, spread 1.0 => exactly 25.
	wantDamage := 25

	// A attacks Head, which matches B's block pattern -> Blocked, damage 0.
	assert.Equal(t, battledom.PhaseResolving, next.Phase)

	var turnResolved *TurnResolvedEvent
	for _, e := range events {
		if e.Kind == EventTurnResolved {
			turnResolved = e.TurnResolved
		}
	}
	require.NotNil(t, turnResolved)
	assert.Equal(t, OutcomeBlocked, turnResolved.Log.AToB.Outcome)
	assert.Equal(t, 0, turnResolved.Log.AToB.Damage)

	// B attacks RightLeg, not in A's (empty) block pattern -> Hit.
	assert.Equal(t, OutcomeHit, turnResolved.Log.BToA.Outcome)
	assert.Equal(t, wantDamage, turnResolved.Log.BToA.Damage)

	assert.Equal(t, 200, next.PlayerB.CurrentHp) // unchanged
	assert.Equal(t, 200-wantDamage, next.PlayerA.CurrentHp)
}

func TestResolveTurn_RejectsWrongPhase(t *testing.T) {
	state := baseState()
	state.Phase = battledom.PhaseTurnOpen
	_, _, err := ResolveTurn(state, battledom.PlayerAction{TurnIndex: 1}, battledom.PlayerAction{TurnIndex: 1})
	require.Error(t, err)
	var invalid *InvalidStateError
	assert.ErrorAs(t, err, &invalid)
}

func TestResolveTurn_RejectsTurnIndexMismatch(t *testing.T) {
	state := baseState()
	_, _, err := ResolveTurn(state, battledom.PlayerAction{TurnIndex: 2}, battledom.PlayerAction{TurnIndex: 1})
	require.Error(t, err)
}

func TestResolveTurn_IsPureAndDeterministic(t *testing.T) {
	state := baseState()
	actionA := battledom.PlayerAction{PlayerID: "A", TurnIndex: 1, Quality: battledom.QualityValid, AttackZone: battledom.ZoneHead}
	actionB := battledom.PlayerAction{PlayerID: "B", TurnIndex: 1, Quality: battledom.QualityValid, AttackZone: battledom.ZoneGroin}

	next1, events1, err1 := ResolveTurn(state, actionA, actionB)
	next2, events2, err2 := ResolveTurn(state, actionA, actionB)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, next1, next2)
	assert.Equal(t, events1, events2)
}

func TestResolveTurn_DoubleNoActionIncrementsStreakWithoutEnding(t *testing.T) {
	state := baseState()
	state.Ruleset.NoActionLimit = 3
	noAction := func(playerID string) battledom.PlayerAction {
		return battledom.PlayerAction{PlayerID: playerID, TurnIndex: 1, Quality: battledom.QualityNoAction}
	}

	next, events, err := ResolveTurn(state, noAction("A"), noAction("B"))
	require.NoError(t, err)
	assert.Equal(t, 1, next.NoActionStreakBoth)
	assert.Equal(t, battledom.PhaseResolving, next.Phase)
	for _, e := range events {
		assert.NotEqual(t, EventBattleEnded, e.Kind)
		assert.NotEqual(t, EventPlayerDamaged, e.Kind)
	}
}

func TestResolveTurn_DoubleForfeitAtStreakLimit(t *testing.T) {
	state := baseState()
	state.Ruleset.NoActionLimit = 3
	state.NoActionStreakBoth = 2 // this turn is the third in a row
	noAction := func(playerID string) battledom.PlayerAction {
		return battledom.PlayerAction{PlayerID: playerID, TurnIndex: 1, Quality: battledom.QualityNoAction}
	}

	next, events, err := ResolveTurn(state, noAction("A"), noAction("B"))
	require.NoError(t, err)
	assert.Equal(t, battledom.PhaseEnded, next.Phase)

	var ended *BattleEndedEvent
	for _, e := range events {
		if e.Kind == EventBattleEnded {
			ended = e.BattleEnded
		}
	}
	require.NotNil(t, ended)
	assert.Equal(t, battledom.EndReasonDoubleForfeit, ended.Reason)
	assert.Empty(t, ended.WinnerPlayerID)
}

func TestResolveTurn_MutualLethalDamageEndsInNoWinner(t *testing.T) {
	state := baseState()
	state.PlayerA.CurrentHp = 10
	state.PlayerB.CurrentHp = 10
	// SpreadMin/Max = 1.0 with these stats guarantees lethal damage both ways.
	actionA := battledom.PlayerAction{PlayerID: "A", TurnIndex: 1, Quality: battledom.QualityValid, AttackZone: battledom.ZoneHead}
	actionB := battledom.PlayerAction{PlayerID: "B", TurnIndex: 1, Quality: battledom.QualityValid, AttackZone: battledom.ZoneGroin}

	next, events, err := ResolveTurn(state, actionA, actionB)
	require.NoError(t, err)
	assert.Equal(t, 0, next.PlayerA.CurrentHp)
	assert.Equal(t, 0, next.PlayerB.CurrentHp)
	assert.Equal(t, battledom.PhaseEnded, next.Phase)

	var ended *BattleEndedEvent
	for _, e := range events {
		if e.Kind == EventBattleEnded {
			ended = e.BattleEnded
		}
	}
	require.NotNil(t, ended)
	assert.Equal(t, battledom.EndReasonNormal, ended.Reason)
	assert.Empty(t, ended.WinnerPlayerID)
}

func TestResolveTurn_DamageZeroImpliesSafeOutcome(t *testing.T) {
	state := baseState()
	actionA := battledom.PlayerAction{PlayerID: "A", TurnIndex: 1, Quality: battledom.QualityValid, AttackZone: battledom.ZoneHead}
	actionB := battledom.PlayerAction{
		PlayerID: "B", TurnIndex: 1, Quality: battledom.QualityValid, AttackZone: battledom.ZoneGroin,
		BlockZonePrimary: battledom.ZoneHead, BlockZoneSecondary: battledom.ZoneRightArm,
	}
	_, events, err := ResolveTurn(state, actionA, actionB)
	require.NoError(t, err)

	for _, e := range events {
		if e.Kind != EventTurnResolved {
			continue
		}
		for _, res := range []AttackResolution{e.TurnResolved.Log.AToB, e.TurnResolved.Log.BToA} {
			if res.Damage == 0 {
				assert.Contains(t, []AttackOutcome{OutcomeNoAction, OutcomeDodged, OutcomeBlocked}, res.Outcome)
			}
			if res.Outcome == OutcomeCriticalHit || res.Outcome == OutcomeCriticalBypassBlock || res.Outcome == OutcomeCriticalHybridBlocked {
				assert.Greater(t, res.Damage, 0)
			}
		}
	}
}
