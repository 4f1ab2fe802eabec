// Package intake implements C7: parsing a raw client action payload into a
// canonical, always-well-formed PlayerAction. No exception ever crosses
// this boundary — every invalid input normalizes to NoAction with an
// explicit reject reason.
package intake

import (
	"bytes"
	"encoding/json"
	"time"

	"forgefight.gg/duel-server/internal/battledom"
)

// lateBuffer absorbs ordinary network latency around a turn's deadline
// (spec §4.7 step 3: "small network-latency buffer").
const lateBuffer = time.Second

// Input bundles everything the intake pipeline needs to classify one raw
// submission; Battle is the state snapshot read just before normalization.
type Input struct {
	PlayerID        string
	ClientTurnIndex int
	RawPayload      []byte
	Battle          battledom.Battle
	Now             time.Time
}

// wirePayload is the canonical action payload's object form (spec §6).
type wirePayload struct {
	AttackZone         string `json:"attackZone"`
	BlockZonePrimary   string `json:"blockZonePrimary"`
	BlockZoneSecondary string `json:"blockZoneSecondary"`
}

// Normalize runs the nine-step validation order (spec §4.7) and always
// returns a well-formed PlayerAction.
func Normalize(in Input) battledom.PlayerAction {
	base := battledom.PlayerAction{PlayerID: in.PlayerID, TurnIndex: in.ClientTurnIndex}

	if in.Battle.Phase != battledom.PhaseTurnOpen {
		return reject(base, battledom.QualityProtocolViolation, battledom.RejectWrongPhase)
	}
	if in.ClientTurnIndex != in.Battle.TurnIndex {
		base.TurnIndex = in.Battle.TurnIndex
		return reject(base, battledom.QualityProtocolViolation, battledom.RejectWrongTurnIndex)
	}
	if in.Now.After(time.UnixMilli(in.Battle.DeadlineUtcMs).Add(lateBuffer)) {
		return reject(base, battledom.QualityLate, battledom.RejectDeadlinePassed)
	}
	if len(bytes.TrimSpace(in.RawPayload)) == 0 {
		return reject(base, battledom.QualityNoAction, battledom.RejectEmptyPayload)
	}

	var wire wirePayload
	if err := json.Unmarshal(in.RawPayload, &wire); err != nil {
		return reject(base, battledom.QualityInvalid, battledom.RejectInvalidJson)
	}

	attackZone, ok := parseOptionalZone(wire.AttackZone)
	if !ok {
		return reject(base, battledom.QualityInvalid, battledom.RejectInvalidAttackZone)
	}
	blockPrimary, ok := parseOptionalZone(wire.BlockZonePrimary)
	if !ok {
		return reject(base, battledom.QualityInvalid, battledom.RejectInvalidBlockPrimary)
	}
	blockSecondary, ok := parseOptionalZone(wire.BlockZoneSecondary)
	if !ok {
		return reject(base, battledom.QualityInvalid, battledom.RejectInvalidBlockSecond)
	}

	if attackZone == battledom.ZoneNone {
		return reject(base, battledom.QualityInvalid, battledom.RejectMissingAttackZone)
	}

	if (blockPrimary != battledom.ZoneNone) != (blockSecondary != battledom.ZoneNone) {
		// Exactly one of the pair supplied: not a pattern at all, collapses
		// the same as an invalid pattern would.
		return reject(base, battledom.QualityInvalid, battledom.RejectInvalidBlockPattern)
	}
	if blockPrimary != battledom.ZoneNone && !battledom.IsValidBlockPattern(blockPrimary, blockSecondary) {
		return reject(base, battledom.QualityInvalid, battledom.RejectInvalidBlockPattern)
	}

	base.AttackZone = attackZone
	base.BlockZonePrimary = blockPrimary
	base.BlockZoneSecondary = blockSecondary
	base.Quality = battledom.QualityValid
	return base
}

func reject(base battledom.PlayerAction, quality battledom.ActionQuality, reason battledom.RejectReason) battledom.PlayerAction {
	base.Quality = quality
	base.RejectReason = reason
	return base
}

// parseOptionalZone accepts an empty string as "not supplied" (ZoneNone,
// ok=true) and any other value as a case-insensitive zone name; an
// unrecognized non-empty name fails with ok=false.
func parseOptionalZone(raw string) (battledom.BattleZone, bool) {
	if raw == "" {
		return battledom.ZoneNone, true
	}
	zone, ok := battledom.ParseBattleZone(raw)
	return zone, ok
}

// OrNoAction substitutes a canonical NoAction command when a turn's stored
// action is absent — the case where a player never submitted at all.
func OrNoAction(action *battledom.PlayerAction, playerID string, turnIndex int) battledom.PlayerAction {
	if action != nil {
		return *action
	}
	return battledom.PlayerAction{
		PlayerID:     playerID,
		TurnIndex:    turnIndex,
		Quality:      battledom.QualityNoAction,
		RejectReason: battledom.RejectEmptyPayload,
	}
}
