// Package events defines the integration bus envelopes the core consumes
// (BattleCreated) and publishes (BattleEnded). Both are plain JSON, matching
// the serialization style the teacher uses throughout items/ for storage and
// reward payloads — see SPEC_FULL.md's DOMAIN STACK section for why this
// repo does not hand-author protobuf bindings for them.
package events

import "forgefight.gg/duel-server/internal/battledom"

// BattleCreated is the inbound event handled by the lifecycle service (C4).
// Delivery is at-least-once; HandleBattleCreated is idempotent.
type BattleCreated struct {
	BattleID    string            `json:"battle_id"`
	MatchID     string            `json:"match_id"`
	PlayerAID   string            `json:"player_a_id"`
	PlayerBID   string            `json:"player_b_id"`
	Ruleset     battledom.Ruleset `json:"ruleset"`
	CreatedAtMs int64             `json:"created_at_ms"`
	Version     int64             `json:"version"`
}

// BattleEnded is the outbound event published by the turn service (C5)
// exactly once per battle, only when the state store reports EndedNow.
type BattleEnded struct {
	BattleID       string              `json:"battle_id"`
	MatchID        string              `json:"match_id"`
	Reason         battledom.EndReason `json:"reason"`
	WinnerPlayerID string              `json:"winner_player_id,omitempty"`
	EndedAtMs      int64               `json:"ended_at_ms"`
	Version        int64               `json:"version"`
}
