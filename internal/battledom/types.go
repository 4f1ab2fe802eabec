// Package battledom holds the duel engine's data model: the Battle record,
// its Ruleset, player actions, and the body-zone ring. Nothing here performs
// I/O; it is the shape every other package reads and writes.
package battledom

// Phase is the discrete stage a Battle occupies.
type Phase string

const (
	PhaseArenaOpen Phase = "ArenaOpen"
	PhaseTurnOpen  Phase = "TurnOpen"
	PhaseResolving Phase = "Resolving"
	PhaseEnded     Phase = "Ended"
)

// EndReason explains why a Battle transitioned to PhaseEnded.
type EndReason string

const (
	EndReasonNormal        EndReason = "Normal"
	EndReasonDoubleForfeit EndReason = "DoubleForfeit"
)

// PlayerStats are the four raw attributes combat math derives from.
type PlayerStats struct {
	Strength int `json:"strength"`
	Stamina  int `json:"stamina"`
	Agility  int `json:"agility"`
	Intellect int `json:"intellect"`
}

// PlayerState is one side's mutable combat state within a Battle.
type PlayerState struct {
	PlayerID  string      `json:"player_id"`
	CurrentHp int         `json:"current_hp"`
	MaxHp     int         `json:"max_hp"` // frozen at initialization
	Stats     PlayerStats `json:"stats"`  // immutable for the battle's lifetime
}

// IsDead reports whether this side has been reduced to zero HP.
func (p PlayerState) IsDead() bool { return p.CurrentHp <= 0 }

// Battle is one duel's full authoritative record (§3 of the spec).
type Battle struct {
	BattleID  string `json:"battle_id"`
	MatchID   string `json:"match_id"`
	PlayerA   PlayerState `json:"player_a"`
	PlayerB   PlayerState `json:"player_b"`
	Ruleset   Ruleset     `json:"ruleset"` // normalized once at init, frozen thereafter

	Phase                 Phase     `json:"phase"`
	TurnIndex             int       `json:"turn_index"`
	DeadlineUtcMs         int64     `json:"deadline_utc_ms"` // meaningless when Phase is ArenaOpen or Ended
	NoActionStreakBoth    int       `json:"no_action_streak_both"`
	LastResolvedTurnIndex int       `json:"last_resolved_turn_index"`
	Version               int64    `json:"version"` // strictly increasing on every committed transition
}

// OtherPlayerID returns the opposing participant's id given one side's id.
// Returns "" if playerID is not a participant.
func (b *Battle) OtherPlayerID(playerID string) string {
	switch playerID {
	case b.PlayerA.PlayerID:
		return b.PlayerB.PlayerID
	case b.PlayerB.PlayerID:
		return b.PlayerA.PlayerID
	default:
		return ""
	}
}

// IsParticipant reports whether playerID is one of this battle's two sides.
func (b *Battle) IsParticipant(playerID string) bool {
	return playerID == b.PlayerA.PlayerID || playerID == b.PlayerB.PlayerID
}

// ActionQuality classifies how a submitted action was normalized.
type ActionQuality string

const (
	QualityValid             ActionQuality = "Valid"
	QualityNoAction           ActionQuality = "NoAction"
	QualityInvalid            ActionQuality = "Invalid"
	QualityLate               ActionQuality = "Late"
	QualityProtocolViolation  ActionQuality = "ProtocolViolation"
)

// RejectReason is the specific cause behind a non-Valid action quality.
type RejectReason string

const (
	RejectNone                RejectReason = ""
	RejectWrongPhase          RejectReason = "WrongPhase"
	RejectWrongTurnIndex      RejectReason = "WrongTurnIndex"
	RejectDeadlinePassed      RejectReason = "DeadlinePassed"
	RejectEmptyPayload        RejectReason = "EmptyPayload"
	RejectInvalidJson         RejectReason = "InvalidJson"
	RejectInvalidAttackZone   RejectReason = "InvalidAttackZone"
	RejectInvalidBlockPrimary RejectReason = "InvalidBlockZonePrimary"
	RejectInvalidBlockSecond  RejectReason = "InvalidBlockZoneSecondary"
	RejectMissingAttackZone   RejectReason = "MissingAttackZone"
	RejectInvalidBlockPattern RejectReason = "InvalidBlockPattern"
)

// PlayerAction is one turn's canonical, normalized intent by one player.
// Invariant: Quality == QualityValid implies AttackZone != ZoneNone.
type PlayerAction struct {
	PlayerID           string       `json:"player_id"`
	TurnIndex          int          `json:"turn_index"`
	AttackZone         BattleZone   `json:"attack_zone"`
	BlockZonePrimary   BattleZone   `json:"block_zone_primary"`
	BlockZoneSecondary BattleZone   `json:"block_zone_secondary"`
	Quality            ActionQuality `json:"quality"`
	RejectReason       RejectReason  `json:"reject_reason,omitempty"`
}

// IsNoAction reports whether this action carries no attack intent.
func (a PlayerAction) IsNoAction() bool {
	return a.Quality != QualityValid || a.AttackZone == ZoneNone
}

// HasBlockPattern reports whether both block zones were supplied.
func (a PlayerAction) HasBlockPattern() bool {
	return a.BlockZonePrimary != ZoneNone && a.BlockZoneSecondary != ZoneNone
}
