// Package ports holds the small capability-set interfaces the battle core
// depends on but does not implement: wall-clock time, player profile
// sourcing, and combat balance configuration (spec §9 "port/adapter
// polymorphism").
package ports

import (
	"context"
	"time"

	"forgefight.gg/duel-server/internal/battledom"
)

// Clock abstracts wall-clock access so the engine and services never call
// time.Now() directly — tests substitute a fixed or stepped clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ProfileSource resolves a player's combat stats. Returns found=false
// (not an error) when the player has no profile.
type ProfileSource interface {
	GetPlayerStats(ctx context.Context, playerID string) (stats battledom.PlayerStats, found bool, err error)
}

// BalanceProvider supplies the currently configured CombatBalance used to
// populate a freshly normalized Ruleset.
type BalanceProvider interface {
	CombatBalance() battledom.CombatBalance
}
