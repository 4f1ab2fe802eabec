// Package notify defines the C8 outbound ports (real-time notifier,
// integration event publisher) and their production implementations —
// Nakama's realtime notification channel, and Redis Pub/Sub for the
// integration bus.
package notify

import (
	"context"

	"forgefight.gg/duel-server/internal/battledom"
	"forgefight.gg/duel-server/internal/engine"
)

// Notifier pushes battle events to the clients of one battle. Implementations
// must not block the caller on a slow or disconnected client for long; the
// hot submission/resolution path depends on bounded notifier calls (§5).
type Notifier interface {
	BattleReady(ctx context.Context, battleID, playerAID, playerBID string) error
	TurnOpened(ctx context.Context, battleID string, turnIndex int, deadlineUtcMs int64) error
	TurnResolved(ctx context.Context, battleID string, turnIndex int, log engine.TurnLog) error
	PlayerDamaged(ctx context.Context, battleID, playerID string, damage, remainingHp, turnIndex int) error
	BattleEnded(ctx context.Context, battleID string, reason battledom.EndReason, winnerPlayerID string, endedAtMs int64) error
}

// Publisher emits events onto the integration bus. PublishBattleEnded must
// be called exactly once per battle, only after the state store reports
// EndedNow — never speculatively.
type Publisher interface {
	PublishBattleEnded(ctx context.Context, battleID, matchID string, reason battledom.EndReason, winnerPlayerID string, endedAtMs, version int64) error
}
