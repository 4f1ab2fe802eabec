package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"forgefight.gg/duel-server/internal/battledom"
	"forgefight.gg/duel-server/internal/engine"
)

// streamModeBattle is the custom presence-stream mode this repo uses to
// group the two clients of one battle, the same way the teacher's session
// package groups device presences — see nakama-common's PresenceStream.
const streamModeBattle = 17

// Realtime message kinds, carried in each envelope's Kind field.
const (
	subjectBattleReady   = "BattleReady"
	subjectTurnOpened    = "TurnOpened"
	subjectTurnResolved  = "TurnResolved"
	subjectPlayerDamaged = "PlayerDamaged"
	subjectBattleEnded   = "BattleEnded"
)

// NakamaNotifier pushes battle events to a Nakama presence stream keyed by
// battle id, adapted from the teacher's NotificationSend-based `notify`
// package but broadcasting to a stream rather than one user at a time, since
// §4.8's contract is "per battle group" push.
type NakamaNotifier struct {
	nk runtime.NakamaModule
}

func NewNakamaNotifier(nk runtime.NakamaModule) *NakamaNotifier {
	return &NakamaNotifier{nk: nk}
}

func battleStream(battleID string) runtime.PresenceStream {
	return runtime.PresenceStream{Mode: streamModeBattle, Subject: battleID}
}

// envelope wraps every push with a Kind tag so clients can dispatch without
// separately tracking which stream carried which message.
type envelope struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

func (n *NakamaNotifier) send(ctx context.Context, battleID, kind string, payload interface{}) error {
	data, err := json.Marshal(envelope{Kind: kind, Payload: payload})
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %w", kind, err)
	}
	if err := n.nk.StreamSend(battleStream(battleID), string(data), nil, true); err != nil {
		return fmt.Errorf("notify: stream send %s for battle %s: %w", kind, battleID, err)
	}
	return nil
}

func (n *NakamaNotifier) BattleReady(ctx context.Context, battleID, playerAID, playerBID string) error {
	return n.send(ctx, battleID, subjectBattleReady, map[string]string{
		"battle_id":   battleID,
		"player_a_id": playerAID,
		"player_b_id": playerBID,
	})
}

func (n *NakamaNotifier) TurnOpened(ctx context.Context, battleID string, turnIndex int, deadlineUtcMs int64) error {
	return n.send(ctx, battleID, subjectTurnOpened, map[string]interface{}{
		"battle_id":       battleID,
		"turn_index":      turnIndex,
		"deadline_utc_ms": deadlineUtcMs,
	})
}

func (n *NakamaNotifier) TurnResolved(ctx context.Context, battleID string, turnIndex int, log engine.TurnLog) error {
	return n.send(ctx, battleID, subjectTurnResolved, map[string]interface{}{
		"battle_id":  battleID,
		"turn_index": turnIndex,
		"log":        log,
	})
}

func (n *NakamaNotifier) PlayerDamaged(ctx context.Context, battleID, playerID string, damage, remainingHp, turnIndex int) error {
	return n.send(ctx, battleID, subjectPlayerDamaged, map[string]interface{}{
		"battle_id":    battleID,
		"player_id":    playerID,
		"damage":       damage,
		"remaining_hp": remainingHp,
		"turn_index":   turnIndex,
	})
}

func (n *NakamaNotifier) BattleEnded(ctx context.Context, battleID string, reason battledom.EndReason, winnerPlayerID string, endedAtMs int64) error {
	return n.send(ctx, battleID, subjectBattleEnded, map[string]interface{}{
		"battle_id":        battleID,
		"reason":           reason,
		"winner_player_id": winnerPlayerID,
		"ended_at_ms":      endedAtMs,
	})
}

var _ Notifier = (*NakamaNotifier)(nil)
