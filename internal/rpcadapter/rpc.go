// Package rpcadapter wires the duel core's services onto Nakama's RPC and
// storage surface: JoinBattle/SubmitTurnAction request handling and the
// storage-backed ProfileSource the lifecycle service consumes.
package rpcadapter

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"

	"forgefight.gg/duel-server/errors"
	"forgefight.gg/duel-server/internal/battledom"
	"forgefight.gg/duel-server/internal/obs"
	"forgefight.gg/duel-server/internal/turnservice"
)

// Store is the subset of C3 JoinBattle needs to build its snapshot.
type Store interface {
	GetState(ctx context.Context, battleID string) (*battledom.Battle, error)
}

// Adapter exposes the duel core as Nakama RPC handlers.
type Adapter struct {
	store   Store
	turns   *turnservice.Service
}

func New(store Store, turns *turnservice.Service) *Adapter {
	return &Adapter{store: store, turns: turns}
}

type joinBattleRequest struct {
	BattleID string `json:"battleId"`
}

// battleSnapshot is the wire shape JoinBattle returns (spec §6).
type battleSnapshot struct {
	BattleID              string              `json:"battleId"`
	PlayerAID             string              `json:"playerAId"`
	PlayerBID             string              `json:"playerBId"`
	Ruleset               battledom.Ruleset   `json:"ruleset"`
	Phase                 battledom.Phase     `json:"phase"`
	TurnIndex             int                 `json:"turnIndex"`
	DeadlineUtcMs         int64               `json:"deadlineUtc"`
	NoActionStreakBoth    int                 `json:"noActionStreakBoth"`
	LastResolvedTurnIndex int                 `json:"lastResolvedTurnIndex"`
	Version               int64              `json:"version"`
	HpA                   int                `json:"hpA"`
	HpB                   int                `json:"hpB"`
}

// JoinBattle returns the current snapshot of a battle to a participant.
// Non-participants are rejected with ErrNotParticipant.
func (a *Adapter) JoinBattle(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok {
		return "", errors.ErrNoUserIdFound
	}

	var req joinBattleRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", errors.ErrUnmarshal
	}

	battle, err := a.store.GetState(ctx, req.BattleID)
	if err != nil {
		obs.Error(ctx, logger, obs.Fields{BattleID: req.BattleID, PlayerID: userID}, "JoinBattle: GetState failed", err)
		return "", errors.ErrInternalError
	}
	if battle == nil {
		return "", errors.ErrBattleNotFound
	}
	if !battle.IsParticipant(userID) {
		return "", errors.ErrNotParticipant
	}

	resp, err := json.Marshal(battleSnapshot{
		BattleID:              battle.BattleID,
		PlayerAID:             battle.PlayerA.PlayerID,
		PlayerBID:             battle.PlayerB.PlayerID,
		Ruleset:               battle.Ruleset,
		Phase:                 battle.Phase,
		TurnIndex:             battle.TurnIndex,
		DeadlineUtcMs:         battle.DeadlineUtcMs,
		NoActionStreakBoth:    battle.NoActionStreakBoth,
		LastResolvedTurnIndex: battle.LastResolvedTurnIndex,
		Version:               battle.Version,
		HpA:                   battle.PlayerA.CurrentHp,
		HpB:                   battle.PlayerB.CurrentHp,
	})
	if err != nil {
		return "", errors.ErrMarshal
	}
	return string(resp), nil
}

type submitTurnActionRequest struct {
	BattleID   string          `json:"battleId"`
	TurnIndex  int             `json:"turnIndex"`
	ActionPayload json.RawMessage `json:"actionPayload"`
}

// SubmitTurnAction is fire-and-forget (spec §6): protocol errors never
// propagate as RPC failures, they silently normalize to NoAction inside the
// turn service's intake pipeline. Only transport-level issues (bad
// envelope, missing user, storage unavailable) and the turn service's
// ErrBattleNotFound/ErrNotParticipant rejections surface here.
func (a *Adapter) SubmitTurnAction(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok {
		return "", errors.ErrNoUserIdFound
	}

	var req submitTurnActionRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", errors.ErrUnmarshal
	}

	if err := a.turns.SubmitAction(ctx, req.BattleID, userID, req.TurnIndex, req.ActionPayload); err != nil {
		obs.Error(ctx, logger, obs.Fields{BattleID: req.BattleID, PlayerID: userID, TurnIndex: req.TurnIndex}, "SubmitTurnAction failed", err)
		switch err {
		case errors.ErrBattleNotFound, errors.ErrNotParticipant:
			return "", err
		default:
			return "", errors.ErrInternalError
		}
	}
	return "{}", nil
}
