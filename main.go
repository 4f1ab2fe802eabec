package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	goredis "github.com/redis/go-redis/v9"

	"forgefight.gg/duel-server/errors"
	"forgefight.gg/duel-server/internal/config"
	"forgefight.gg/duel-server/internal/events"
	"forgefight.gg/duel-server/internal/lifecycle"
	"forgefight.gg/duel-server/internal/notify"
	"forgefight.gg/duel-server/internal/obs"
	"forgefight.gg/duel-server/internal/ports"
	"forgefight.gg/duel-server/internal/rpcadapter"
	"forgefight.gg/duel-server/internal/store"
	"forgefight.gg/duel-server/internal/turnservice"
	"forgefight.gg/duel-server/internal/worker"
)

func newRedisClient() *goredis.Client {
	addr := os.Getenv("DUEL_REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	return goredis.NewClient(&goredis.Options{Addr: addr})
}

func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	initStart := time.Now()

	rdb := newRedisClient()
	stateStore := store.New(rdb, config.ActionTTL)
	notifier := notify.NewNakamaNotifier(nk)
	publisher := notify.NewRedisPublisher(rdb)
	profiles := rpcadapter.NewNakamaProfileSource(nk)
	balance := config.NewStaticBalanceProvider()
	clock := ports.SystemClock{}

	lifecycleSvc := lifecycle.New(stateStore, profiles, balance, clock, notifier)
	turnSvc := turnservice.New(stateStore, clock, notifier, publisher)
	adapter := rpcadapter.New(stateStore, turnSvc)

	if err := initializer.RegisterRpc("join_battle", adapter.JoinBattle); err != nil {
		obs.Error(ctx, logger, obs.Fields{}, "unable to register join_battle", err)
		return err
	}
	if err := initializer.RegisterRpc("submit_turn_action", adapter.SubmitTurnAction); err != nil {
		obs.Error(ctx, logger, obs.Fields{}, "unable to register submit_turn_action", err)
		return err
	}
	if err := initializer.RegisterRpc("battle_created", battleCreatedRpc(lifecycleSvc)); err != nil {
		obs.Error(ctx, logger, obs.Fields{}, "unable to register battle_created", err)
		return err
	}

	deadlineWorker := worker.New(stateStore, turnSvc, clock, config.DefaultWorkerConfig(), logger)
	go deadlineWorker.Run(context.Background())

	obs.Info(ctx, logger, obs.Fields{}, fmt.Sprintf("Duel server loaded in '%d' msec.", time.Since(initStart).Milliseconds()))
	return nil
}

// battleCreatedRpc adapts the inbound BattleCreated integration event (spec
// §6) to an RPC handler, the same trigger style the teacher uses for its
// own integration points (e.g. notify_match_start, submit_match_result).
func battleCreatedRpc(svc *lifecycle.Service) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		var evt events.BattleCreated
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			return "", errors.ErrUnmarshal
		}
		if err := svc.HandleBattleCreated(ctx, evt); err != nil {
			obs.Error(ctx, logger, obs.Fields{BattleID: evt.BattleID}, "HandleBattleCreated failed", err)
			return "", errors.ErrInternalError
		}
		return "{}", nil
	}
}
