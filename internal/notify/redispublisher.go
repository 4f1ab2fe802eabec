package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"forgefight.gg/duel-server/internal/battledom"
	"forgefight.gg/duel-server/internal/events"
)

const battleEndedChannel = "duel:events:battle_ended"

// publisherClient is the narrow slice of redis.Cmdable this package actually
// calls, mirrored from the same minimal-interface pattern internal/store
// uses for its Redis dependency.
type publisherClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher is the production Publisher, emitting BattleEnded envelopes
// onto a Redis Pub/Sub channel for downstream integration consumers.
type RedisPublisher struct {
	rdb publisherClient
}

func NewRedisPublisher(rdb publisherClient) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) PublishBattleEnded(ctx context.Context, battleID, matchID string, reason battledom.EndReason, winnerPlayerID string, endedAtMs, version int64) error {
	evt := events.BattleEnded{
		BattleID:       battleID,
		MatchID:        matchID,
		Reason:         reason,
		WinnerPlayerID: winnerPlayerID,
		EndedAtMs:      endedAtMs,
		Version:        version,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("notify: marshal BattleEnded: %w", err)
	}
	if err := p.rdb.Publish(ctx, battleEndedChannel, data).Err(); err != nil {
		return fmt.Errorf("notify: publish BattleEnded for battle %s: %w", battleID, err)
	}
	return nil
}

var _ Publisher = (*RedisPublisher)(nil)
