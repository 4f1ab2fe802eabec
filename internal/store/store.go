// Package store implements the duel engine's atomic state store (spec §4.3,
// C3) against Redis: scripted CAS transitions, a deadline sorted set, and
// first-write-wins action storage with TTL.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"forgefight.gg/duel-server/internal/battledom"
)

// redisClient is the narrow surface this package needs from a Redis client —
// deliberately smaller than redis.Cmdable so it stays mockable in tests,
// the same shape as the teacher pack's redisdb simpleClient interface.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// StoreResult is the outcome of a first-write-wins action submission.
type StoreResult string

const (
	Accepted         StoreResult = "Accepted"
	AlreadySubmitted StoreResult = "AlreadySubmitted"
)

// EndResult is the tri-valued outcome of EndBattleAndMarkResolved.
type EndResult string

const (
	EndedNow     EndResult = "EndedNow"
	AlreadyEnded EndResult = "AlreadyEnded"
	NotCommitted EndResult = "NotCommitted"
)

// ClaimedBattle is one (battleId, turnIndex) pair returned by ClaimDueBattles.
type ClaimedBattle struct {
	BattleID  string
	TurnIndex int
}

// CorruptedStateError wraps a state record that failed to deserialize.
// Per spec §7 this is fatal for the battle it names.
type CorruptedStateError struct {
	BattleID string
	Cause    error
}

func (e *CorruptedStateError) Error() string {
	return fmt.Sprintf("store: corrupted state for battle %s: %v", e.BattleID, e.Cause)
}

func (e *CorruptedStateError) Unwrap() error { return e.Cause }

// Store is the Redis-backed implementation of C3.
type Store struct {
	rdb       redisClient
	actionTTL time.Duration
}

// New constructs a Store. actionTTL bounds how long a stored action survives
// before Redis garbage-collects it (spec §6: "Action store TTL (1 h)").
func New(rdb redisClient, actionTTL time.Duration) *Store {
	return &Store{rdb: rdb, actionTTL: actionTTL}
}

// TryInitialize creates the state record only if absent, also inserting the
// battle into the active-battles set. Idempotent.
func (s *Store) TryInitialize(ctx context.Context, battle battledom.Battle) (bool, error) {
	value, err := json.Marshal(battle)
	if err != nil {
		return false, fmt.Errorf("store: marshal initial state: %w", err)
	}
	res, err := s.rdb.Eval(ctx, tryInitializeScript, []string{stateKey(battle.BattleID), keyActiveBattles}, battle.BattleID, string(value)).Result()
	if err != nil {
		return false, fmt.Errorf("store: TryInitialize: %w", err)
	}
	return toInt64(res) == 1, nil
}

// GetState returns the current snapshot, or (nil, nil) if absent.
// Deserialization failure is fatal: it is reported as a CorruptedStateError.
func (s *Store) GetState(ctx context.Context, battleID string) (*battledom.Battle, error) {
	raw, err := s.rdb.Get(ctx, stateKey(battleID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: GetState: %w", err)
	}
	var battle battledom.Battle
	if err := json.Unmarshal([]byte(raw), &battle); err != nil {
		return nil, &CorruptedStateError{BattleID: battleID, Cause: err}
	}
	return &battle, nil
}

// TryOpenTurn succeeds iff Phase is ArenaOpen or Resolving and
// LastResolvedTurnIndex == turnIndex-1.
func (s *Store) TryOpenTurn(ctx context.Context, battleID string, turnIndex int, deadlineUtcMs int64) (bool, error) {
	res, err := s.rdb.Eval(ctx, tryOpenTurnScript, []string{stateKey(battleID), keyDeadlines}, battleID, turnIndex, deadlineUtcMs).Result()
	if err != nil {
		return false, fmt.Errorf("store: TryOpenTurn: %w", err)
	}
	return toInt64(res) == 1, nil
}

// TryMarkTurnResolving is the CAS: Phase=TurnOpen && TurnIndex=turnIndex => Resolving.
func (s *Store) TryMarkTurnResolving(ctx context.Context, battleID string, turnIndex int) (bool, error) {
	res, err := s.rdb.Eval(ctx, tryMarkTurnResolvingScript, []string{stateKey(battleID)}, turnIndex).Result()
	if err != nil {
		return false, fmt.Errorf("store: TryMarkTurnResolving: %w", err)
	}
	return toInt64(res) == 1, nil
}

// MarkTurnResolvedAndOpenNext commits a non-terminal turn resolution and
// opens the next turn atomically.
func (s *Store) MarkTurnResolvedAndOpenNext(ctx context.Context, battleID string, currentIdx, nextIdx int, nextDeadlineUtcMs int64, streak, hpA, hpB int) (bool, error) {
	res, err := s.rdb.Eval(ctx, markTurnResolvedAndOpenNextScript,
		[]string{stateKey(battleID), keyDeadlines},
		battleID, currentIdx, nextIdx, nextDeadlineUtcMs, streak, hpA, hpB,
	).Result()
	if err != nil {
		return false, fmt.Errorf("store: MarkTurnResolvedAndOpenNext: %w", err)
	}
	return toInt64(res) == 1, nil
}

// EndBattleAndMarkResolved is the tri-valued terminal CAS.
func (s *Store) EndBattleAndMarkResolved(ctx context.Context, battleID string, turnIndex, streak, hpA, hpB int) (EndResult, error) {
	res, err := s.rdb.Eval(ctx, endBattleAndMarkResolvedScript,
		[]string{stateKey(battleID), keyActiveBattles, keyDeadlines},
		battleID, turnIndex, streak, hpA, hpB,
	).Result()
	if err != nil {
		return NotCommitted, fmt.Errorf("store: EndBattleAndMarkResolved: %w", err)
	}
	return parseEndResult(res)
}

// StoreAction writes a canonical action only if absent (first-write-wins).
func (s *Store) StoreAction(ctx context.Context, battleID string, turnIndex int, playerID string, action battledom.PlayerAction) (StoreResult, error) {
	value, err := json.Marshal(action)
	if err != nil {
		return "", fmt.Errorf("store: marshal action: %w", err)
	}
	res, err := s.rdb.Eval(ctx, storeActionScript, []string{actionKey(battleID, turnIndex, playerID)}, string(value), int(s.actionTTL.Seconds())).Result()
	if err != nil {
		return "", fmt.Errorf("store: StoreAction: %w", err)
	}
	if toInt64(res) == 1 {
		return Accepted, nil
	}
	return AlreadySubmitted, nil
}

// StoreActionAndCheckBothSubmitted stores the action (if absent) and
// atomically observes whether the opposing player's action key also exists.
func (s *Store) StoreActionAndCheckBothSubmitted(ctx context.Context, battleID string, turnIndex int, playerID, otherPlayerID string, action battledom.PlayerAction) (StoreResult, bool, error) {
	value, err := json.Marshal(action)
	if err != nil {
		return "", false, fmt.Errorf("store: marshal action: %w", err)
	}
	res, err := s.rdb.Eval(ctx, storeActionAndCheckBothSubmittedScript,
		[]string{actionKey(battleID, turnIndex, playerID), actionKey(battleID, turnIndex, otherPlayerID)},
		string(value), int(s.actionTTL.Seconds()),
	).Result()
	if err != nil {
		return "", false, fmt.Errorf("store: StoreActionAndCheckBothSubmitted: %w", err)
	}
	stored, bothExist, err := parseStoreAndCheckResult(res)
	if err != nil {
		return "", false, err
	}
	result := AlreadySubmitted
	if stored {
		result = Accepted
	}
	// Our own key now exists regardless of stored/AlreadySubmitted, so
	// the opponent's key existing is sufficient for "both submitted".
	return result, bothExist, nil
}

// GetActions returns both stored actions for a turn; either may be absent.
func (s *Store) GetActions(ctx context.Context, battleID string, turnIndex int, playerA, playerB string) (actionA, actionB *battledom.PlayerAction, err error) {
	res, err := s.rdb.MGet(ctx, actionKey(battleID, turnIndex, playerA), actionKey(battleID, turnIndex, playerB)).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("store: GetActions: %w", err)
	}
	if len(res) != 2 {
		return nil, nil, fmt.Errorf("store: GetActions: unexpected reply length %d", len(res))
	}
	actionA, err = decodeOptionalAction(res[0])
	if err != nil {
		return nil, nil, fmt.Errorf("store: GetActions: player A: %w", err)
	}
	actionB, err = decodeOptionalAction(res[1])
	if err != nil {
		return nil, nil, fmt.Errorf("store: GetActions: player B: %w", err)
	}
	return actionA, actionB, nil
}

// ClaimDueBattles pops up to limit battles from the deadline index whose
// score <= now, applying the five claim rules (spec §4.3) in one atomic pass.
func (s *Store) ClaimDueBattles(ctx context.Context, now time.Time, limit int, leaseTTL, smallDelay time.Duration) ([]ClaimedBattle, error) {
	nowMs := now.UnixMilli()
	res, err := s.rdb.Eval(ctx, claimDueBattlesScript, []string{keyDeadlines},
		nowMs, limit, leaseTTL.Milliseconds(), smallDelay.Milliseconds(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("store: ClaimDueBattles: %w", err)
	}
	return parseClaimedBattles(res)
}

func decodeOptionalAction(v interface{}) (*battledom.PlayerAction, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected reply type %T", v)
	}
	var action battledom.PlayerAction
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		return nil, err
	}
	return &action, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func parseEndResult(v interface{}) (EndResult, error) {
	s, ok := v.(string)
	if !ok {
		return NotCommitted, fmt.Errorf("store: unexpected EndBattleAndMarkResolved reply type %T", v)
	}
	switch EndResult(s) {
	case EndedNow, AlreadyEnded, NotCommitted:
		return EndResult(s), nil
	default:
		return NotCommitted, fmt.Errorf("store: unrecognized EndBattleAndMarkResolved reply %q", s)
	}
}

func parseStoreAndCheckResult(v interface{}) (stored bool, bothExist bool, err error) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 2 {
		return false, false, fmt.Errorf("store: unexpected StoreActionAndCheckBothSubmitted reply %#v", v)
	}
	return toInt64(arr[0]) == 1, toInt64(arr[1]) == 1, nil
}

func parseClaimedBattles(v interface{}) ([]ClaimedBattle, error) {
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("store: unexpected ClaimDueBattles reply type %T", v)
	}
	if len(arr)%2 != 0 {
		return nil, fmt.Errorf("store: odd-length ClaimDueBattles reply (len %d)", len(arr))
	}
	claimed := make([]ClaimedBattle, 0, len(arr)/2)
	for i := 0; i < len(arr); i += 2 {
		battleID, ok := arr[i].(string)
		if !ok {
			return nil, fmt.Errorf("store: ClaimDueBattles: battleId element not a string: %#v", arr[i])
		}
		claimed = append(claimed, ClaimedBattle{
			BattleID:  battleID,
			TurnIndex: int(toInt64(arr[i+1])),
		})
	}
	return claimed, nil
}
