package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forgefight.gg/duel-server/internal/battledom"
)

// mockRedis implements redisClient with canned per-call results, the same
// narrow-interface style the teacher pack's redisdb package tests with.
type mockRedis struct {
	evalResults []*redis.Cmd
	evalCall    int
	evalScripts []string
	evalKeys    [][]string
	evalArgs    [][]interface{}

	getResult *redis.StringCmd
	mgetResult *redis.SliceCmd
}

func (m *mockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	return m.getResult
}

func (m *mockRedis) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	return m.mgetResult
}

func (m *mockRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.evalScripts = append(m.evalScripts, script)
	m.evalKeys = append(m.evalKeys, keys)
	m.evalArgs = append(m.evalArgs, args)
	cmd := m.evalResults[m.evalCall]
	m.evalCall++
	return cmd
}

func newEvalCmd(val interface{}) *redis.Cmd {
	cmd := redis.NewCmd(context.Background())
	cmd.SetVal(val)
	return cmd
}

func TestTryInitialize_ReturnsTrueOnCreate(t *testing.T) {
	mock := &mockRedis{evalResults: []*redis.Cmd{newEvalCmd(int64(1))}}
	s := New(mock, time.Hour)

	created, err := s.TryInitialize(context.Background(), battledom.Battle{BattleID: "b1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{stateKey("b1"), keyActiveBattles}, mock.evalKeys[0])
}

func TestTryInitialize_ReturnsFalseWhenAlreadyPresent(t *testing.T) {
	mock := &mockRedis{evalResults: []*redis.Cmd{newEvalCmd(int64(0))}}
	s := New(mock, time.Hour)

	created, err := s.TryInitialize(context.Background(), battledom.Battle{BattleID: "b1"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestGetState_ReturnsNilWhenAbsent(t *testing.T) {
	getCmd := redis.NewStringCmd(context.Background())
	getCmd.SetErr(redis.Nil)
	mock := &mockRedis{getResult: getCmd}
	s := New(mock, time.Hour)

	battle, err := s.GetState(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, battle)
}

func TestGetState_SurfacesCorruptedState(t *testing.T) {
	getCmd := redis.NewStringCmd(context.Background())
	getCmd.SetVal("not json")
	mock := &mockRedis{getResult: getCmd}
	s := New(mock, time.Hour)

	_, err := s.GetState(context.Background(), "b1")
	require.Error(t, err)
	var corrupted *CorruptedStateError
	assert.ErrorAs(t, err, &corrupted)
}

func TestGetState_DecodesStoredBattle(t *testing.T) {
	getCmd := redis.NewStringCmd(context.Background())
	getCmd.SetVal(`{"battle_id":"b1","phase":"TurnOpen","turn_index":3}`)
	mock := &mockRedis{getResult: getCmd}
	s := New(mock, time.Hour)

	battle, err := s.GetState(context.Background(), "b1")
	require.NoError(t, err)
	require.NotNil(t, battle)
	assert.Equal(t, battledom.PhaseTurnOpen, battle.Phase)
	assert.Equal(t, 3, battle.TurnIndex)
}

func TestEndBattleAndMarkResolved_ParsesAllThreeOutcomes(t *testing.T) {
	for _, want := range []EndResult{EndedNow, AlreadyEnded, NotCommitted} {
		mock := &mockRedis{evalResults: []*redis.Cmd{newEvalCmd(string(want))}}
		s := New(mock, time.Hour)
		got, err := s.EndBattleAndMarkResolved(context.Background(), "b1", 1, 0, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestStoreActionAndCheckBothSubmitted_Accepted(t *testing.T) {
	mock := &mockRedis{evalResults: []*redis.Cmd{newEvalCmd([]interface{}{int64(1), int64(1)})}}
	s := New(mock, time.Hour)

	result, both, err := s.StoreActionAndCheckBothSubmitted(context.Background(), "b1", 1, "A", "B", battledom.PlayerAction{})
	require.NoError(t, err)
	assert.Equal(t, Accepted, result)
	assert.True(t, both)
}

func TestStoreActionAndCheckBothSubmitted_AlreadySubmittedOpponentMissing(t *testing.T) {
	mock := &mockRedis{evalResults: []*redis.Cmd{newEvalCmd([]interface{}{int64(0), int64(0)})}}
	s := New(mock, time.Hour)

	result, both, err := s.StoreActionAndCheckBothSubmitted(context.Background(), "b1", 1, "A", "B", battledom.PlayerAction{})
	require.NoError(t, err)
	assert.Equal(t, AlreadySubmitted, result)
	assert.False(t, both)
}

func TestGetActions_HandlesOneMissing(t *testing.T) {
	mgetCmd := redis.NewSliceCmd(context.Background())
	mgetCmd.SetVal([]interface{}{`{"player_id":"A","turn_index":1}`, nil})
	mock := &mockRedis{mgetResult: mgetCmd}
	s := New(mock, time.Hour)

	a, b, err := s.GetActions(context.Background(), "b1", 1, "A", "B")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "A", a.PlayerID)
	assert.Nil(t, b)
}

func TestParseClaimedBattles_Empty(t *testing.T) {
	claimed, err := parseClaimedBattles([]interface{}{})
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestParseClaimedBattles_Pairs(t *testing.T) {
	claimed, err := parseClaimedBattles([]interface{}{"b1", int64(3), "b2", int64(7)})
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, ClaimedBattle{BattleID: "b1", TurnIndex: 3}, claimed[0])
	assert.Equal(t, ClaimedBattle{BattleID: "b2", TurnIndex: 7}, claimed[1])
}

func TestParseClaimedBattles_RejectsOddLength(t *testing.T) {
	_, err := parseClaimedBattles([]interface{}{"b1"})
	assert.Error(t, err)
}

func TestParseEndResult_RejectsUnrecognizedValue(t *testing.T) {
	_, err := parseEndResult("SomethingElse")
	assert.Error(t, err)
}
