package worker

import (
	"context"
	"testing"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forgefight.gg/duel-server/internal/config"
	"forgefight.gg/duel-server/internal/store"
)

type noopLogger struct{}

func (noopLogger) Debug(format string, v ...interface{})            {}
func (noopLogger) Info(format string, v ...interface{})             {}
func (noopLogger) Warn(format string, v ...interface{})             {}
func (noopLogger) Error(format string, v ...interface{})            {}
func (l noopLogger) WithField(key string, v interface{}) runtime.Logger { return l }
func (l noopLogger) WithFields(fields map[string]interface{}) runtime.Logger { return l }
func (noopLogger) Fields() map[string]interface{}                   { return nil }

type fakeStore struct {
	batches [][]store.ClaimedBattle
	call    int
	err     error
}

func (f *fakeStore) ClaimDueBattles(ctx context.Context, now time.Time, limit int, leaseTTL, smallDelay time.Duration) ([]store.ClaimedBattle, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.call >= len(f.batches) {
		return nil, nil
	}
	b := f.batches[f.call]
	f.call++
	return b, nil
}

type fakeResolver struct {
	resolved []string
	err      error
}

func (f *fakeResolver) ResolveTurn(ctx context.Context, battleID string) (bool, error) {
	f.resolved = append(f.resolved, battleID)
	return true, f.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestTick_ResolvesEachClaimedBattle(t *testing.T) {
	s := &fakeStore{batches: [][]store.ClaimedBattle{
		{{BattleID: "b1", TurnIndex: 3}, {BattleID: "b2", TurnIndex: 1}},
	}}
	r := &fakeResolver{}
	w := New(s, r, fixedClock{time.Unix(0, 0)}, config.DefaultWorkerConfig(), noopLogger{})

	claimed, err := w.tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
	assert.Equal(t, []string{"b1", "b2"}, r.resolved)
}

func TestTick_PropagatesClaimError(t *testing.T) {
	s := &fakeStore{err: assertErr{"boom"}}
	r := &fakeResolver{}
	w := New(s, r, fixedClock{time.Unix(0, 0)}, config.DefaultWorkerConfig(), noopLogger{})

	_, err := w.tick(context.Background())
	assert.Error(t, err)
}

func TestTick_ContinuesPastResolverFailure(t *testing.T) {
	s := &fakeStore{batches: [][]store.ClaimedBattle{
		{{BattleID: "b1", TurnIndex: 1}, {BattleID: "b2", TurnIndex: 1}},
	}}
	r := &fakeResolver{err: assertErr{"resolver failed"}}
	w := New(s, r, fixedClock{time.Unix(0, 0)}, config.DefaultWorkerConfig(), noopLogger{})

	claimed, err := w.tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
	assert.Len(t, r.resolved, 2)
}

func TestRun_StopsOnContextCancellation(t *testing.T) {
	s := &fakeStore{}
	r := &fakeResolver{}
	cfg := config.DefaultWorkerConfig()
	cfg.IdleDelayMin = time.Millisecond
	cfg.IdleDelayMax = 2 * time.Millisecond
	w := New(s, r, fixedClock{time.Unix(0, 0)}, cfg, noopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
