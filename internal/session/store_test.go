package session

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasroldan/adambot/internal/clock"
	"github.com/matiasroldan/adambot/internal/validate"
)

// failingMirror rejects every save so rollback behavior can be observed.
type failingMirror struct {
	NoopMirror
	saveErr error
}

func (f *failingMirror) Save(*Session) error { return f.saveErr }

func testStart() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T, mirror Mirror, ttl time.Duration) (*Store, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(testStart())
	return NewStore(mirror, clk, ttl, zerolog.Nop()), clk
}

func TestStorePutGetDelete(t *testing.T) {
	store, clk := newTestStore(t, NoopMirror{}, DefaultTTL)

	_, ok := store.Get(42)
	assert.False(t, ok, "empty store should not return a session")

	sess := New(42, clk.Now())
	sess.Stage = StageADAM
	sess.Append(validate.Answer{Kind: validate.KindYesNo, Raw: "sí", Bool: true})
	require.NoError(t, store.Put(sess))

	got, ok := store.Get(42)
	require.True(t, ok)
	assert.Equal(t, StageADAM, got.Stage)
	assert.Equal(t, 1, got.Cursor)
	require.Len(t, got.Answers[StageADAM], 1)
	assert.True(t, got.Answers[StageADAM][0].Bool)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(42))
	_, ok = store.Get(42)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store, clk := newTestStore(t, NoopMirror{}, DefaultTTL)

	sess := New(7, clk.Now())
	sess.Stage = StageAMS
	sess.Append(validate.Answer{Kind: validate.KindScale, Raw: "3", Int: 3})
	require.NoError(t, store.Put(sess))

	got, ok := store.Get(7)
	require.True(t, ok)
	got.Stage = StageAbandoned
	got.Answers[StageAMS][0].Int = 5
	got.Append(validate.Answer{Kind: validate.KindScale, Raw: "1", Int: 1})

	fresh, ok := store.Get(7)
	require.True(t, ok)
	assert.Equal(t, StageAMS, fresh.Stage, "mutating a Get copy must not touch stored state")
	assert.Equal(t, 1, fresh.Cursor)
	assert.Equal(t, 3, fresh.Answers[StageAMS][0].Int)
}

func TestStorePutFailureLeavesStateIntact(t *testing.T) {
	mirror := &failingMirror{saveErr: errors.New("disk full")}
	store, clk := newTestStore(t, mirror, DefaultTTL)

	mirror.saveErr = nil
	sess := New(9, clk.Now())
	sess.Stage = StageADAM
	require.NoError(t, store.Put(sess))

	mirror.saveErr = errors.New("disk full")
	updated, ok := store.Get(9)
	require.True(t, ok)
	updated.Stage = StageAMS
	updated.Cursor = 0
	err := store.Put(updated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	got, ok := store.Get(9)
	require.True(t, ok)
	assert.Equal(t, StageADAM, got.Stage, "failed put must not publish new state")
}

func TestStorePutSanitizesRawAnswers(t *testing.T) {
	store, clk := newTestStore(t, NoopMirror{}, DefaultTTL)

	sess := New(3, clk.Now())
	sess.Stage = StageADAM
	sess.Append(validate.Answer{Kind: validate.KindYesNo, Raw: "  sí\x00\n  claro  ", Bool: true})
	require.NoError(t, store.Put(sess))

	got, ok := store.Get(3)
	require.True(t, ok)
	assert.Equal(t, "sí claro", got.Answers[StageADAM][0].Raw)
}

func TestStoreSweepExpired(t *testing.T) {
	store, clk := newTestStore(t, NoopMirror{}, DefaultTTL)

	stale := New(1, clk.Now())
	require.NoError(t, store.Put(stale))

	clk.Advance(23 * time.Hour)
	fresh := New(2, clk.Now())
	require.NoError(t, store.Put(fresh))

	// First session is now 25h inactive, second only 2h.
	clk.Advance(2 * time.Hour)
	removed := store.SweepExpired(clk.Now())
	assert.Equal(t, 1, removed)

	_, ok := store.Get(1)
	assert.False(t, ok, "expired session should be gone after sweep")
	_, ok = store.Get(2)
	assert.True(t, ok, "live session must survive the sweep")
}

func TestStoreRestoreDropsExpired(t *testing.T) {
	dir := t.TempDir()
	mirror, err := NewFileMirror(dir, zerolog.Nop())
	require.NoError(t, err)

	clk := clock.NewFake(testStart())
	stale := New(1, clk.Now())
	live := New(2, clk.Now().Add(23*time.Hour))
	require.NoError(t, mirror.Save(stale))
	require.NoError(t, mirror.Save(live))

	clk.Advance(25 * time.Hour)
	store := NewStore(mirror, clk, DefaultTTL, zerolog.Nop())
	require.NoError(t, store.Restore())

	_, ok := store.Get(1)
	assert.False(t, ok)
	_, ok = store.Get(2)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestStoreAcquireSameLockPerUser(t *testing.T) {
	store, _ := newTestStore(t, NoopMirror{}, DefaultTTL)

	a := store.Acquire(5)
	b := store.Acquire(5)
	c := store.Acquire(6)

	assert.Same(t, a, b, "repeated Acquire for one user must return the same mutex")
	assert.NotSame(t, a, c, "different users must not share a mutex")
}
