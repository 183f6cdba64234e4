package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasroldan/adambot/internal/validate"
)

func newTestSQLiteMirror(t *testing.T) *SQLiteMirror {
	t.Helper()
	mirror, err := NewSQLiteMirror(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })
	return mirror
}

func TestSQLiteMirrorRoundTrip(t *testing.T) {
	mirror := newTestSQLiteMirror(t)

	sess := New(42, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	sess.Stage = StageLifestyle
	sess.Answers[StageLifestyle] = []validate.Answer{
		{Kind: validate.KindAge, Raw: "45", Int: 45},
		{Kind: validate.KindBodyFat, Raw: "22.5", Float: 22.5},
	}
	sess.Cursor = 2
	require.NoError(t, mirror.Save(sess))

	loaded, err := mirror.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[42]
	require.NotNil(t, got)
	assert.Equal(t, StageLifestyle, got.Stage)
	assert.Equal(t, 2, got.Cursor)
	require.Len(t, got.Answers[StageLifestyle], 2)
	assert.Equal(t, 45, got.Answers[StageLifestyle][0].Int)
	assert.InDelta(t, 22.5, got.Answers[StageLifestyle][1].Float, 0.001)
}

func TestSQLiteMirrorUpsert(t *testing.T) {
	mirror := newTestSQLiteMirror(t)

	sess := New(5, time.Now().UTC())
	require.NoError(t, mirror.Save(sess))

	sess.Stage = StageConfirm
	require.NoError(t, mirror.Save(sess))

	loaded, err := mirror.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1, "saving twice must overwrite, not duplicate")
	assert.Equal(t, StageConfirm, loaded[5].Stage)
}

func TestSQLiteMirrorDelete(t *testing.T) {
	mirror := newTestSQLiteMirror(t)

	require.NoError(t, mirror.Save(New(9, time.Now().UTC())))
	require.NoError(t, mirror.Delete(9))

	loaded, err := mirror.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	assert.NoError(t, mirror.Delete(9))
}
