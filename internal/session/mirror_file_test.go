package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasroldan/adambot/internal/validate"
)

func TestFileMirrorRoundTrip(t *testing.T) {
	mirror, err := NewFileMirror(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	sess := New(42, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	sess.Stage = StageAMS
	sess.RetryCount = 2
	sess.Answers[StageADAM] = []validate.Answer{
		{Kind: validate.KindYesNo, Raw: "sí", Bool: true},
		{Kind: validate.KindYesNo, Raw: "no", Bool: false},
	}
	sess.Answers[StageAMS] = []validate.Answer{
		{Kind: validate.KindScale, Raw: "4", Int: 4},
	}
	sess.Cursor = 1
	require.NoError(t, mirror.Save(sess))

	loaded, err := mirror.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[42]
	require.NotNil(t, got)
	assert.Equal(t, StageAMS, got.Stage)
	assert.Equal(t, 1, got.Cursor)
	assert.Equal(t, 2, got.RetryCount)
	require.Len(t, got.Answers[StageADAM], 2)
	assert.True(t, got.Answers[StageADAM][0].Bool)
	assert.Equal(t, 4, got.Answers[StageAMS][0].Int)
	assert.True(t, got.CreatedAt.Equal(sess.CreatedAt))
}

func TestFileMirrorDelete(t *testing.T) {
	dir := t.TempDir()
	mirror, err := NewFileMirror(dir, zerolog.Nop())
	require.NoError(t, err)

	sess := New(7, time.Now())
	require.NoError(t, mirror.Save(sess))
	require.NoError(t, mirror.Delete(7))

	loaded, err := mirror.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// Deleting an absent session is not an error.
	assert.NoError(t, mirror.Delete(7))
}

func TestFileMirrorSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	mirror, err := NewFileMirror(dir, zerolog.Nop())
	require.NoError(t, err)

	good := New(1, time.Now())
	require.NoError(t, mirror.Save(good))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session_2.json"), []byte("{not json"), 0600))

	loaded, err := mirror.LoadAll()
	require.NoError(t, err, "a corrupt file must not fail the whole load")
	require.Len(t, loaded, 1)
	assert.NotNil(t, loaded[1])
}
