package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct {
	handled atomic.Int64
}

func (h *echoHandler) Handle(userID int64, rawText string) string {
	h.handled.Add(1)
	return fmt.Sprintf("user %d said %s", userID, rawText)
}

type panicHandler struct {
	calls atomic.Int64
}

func (h *panicHandler) Handle(int64, string) string {
	if h.calls.Add(1) == 1 {
		panic("boom")
	}
	return "ok"
}

func TestPoolProcessesEvents(t *testing.T) {
	handler := &echoHandler{}
	pool := NewPool(handler, 2, 16, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	require.True(t, pool.Submit(Event{UserID: 1, Text: "hola"}))
	require.True(t, pool.Submit(Event{UserID: 2, Text: "adiós"}))

	got := map[int64]string{}
	for i := 0; i < 2; i++ {
		select {
		case reply := <-pool.Replies():
			got[reply.UserID] = reply.Text
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for replies")
		}
	}
	assert.Equal(t, "user 1 said hola", got[1])
	assert.Equal(t, "user 2 said adiós", got[2])

	pool.Stop()
}

func TestPoolRecoversFromPanic(t *testing.T) {
	handler := &panicHandler{}
	pool := NewPool(handler, 1, 16, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	require.True(t, pool.Submit(Event{UserID: 1, Text: "first"}))
	require.True(t, pool.Submit(Event{UserID: 1, Text: "second"}))

	select {
	case reply := <-pool.Replies():
		assert.Equal(t, "ok", reply.Text, "worker must survive the panicking event")
	case <-time.After(time.Second):
		t.Fatal("worker did not recover from panic")
	}
}

func TestPoolStopClosesReplies(t *testing.T) {
	pool := NewPool(&echoHandler{}, 2, 16, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))
	pool.Stop()

	_, open := <-pool.Replies()
	assert.False(t, open, "replies channel closes on stop")

	// Stopping twice is safe.
	pool.Stop()
}

func TestPoolSubmitDropsWhenFull(t *testing.T) {
	pool := NewPool(&echoHandler{}, 1, 1, zerolog.Nop())
	// Not started: the queue fills and further submits are dropped.
	assert.True(t, pool.Submit(Event{UserID: 1, Text: "a"}))
	assert.False(t, pool.Submit(Event{UserID: 1, Text: "b"}))
}
