package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
)

func TestJobQueue_FIFO(t *testing.T) {
	q := NewJobQueue(4, testLogger())
	defer q.Close()

	require.NoError(t, q.Submit("a"))
	require.NoError(t, q.Submit("b"))
	require.Equal(t, 2, q.Len())

	require.Equal(t, "a", <-q.Claim())
	require.Equal(t, "b", <-q.Claim())
}

func TestJobQueue_Backpressure(t *testing.T) {
	q := NewJobQueue(2, testLogger())
	defer q.Close()

	require.NoError(t, q.Submit("a"))
	require.NoError(t, q.Submit("b"))
	require.ErrorIs(t, q.Submit("c"), transform.ErrBackpressure)

	// Draining frees capacity again.
	<-q.Claim()
	require.NoError(t, q.Submit("c"))
}

func TestJobQueue_CloseIsIdempotent(t *testing.T) {
	q := NewJobQueue(1, testLogger())
	q.Close()
	q.Close()

	_, ok := <-q.Claim()
	require.False(t, ok)
}

func TestRedisJobQueue_SubmitAndClaim(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := NewRedisJobQueue(client, 4, testLogger())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	require.NoError(t, q.Submit("job-1"))

	select {
	case got := <-q.Claim():
		require.Equal(t, "job-1", got)
	case <-time.After(3 * time.Second):
		t.Fatal("claim timed out")
	}
}

func TestRedisJobQueue_Backpressure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := NewRedisJobQueue(client, 2, testLogger())
	defer q.Close()

	require.NoError(t, q.Submit("a"))
	require.NoError(t, q.Submit("b"))
	require.ErrorIs(t, q.Submit("c"), transform.ErrBackpressure)
	require.ErrorIs(t, q.Submit("d"), transform.ErrBackpressure)
	require.Equal(t, 2, q.Len())

	// Rejected submits never land on the list.
	got, err := client.LRange(context.Background(), queueKey, 0, -1).Result()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, got)
}
