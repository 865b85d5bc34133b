package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestTransformRedisRepo_SaveAndGetSnapshot(t *testing.T) {
	mr, client := setupRedis(t)
	repo := NewTransformRedisRepo(client)
	ctx := context.Background()

	job := newTestJob("tiktok", "twitter")
	job.Status = models.JobStatusTransforming
	job.Progress = 60
	job.Version = 7

	require.NoError(t, repo.SaveSnapshot(ctx, job))

	got, err := repo.GetSnapshot(ctx, job.JobID)
	require.NoError(t, err)
	require.Equal(t, job.JobID, got.JobID)
	require.Equal(t, models.JobStatusTransforming, got.Status)
	require.Equal(t, 60, got.Progress)
	require.Equal(t, int64(7), got.Version)
	require.ElementsMatch(t, []string{"tiktok", "twitter"}, got.Platforms)

	// Plain fields stay readable for non-Go consumers.
	require.Equal(t, "transforming", mr.HGet(progressKeyPrefix+job.JobID, "status"))
	require.Equal(t, "60", mr.HGet(progressKeyPrefix+job.JobID, "progress"))
}

func TestTransformRedisRepo_SnapshotExpires(t *testing.T) {
	mr, client := setupRedis(t)
	repo := NewTransformRedisRepo(client)
	ctx := context.Background()

	job := newTestJob("tiktok")
	require.NoError(t, repo.SaveSnapshot(ctx, job))

	mr.FastForward(snapshotTTL + time.Minute)

	_, err := repo.GetSnapshot(ctx, job.JobID)
	require.ErrorIs(t, err, transform.ErrJobNotFound)
}

func TestTransformRedisRepo_GetSnapshotMissing(t *testing.T) {
	_, client := setupRedis(t)
	repo := NewTransformRedisRepo(client)

	_, err := repo.GetSnapshot(context.Background(), "missing")
	require.ErrorIs(t, err, transform.ErrJobNotFound)
}

func TestTransformRedisRepo_DeleteSnapshot(t *testing.T) {
	_, client := setupRedis(t)
	repo := NewTransformRedisRepo(client)
	ctx := context.Background()

	job := newTestJob("tiktok")
	require.NoError(t, repo.SaveSnapshot(ctx, job))
	require.NoError(t, repo.DeleteSnapshot(ctx, job.JobID))

	_, err := repo.GetSnapshot(ctx, job.JobID)
	require.ErrorIs(t, err, transform.ErrJobNotFound)
}

func TestTransformRedisRepo_PublishSnapshot(t *testing.T) {
	_, client := setupRedis(t)
	repo := NewTransformRedisRepo(client)
	ctx := context.Background()

	job := newTestJob("tiktok")
	sub := client.Subscribe(ctx, eventsChannelPrefix+job.JobID)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.PublishSnapshot(ctx, job))

	select {
	case msg := <-sub.Channel():
		require.Contains(t, msg.Payload, job.JobID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot received on events channel")
	}
}
