package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
)

func TestRedisStore_CreateAndGet(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisStore(client, testLogger())
	ctx := context.Background()

	job := newTestJob("tiktok")
	require.NoError(t, store.Create(ctx, job))
	require.Equal(t, int64(1), job.Version)

	got, err := store.Get(ctx, job.JobID)
	require.NoError(t, err)
	require.Equal(t, job.JobID, got.JobID)
	require.Equal(t, models.JobStatusQueued, got.Status)

	require.Error(t, store.Create(ctx, job))
}

func TestRedisStore_CompareAndUpdate(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisStore(client, testLogger())
	ctx := context.Background()

	job := newTestJob("tiktok")
	require.NoError(t, store.Create(ctx, job))

	updated, err := store.CompareAndUpdate(ctx, job.JobID, 1, func(j *models.TransformJob) error {
		j.Status = models.JobStatusFetching
		j.Progress = 5
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.Version)
	require.Equal(t, models.JobStatusFetching, updated.Status)

	_, err = store.CompareAndUpdate(ctx, job.JobID, 1, func(j *models.TransformJob) error {
		j.Progress = 50
		return nil
	})
	require.ErrorIs(t, err, transform.ErrVersionConflict)
}

func TestRedisStore_TerminalGuardAndProgressClamp(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisStore(client, testLogger())
	ctx := context.Background()

	job := newTestJob("tiktok")
	require.NoError(t, store.Create(ctx, job))

	_, err := store.CompareAndUpdate(ctx, job.JobID, 1, func(j *models.TransformJob) error {
		j.Progress = 70
		return nil
	})
	require.NoError(t, err)

	clamped, err := store.CompareAndUpdate(ctx, job.JobID, 2, func(j *models.TransformJob) error {
		j.Progress = 30
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 70, clamped.Progress)

	_, err = store.CompareAndUpdate(ctx, job.JobID, 3, func(j *models.TransformJob) error {
		j.Status = models.JobStatusFailed
		j.Error = "boom"
		return nil
	})
	require.NoError(t, err)

	_, err = store.CompareAndUpdate(ctx, job.JobID, 4, func(j *models.TransformJob) error {
		j.Status = models.JobStatusTransforming
		return nil
	})
	require.ErrorIs(t, err, transform.ErrTerminalState)
}

func TestRedisStore_UpdateUnknownJob(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisStore(client, testLogger())

	_, err := store.CompareAndUpdate(context.Background(), "missing", 1, func(j *models.TransformJob) error {
		return nil
	})
	require.ErrorIs(t, err, transform.ErrJobNotFound)
}

func TestRedisStore_DeleteAndListTerminalBefore(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisStore(client, testLogger())
	ctx := context.Background()

	done := newTestJob("tiktok")
	require.NoError(t, store.Create(ctx, done))
	_, err := store.CompareAndUpdate(ctx, done.JobID, 1, func(j *models.TransformJob) error {
		j.Status = models.JobStatusCompleted
		j.Progress = 100
		return nil
	})
	require.NoError(t, err)

	live := newTestJob("twitter")
	require.NoError(t, store.Create(ctx, live))

	old, err := store.ListTerminalBefore(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, old, 1)
	require.Equal(t, done.JobID, old[0].JobID)

	require.NoError(t, store.Delete(ctx, done.JobID))
	_, err = store.Get(ctx, done.JobID)
	require.ErrorIs(t, err, transform.ErrJobNotFound)

	old, err = store.ListTerminalBefore(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	require.Empty(t, old)
}
