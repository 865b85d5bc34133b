package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/viralsplit/viralsplit-backend/internal/models"
)

func TestWorker_ProcessesQueuedJobs(t *testing.T) {
	f := newPipeline(t)
	cfg := testConfig()
	log := testLogger()
	queue := NewJobQueue(cfg.Worker.QueueDepth, log)
	pool := NewWorker(cfg, queue, f.processor, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	jobA := f.createJob(t, "tiktok")
	jobB := f.createJob(t, "twitter", "linkedin")
	require.NoError(t, queue.Submit(jobA.JobID))
	require.NoError(t, queue.Submit(jobB.JobID))

	deadline := time.Now().Add(5 * time.Second)
	for _, id := range []string{jobA.JobID, jobB.JobID} {
		for {
			job, err := f.store.Get(ctx, id)
			require.NoError(t, err)
			if job.Status.Terminal() {
				require.Equal(t, models.JobStatusCompleted, job.Status)
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("job %s never reached a terminal state: %s", id, job.Status)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	queue.Close()
	cancel()
	pool.Wait()
}
