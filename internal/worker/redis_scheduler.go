package worker

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

const (
	queueKey    = "transform:queue"
	claimBlock  = 5 * time.Second
	claimBuffer = 1
)

// RedisJobQueue is the shared queue for split server/worker deployments.
// Depth is enforced against the live list length, so backpressure holds
// across all API instances pushing into it.
type RedisJobQueue struct {
	redisClient *redis.Client
	depth       int
	logger      logger.Logger

	out       chan string
	closeOnce sync.Once
	done      chan struct{}
}

func NewRedisJobQueue(redisClient *redis.Client, depth int, log logger.Logger) *RedisJobQueue {
	return &RedisJobQueue{
		redisClient: redisClient,
		depth:       depth,
		logger:      log,
		out:         make(chan string, claimBuffer),
		done:        make(chan struct{}),
	}
}

// submitScript checks depth and pushes in one round trip, so concurrent
// submitters cannot overshoot the bound between check and push.
var submitScript = redis.NewScript(`
if redis.call("LLEN", KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call("LPUSH", KEYS[1], ARGV[1])
return 1`)

func (q *RedisJobQueue) Submit(jobID string) error {
	accepted, err := submitScript.Run(context.Background(), q.redisClient, []string{queueKey}, jobID, q.depth).Int()
	if err != nil {
		return err
	}
	if accepted == 0 {
		q.logger.Warnf("job queue full, rejecting job %s", jobID)
		return transform.ErrBackpressure
	}
	return nil
}

// Start launches the pump that moves queued IDs into the claim channel.
// Only worker processes call it; API-only processes just Submit.
func (q *RedisJobQueue) Start(ctx context.Context) {
	go func() {
		defer close(q.out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.done:
				return
			default:
			}
			res, err := q.redisClient.BRPop(ctx, claimBlock, queueKey).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				q.logger.Errorf("job queue pop failed: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			select {
			case q.out <- res[1]:
			case <-ctx.Done():
				return
			case <-q.done:
				return
			}
		}
	}()
}

func (q *RedisJobQueue) Claim() <-chan string {
	return q.out
}

func (q *RedisJobQueue) Len() int {
	length, err := q.redisClient.LLen(context.Background(), queueKey).Result()
	if err != nil {
		q.logger.Errorf("job queue length check failed: %v", err)
		return 0
	}
	return int(length)
}

func (q *RedisJobQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}
