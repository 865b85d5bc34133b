package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

// redisPublisher bridges job snapshots over redis pub/sub so API instances
// can stream progress for jobs processed elsewhere.
type redisPublisher struct {
	redisClient *redis.Client
	logger      logger.Logger

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
	nextID  int64
	closed  bool
}

func NewRedisPublisher(redisClient *redis.Client, log logger.Logger) transform.Publisher {
	return &redisPublisher{
		redisClient: redisClient,
		logger:      log,
		cancels:     make(map[int64]context.CancelFunc),
	}
}

func (p *redisPublisher) Publish(ctx context.Context, job *models.TransformJob) {
	payload, err := json.Marshal(job)
	if err != nil {
		p.logger.Warnf("redisPublisher - failed to marshal job %s: %v", job.JobID, err)
		return
	}
	if err := p.redisClient.Publish(ctx, eventsChannelPrefix+job.JobID, string(payload)).Err(); err != nil {
		p.logger.Warnf("redisPublisher - failed to publish job %s: %v", job.JobID, err)
	}
}

func (p *redisPublisher) Subscribe(jobID string) (<-chan *models.TransformJob, func()) {
	out := make(chan *models.TransformJob, subscriberBuffer)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(out)
		return out, func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.nextID++
	id := p.nextID
	p.cancels[id] = cancel
	p.mu.Unlock()

	sub := p.redisClient.Subscribe(ctx, eventsChannelPrefix+jobID)

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				job := &models.TransformJob{}
				if err := json.Unmarshal([]byte(msg.Payload), job); err != nil {
					p.logger.Warnf("redisPublisher - bad snapshot on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- job:
				default:
					// Slow subscriber: drop the oldest snapshot, keep the newest.
					select {
					case <-out:
					default:
					}
					select {
					case out <- job:
					default:
					}
				}
			}
		}
	}()

	return out, func() {
		p.mu.Lock()
		if c, ok := p.cancels[id]; ok {
			delete(p.cancels, id)
			p.mu.Unlock()
			c()
			return
		}
		p.mu.Unlock()
	}
}

func (p *redisPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	cancels := p.cancels
	p.cancels = make(map[int64]context.CancelFunc)
	p.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}
