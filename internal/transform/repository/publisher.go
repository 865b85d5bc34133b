package repository

import (
	"context"
	"sync"

	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
)

const subscriberBuffer = 16

// progressPublisher is an in-process fan-out broadcaster. Each subscriber
// owns a bounded buffer; when it fills the oldest snapshot is dropped so a
// stalled reader never blocks a publish.
type progressPublisher struct {
	mu     sync.RWMutex
	subs   map[string]map[int64]chan *models.TransformJob
	nextID int64
	closed bool
}

func NewProgressPublisher() transform.Publisher {
	return &progressPublisher{
		subs: make(map[string]map[int64]chan *models.TransformJob),
	}
}

func (p *progressPublisher) Publish(ctx context.Context, job *models.TransformJob) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	for _, ch := range p.subs[job.JobID] {
		snapshot := job.Clone()
		select {
		case ch <- snapshot:
		default:
			// Buffer full: drop the oldest snapshot and retry once.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func (p *progressPublisher) Subscribe(jobID string) (<-chan *models.TransformJob, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan *models.TransformJob, subscriberBuffer)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	id := p.nextID
	p.nextID++
	if p.subs[jobID] == nil {
		p.subs[jobID] = make(map[int64]chan *models.TransformJob)
	}
	p.subs[jobID][id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if subs, ok := p.subs[jobID]; ok {
			if _, ok := subs[id]; ok {
				delete(subs, id)
				close(ch)
				if len(subs) == 0 {
					delete(p.subs, jobID)
				}
			}
		}
	}
	return ch, cancel
}

func (p *progressPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, subs := range p.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	p.subs = make(map[string]map[int64]chan *models.TransformJob)
}
