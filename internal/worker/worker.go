package worker

import (
	"context"
	"sync"
	"time"

	"github.com/viralsplit/viralsplit-backend/internal/config"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
	"github.com/viralsplit/viralsplit-backend/pkg/utils"
)

const cpuCheckInterval = 10 * time.Second

// Worker runs a fixed-size pool. Each goroutine claims one job at a time
// and executes its full lifecycle through the Processor.
type Worker struct {
	cfg       *config.Config
	queue     Queue
	processor *Processor
	logger    logger.Logger
	wg        sync.WaitGroup
}

func NewWorker(cfg *config.Config, queue Queue, processor *Processor, log logger.Logger) *Worker {
	return &Worker{
		cfg:       cfg,
		queue:     queue,
		processor: processor,
		logger:    log,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Infof("Starting %d workers", w.cfg.Worker.WorkerCount)
	for i := 0; i < w.cfg.Worker.WorkerCount; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

func (w *Worker) run(ctx context.Context, id int) {
	defer w.wg.Done()
	for {
		if canAcceptJob, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage); !canAcceptJob {
			w.logger.Infof("worker %d: CPU usage is high: %.2f%%, waiting", id, usage)
			select {
			case <-ctx.Done():
				return
			case <-time.After(cpuCheckInterval):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-w.queue.Claim():
			if !ok {
				return
			}
			if err := w.processor.Process(ctx, jobID); err != nil {
				w.logger.Errorf("worker %d: job %s: %v", id, jobID, err)
			}
		}
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
}
