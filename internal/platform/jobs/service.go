package jobs

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"leaveflow/internal/platform/logger"
)

const (
	JobPublishEvent = "publish_event"
	JobNotify       = "notify"
)

const defaultQueueSize = 128

// Service runs post-commit side effects on a background worker so that a
// slow broker never holds up a workflow transition.
type Service struct {
	queue  chan job
	logger *zap.Logger
	wg     sync.WaitGroup

	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

type job struct {
	Type string
	Key  string
	Run  func(context.Context) error
}

// Stats is a snapshot of the worker counters.
type Stats struct {
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Queued    int   `json:"queued"`
}

func New(queueSize int, l *zap.Logger) *Service {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Service{
		queue:  make(chan job, queueSize),
		logger: logger.Named(l, "jobs"),
	}
}

// Start launches the worker. It drains whatever is queued once ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Wait blocks until the worker has exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType, key string, run func(context.Context) error) {
	select {
	case s.queue <- job{Type: jobType, Key: key, Run: run}:
	default:
		s.dropped.Add(1)
		s.logger.Warn("job queue full", zap.String("job_type", jobType), zap.String("key", key))
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, key string, run func(context.Context) error) error {
	return s.runJob(ctx, job{Type: jobType, Key: key, Run: run})
}

func (s *Service) Stats() Stats {
	return Stats{
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
		Dropped:   s.dropped.Load(),
		Queued:    len(s.queue),
	}
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case j := <-s.queue:
			_ = s.runJob(ctx, j)
		}
	}
}

// drain runs what is left with a fresh context; the caller's is already done.
func (s *Service) drain() {
	for {
		select {
		case j := <-s.queue:
			_ = s.runJob(context.Background(), j)
		default:
			return
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) error {
	if err := j.Run(ctx); err != nil {
		s.failed.Add(1)
		s.logger.Warn("job run failed",
			zap.String("job_type", j.Type),
			zap.String("key", j.Key),
			zap.Error(err),
		)
		return err
	}
	s.completed.Add(1)
	return nil
}
