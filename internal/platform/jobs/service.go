package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	JobIdempotencyPrune = "idempotency_prune"
	JobAuditRetention   = "audit_retention"
)

// Pruner deletes rows older than cutoff and reports how many went.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Task is a recurring job. MaxAge sets the prune cutoff relative to the
// time the task fires.
type Task struct {
	Type   string
	Pruner Pruner
	MaxAge time.Duration
}

// Run records the outcome of one job execution.
type Run struct {
	Type       string
	Deleted    int64
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

type Service struct {
	Logger *slog.Logger
	queue  chan job
	now    func() time.Time

	mu   sync.Mutex
	last map[string]Run
}

type job struct {
	Type string
	Run  func(context.Context) (int64, error)
}

func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Logger: logger,
		queue:  make(chan job, 32),
		now:    time.Now,
		last:   map[string]Run{},
	}
}

// Start runs the worker and schedules every task at interval until ctx is
// cancelled. A non-positive interval disables scheduling.
func (s *Service) Start(ctx context.Context, interval time.Duration, tasks ...Task) {
	go s.worker(ctx)
	if interval <= 0 {
		return
	}
	for _, task := range tasks {
		if task.Pruner == nil || task.MaxAge <= 0 {
			continue
		}
		go s.schedule(ctx, interval, task)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (int64, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		s.Logger.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, task Task) Run {
	return s.runJob(ctx, s.pruneJob(task))
}

// LastRun returns the most recent run of jobType.
func (s *Service) LastRun(jobType string) (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.last[jobType]
	return run, ok
}

func (s *Service) pruneJob(task Task) job {
	return job{Type: task.Type, Run: func(ctx context.Context) (int64, error) {
		return task.Pruner.Prune(ctx, s.now().Add(-task.MaxAge))
	}}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			s.runJob(ctx, j)
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) Run {
	run := Run{Type: j.Type, StartedAt: s.now()}
	run.Deleted, run.Err = j.Run(ctx)
	run.FinishedAt = s.now()

	s.mu.Lock()
	s.last[j.Type] = run
	s.mu.Unlock()

	if run.Err != nil {
		s.Logger.Warn("job run failed", "jobType", j.Type, "err", run.Err)
	} else {
		s.Logger.Info("job run completed", "jobType", j.Type, "deleted", run.Deleted, "durationMs", run.FinishedAt.Sub(run.StartedAt).Milliseconds())
	}
	return run
}

func (s *Service) schedule(ctx context.Context, interval time.Duration, task Task) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j := s.pruneJob(task)
			s.Enqueue(j.Type, j.Run)
		}
	}
}
