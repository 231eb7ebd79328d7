package taskrunner

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultPoolSize = 5

// Config controls Scheduler behavior.
type Config struct {
	// PoolSize bounds how many tasks execute concurrently. Defaults to 5.
	PoolSize int
	// Logger is the shared observer attached to every task added to the
	// scheduler. Defaults to TransitionLogger.
	Logger Observer
}

// Scheduler owns a set of tasks and executes them under a bounded worker
// pool. Tasks are admitted to workers in submission order; completion order
// is not guaranteed.
type Scheduler struct {
	cfg    Config
	logger Observer

	mu    sync.Mutex
	tasks []*Task
}

// NewScheduler builds a scheduler with the provided configuration, applying
// defaults for unset fields.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = TransitionLogger{}
	}
	return &Scheduler{cfg: cfg, logger: logger}
}

// AddTask attaches the scheduler's shared logger to the task, then queues it.
// AddTask is the only entry point registering the logger, so it is always the
// first observer relative to any the caller attaches afterwards.
func (s *Scheduler) AddTask(t *Task) {
	if t == nil {
		return
	}
	t.Attach(s.logger)
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
}

// Tasks returns the queued tasks in submission order.
func (s *Scheduler) Tasks() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// FailedCount reports how many queued tasks are currently in the Failed
// state. Callers who need per-task failure detail attach their own observer;
// this is a convenience for exit-code style summaries after RunAll.
func (s *Scheduler) FailedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	failed := 0
	for _, t := range s.tasks {
		if t.Status() == StatusFailed {
			failed++
		}
	}
	return failed
}

// RunAll executes every queued task on the worker pool and blocks until each
// has reached a terminal status. At most PoolSize tasks run at any instant;
// admission is FIFO in submission order. A task's own failure is contained
// inside its Run and never aborts siblings nor surfaces here: RunAll returns
// an error only when the orchestration layer itself cannot make progress.
func (s *Scheduler) RunAll(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}

	s.mu.Lock()
	tasks := make([]*Task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.Unlock()

	if len(tasks) == 0 {
		log.Debug().Msg("run all skipped: no tasks queued")
		return nil
	}

	log.Info().
		Int("task_count", len(tasks)).
		Int("pool_size", s.cfg.PoolSize).
		Msg("run all tasks")

	sem := make(chan struct{}, s.cfg.PoolSize)
	var group sync.WaitGroup
	for _, task := range tasks {
		// Blocks until a worker slot frees, preserving FIFO admission.
		sem <- struct{}{}
		group.Add(1)
		go func(task *Task) {
			defer group.Done()
			defer func() { <-sem }()
			task.Run(ctx)
		}(task)
	}
	group.Wait()

	log.Info().
		Int("task_count", len(tasks)).
		Int("failed", s.FailedCount()).
		Msg("all tasks reached a terminal status")
	return nil
}
