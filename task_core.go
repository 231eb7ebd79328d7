package taskrunner

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WorkFunc performs a task's actual work step. A nil return completes the
// task, a non-nil return fails it.
type WorkFunc func(ctx context.Context, task *Task) error

// Task is a single unit of work with identity, a human-readable name and a
// lifecycle status. Status transitions originate solely from Run; every
// transition synchronously notifies the attached observers in attachment
// order before Run proceeds.
type Task struct {
	ID   int64
	Name string

	createdAt time.Time
	work      WorkFunc

	mu        sync.Mutex
	status    Status
	observers []Observer
}

// NewTask builds a task in the Pending state. The ID is taken as-is;
// uniqueness within a run is the caller's responsibility.
func NewTask(id int64, name string, work WorkFunc) *Task {
	return &Task{
		ID:        id,
		Name:      name,
		createdAt: time.Now(),
		status:    StatusPending,
		work:      work,
	}
}

// Attach appends an observer to this task's notification list. There is no
// de-duplication: attaching the same observer twice means it is notified
// twice per transition.
func (t *Task) Attach(obs Observer) {
	if obs == nil {
		return
	}
	t.mu.Lock()
	t.observers = append(t.observers, obs)
	t.mu.Unlock()
}

// Status returns the task's current lifecycle status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// CreatedAt returns the construction timestamp.
func (t *Task) CreatedAt() time.Time {
	return t.createdAt
}

// setStatus is the sole mutation path for status. It records the prior
// status, overwrites it, then notifies every attached observer in order.
func (t *Task) setStatus(newStatus Status) {
	t.mu.Lock()
	old := t.status
	t.status = newStatus
	observers := make([]Observer, len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, obs := range observers {
		obs.OnTransition(t, old, newStatus)
	}
}

// Run drives the task through Pending -> Running -> (Completed|Failed). Any
// fault in the work step, panics included, is contained here and surfaced
// only as the Failed status; callers inspect Status rather than an error.
func (t *Task) Run(ctx context.Context) {
	t.setStatus(StatusRunning)
	if err := t.runWork(ctx); err != nil {
		log.Warn().
			Err(err).
			Int64("task_id", t.ID).
			Str("name", t.Name).
			Msg("task work failed")
		t.setStatus(StatusFailed)
		return
	}
	t.setStatus(StatusCompleted)
}

func (t *Task) runWork(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task work panicked: %v", r)
		}
	}()
	if t.work == nil {
		return nil
	}
	return t.work(ctx, t)
}
