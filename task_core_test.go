package taskrunner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
)

type transition struct {
	taskID int64
	old    Status
	new    Status
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []transition
}

func (r *recordingObserver) OnTransition(task *Task, oldStatus, newStatus Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, transition{taskID: task.ID, old: oldStatus, new: newStatus})
}

func (r *recordingObserver) snapshot() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]transition, len(r.transitions))
	copy(out, r.transitions)
	return out
}

func TestTaskRunCompletes(t *testing.T) {
	obs := &recordingObserver{}
	task := NewTask(1, "greet", func(ctx context.Context, task *Task) error {
		return nil
	})
	task.Attach(obs)

	if task.Status() != StatusPending {
		t.Fatalf("expected initial status Pending, got %s", task.Status())
	}
	task.Run(context.Background())

	if task.Status() != StatusCompleted {
		t.Fatalf("expected Completed, got %s", task.Status())
	}
	want := []transition{
		{taskID: 1, old: StatusPending, new: StatusRunning},
		{taskID: 1, old: StatusRunning, new: StatusCompleted},
	}
	assertTransitions(t, obs.snapshot(), want)
}

func TestTaskRunFailureIsContained(t *testing.T) {
	obs := &recordingObserver{}
	task := NewTask(2, "flaky", func(ctx context.Context, task *Task) error {
		return errors.New("boom")
	})
	task.Attach(obs)
	task.Run(context.Background())

	if task.Status() != StatusFailed {
		t.Fatalf("expected Failed, got %s", task.Status())
	}
	want := []transition{
		{taskID: 2, old: StatusPending, new: StatusRunning},
		{taskID: 2, old: StatusRunning, new: StatusFailed},
	}
	assertTransitions(t, obs.snapshot(), want)
}

func TestTaskRunRecoversPanic(t *testing.T) {
	task := NewTask(3, "panicky", func(ctx context.Context, task *Task) error {
		panic("work blew up")
	})
	// Run must not let the panic escape.
	task.Run(context.Background())
	if task.Status() != StatusFailed {
		t.Fatalf("expected Failed after panic, got %s", task.Status())
	}
}

func TestAttachSameObserverTwiceNotifiesTwice(t *testing.T) {
	obs := &recordingObserver{}
	task := NewTask(4, "dup", nil)
	task.Attach(obs)
	task.Attach(obs)
	task.Run(context.Background())

	got := obs.snapshot()
	// Two transitions, two attachments each: four notifications.
	if len(got) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(got))
	}
	if got[0].new != StatusRunning || got[1].new != StatusRunning {
		t.Fatalf("expected first two notifications for Running, got %+v", got[:2])
	}
	if got[2].new != StatusCompleted || got[3].new != StatusCompleted {
		t.Fatalf("expected last two notifications for Completed, got %+v", got[2:])
	}
}

func TestObserversNotifiedInAttachmentOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	mark := func(name string) Observer {
		return observerFunc(func(task *Task, oldStatus, newStatus Status) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		})
	}
	task := NewTask(5, "ordered", nil)
	task.Attach(mark("first"))
	task.Attach(mark("second"))
	task.Run(context.Background())

	mu.Lock()
	defer mu.Unlock()
	want := []string{"first", "second", "first", "second"}
	if len(order) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("notification %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestVariantDurationsKeepRatio(t *testing.T) {
	unit := 10 * time.Millisecond
	cases := []struct {
		name string
		task *Task
		min  time.Duration
	}{
		{"email", NewEmailTask(1, "e", unit), 2 * unit},
		{"backup", NewBackupTask(2, "b", unit), 3 * unit},
		{"report", NewReportTask(3, "r", unit), unit},
	}
	for _, tc := range cases {
		start := time.Now()
		tc.task.Run(context.Background())
		elapsed := time.Since(start)
		if tc.task.Status() != StatusCompleted {
			t.Fatalf("%s: expected Completed, got %s", tc.name, tc.task.Status())
		}
		if elapsed < tc.min {
			t.Fatalf("%s: finished in %v, expected at least %v", tc.name, elapsed, tc.min)
		}
	}
}

type observerFunc func(task *Task, oldStatus, newStatus Status)

func (f observerFunc) OnTransition(task *Task, oldStatus, newStatus Status) {
	f(task, oldStatus, newStatus)
}

func assertTransitions(t *testing.T, got, want []transition) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d transitions, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transition %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}
