package taskrunner

import (
	"github.com/rs/zerolog/log"
)

// Observer receives every status transition of each task it is attached to.
// The same observer instance may be shared across tasks, so implementations
// must be safe to invoke concurrently from multiple task goroutines. They
// must not mutate the task, and they run synchronously on the task's own
// goroutine: a slow observer delays that task's progress.
type Observer interface {
	OnTransition(task *Task, oldStatus, newStatus Status)
}

// TransitionLogger is the stock observer: stateless, shared freely, emits one
// structured line per transition.
type TransitionLogger struct{}

func (TransitionLogger) OnTransition(task *Task, oldStatus, newStatus Status) {
	log.Info().
		Int64("task_id", task.ID).
		Str("name", task.Name).
		Str("from", string(oldStatus)).
		Str("to", string(newStatus)).
		Msg("task status changed")
}
