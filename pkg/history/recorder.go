package history

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	taskrunner "github.com/taskops/taskrunner"
)

// Recorder adapts a Store to the engine's Observer interface. Observers are
// non-failing notification sinks, so write errors are logged, never surfaced
// to the running task.
type Recorder struct {
	store *Store
}

// NewRecorder wraps store for attachment to tasks.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) OnTransition(task *taskrunner.Task, oldStatus, newStatus taskrunner.Status) {
	if r == nil || r.store == nil {
		return
	}
	err := r.store.RecordTransition(context.Background(), Transition{
		TaskID:    task.ID,
		TaskName:  task.Name,
		OldStatus: string(oldStatus),
		NewStatus: string(newStatus),
		At:        time.Now(),
	})
	if err != nil {
		log.Error().
			Err(err).
			Int64("task_id", task.ID).
			Msg("history: record transition failed")
	}
}
