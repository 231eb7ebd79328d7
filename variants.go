package taskrunner

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Task type discriminants understood by the factory.
const (
	TypeEmail  = "email"
	TypeBackup = "backup"
	TypeReport = "report"
)

// Simulated work durations per variant, in work units. The unit itself is
// configured on the factory so tests can run in milliseconds while keeping
// the 2/3/1 ratio.
const (
	emailWorkUnits  = 2
	backupWorkUnits = 3
	reportWorkUnits = 1
)

// NewEmailTask builds the email-send variant: sleeps two work units standing
// in for the network send, then logs the delivery.
func NewEmailTask(id int64, name string, unit time.Duration) *Task {
	return NewTask(id, name, simulatedWork(emailWorkUnits*unit, "email sent"))
}

// NewBackupTask builds the data-backup variant.
func NewBackupTask(id int64, name string, unit time.Duration) *Task {
	return NewTask(id, name, simulatedWork(backupWorkUnits*unit, "data backed up"))
}

// NewReportTask builds the report-generation variant.
func NewReportTask(id int64, name string, unit time.Duration) *Task {
	return NewTask(id, name, simulatedWork(reportWorkUnits*unit, "report generated"))
}

func simulatedWork(d time.Duration, doneMsg string) WorkFunc {
	return func(ctx context.Context, task *Task) error {
		// Stands in for blocking I/O. The base contract has no cancellation:
		// once admitted, the task runs to a terminal state.
		time.Sleep(d)
		log.Info().
			Int64("task_id", task.ID).
			Str("name", task.Name).
			Msg(doneMsg)
		return nil
	}
}
