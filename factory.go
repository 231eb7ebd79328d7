package taskrunner

import (
	"fmt"
	"time"
)

// Spec describes a task to build, as supplied by a configuration document or
// an upstream caller. Only Type is validated; ID uniqueness and name shape
// are the caller's concern.
type Spec struct {
	TaskID int64  `json:"taskId" yaml:"taskId"`
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
}

// UnknownTypeError reports a task type outside the factory's registered set.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown task type: %q", e.Type)
}

type taskBuilder func(id int64, name string) *Task

// Factory maps task type discriminants to constructors. The mapping is built
// once here; adding a variant means adding a behavior and a case below.
type Factory struct {
	unit     time.Duration
	builders map[string]taskBuilder
}

// DefaultWorkUnit is the real duration of one simulated work unit.
const DefaultWorkUnit = time.Second

// NewFactory builds a factory whose variants simulate work in multiples of
// unit. A non-positive unit falls back to DefaultWorkUnit.
func NewFactory(unit time.Duration) *Factory {
	if unit <= 0 {
		unit = DefaultWorkUnit
	}
	f := &Factory{unit: unit}
	f.builders = map[string]taskBuilder{
		TypeEmail: func(id int64, name string) *Task {
			return NewEmailTask(id, name, f.unit)
		},
		TypeBackup: func(id int64, name string) *Task {
			return NewBackupTask(id, name, f.unit)
		},
		TypeReport: func(id int64, name string) *Task {
			return NewReportTask(id, name, f.unit)
		},
	}
	return f
}

// Create builds the task variant selected by spec.Type. An unregistered type
// yields an UnknownTypeError and no task.
func (f *Factory) Create(spec Spec) (*Task, error) {
	build, ok := f.builders[spec.Type]
	if !ok {
		return nil, &UnknownTypeError{Type: spec.Type}
	}
	return build(spec.TaskID, spec.Name), nil
}
