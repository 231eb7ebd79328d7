package taskrunner

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestFactoryCreatesRegisteredVariants(t *testing.T) {
	factory := NewFactory(time.Millisecond)
	for _, typ := range []string{TypeEmail, TypeBackup, TypeReport} {
		task, err := factory.Create(Spec{TaskID: 7, Name: "job", Type: typ})
		if err != nil {
			t.Fatalf("Create(%s) returned error: %v", typ, err)
		}
		if task.ID != 7 || task.Name != "job" {
			t.Fatalf("Create(%s) built task %d %q, expected 7 %q", typ, task.ID, task.Name, "job")
		}
		if task.Status() != StatusPending {
			t.Fatalf("Create(%s) built task in %s, expected Pending", typ, task.Status())
		}
	}
}

func TestFactoryRejectsUnknownType(t *testing.T) {
	factory := NewFactory(time.Millisecond)
	task, err := factory.Create(Spec{TaskID: 2, Name: "y", Type: "bogus"})
	if task != nil {
		t.Fatalf("expected no task for unknown type, got %+v", task)
	}
	var unknown *UnknownTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTypeError, got %v", err)
	}
	if unknown.Type != "bogus" {
		t.Fatalf("expected offending type %q carried, got %q", "bogus", unknown.Type)
	}
}

func TestEmailTaskCompletionMessageIdentifiesTask(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	factory := NewFactory(time.Millisecond)
	task, err := factory.Create(Spec{TaskID: 1, Name: "x", Type: TypeEmail})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	task.Run(context.Background())

	if task.Status() != StatusCompleted {
		t.Fatalf("expected Completed, got %s", task.Status())
	}
	out := buf.String()
	if !strings.Contains(out, "email sent") {
		t.Fatalf("expected completion message in output, got %q", out)
	}
	if !strings.Contains(out, `"task_id":1`) {
		t.Fatalf("expected completion message to identify task 1, got %q", out)
	}
}
