// Package config loads a scheduling run description from a YAML or JSON
// document: the worker pool bound, the simulated work unit, and the task
// records handed to the factory.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	yaml "go.yaml.in/yaml/v3"

	taskrunner "github.com/taskops/taskrunner"
)

// Run is the on-disk shape of a scheduling run.
type Run struct {
	// PoolSize bounds concurrent task execution; 0 keeps the engine default.
	PoolSize int `json:"poolSize"`
	// WorkUnit scales the variants' simulated durations, e.g. "1s" or
	// "50ms". Empty keeps the engine default.
	WorkUnit string `json:"workUnit"`
	// Tasks are the descriptions handed to the factory, in order.
	Tasks []taskrunner.Spec `json:"tasks"`
}

// Unit parses WorkUnit, returning zero (engine default) when unset.
func (r *Run) Unit() (time.Duration, error) {
	trimmed := strings.TrimSpace(r.WorkUnit)
	if trimmed == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, errors.Wrapf(err, "config: parse workUnit %q", trimmed)
	}
	if d < 0 {
		return 0, errors.Errorf("config: workUnit %q is negative", trimmed)
	}
	return d, nil
}

// Load reads and decodes a run document. YAML input is coerced to JSON so a
// single strict decoder covers both formats and unknown fields fail loudly.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	jsonBytes, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.DisallowUnknownFields()
	var run Run
	if err := dec.Decode(&run); err != nil {
		return nil, errors.Wrapf(err, "config: decode %s", path)
	}
	if len(run.Tasks) == 0 {
		return nil, errors.Errorf("config: %s declares no tasks", path)
	}
	return &run, nil
}

// coerceToJSONBytes converts YAML documents to JSON bytes; JSON passes
// through untouched.
func coerceToJSONBytes(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "config: yaml unmarshal")
	}
	j, err := json.Marshal(normalizeYAML(v))
	if err != nil {
		return nil, errors.Wrap(err, "config: yaml->json marshal")
	}
	return j, nil
}

// normalizeYAML ensures all map keys are strings so the result can be
// JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = normalizeYAML(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}
