// Package job parses and validates untrusted job descriptions.
package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"spritefactory/internal/errors"
)

// Task identifies the kind of asset-production operation a job requests.
type Task string

const (
	TaskSpritePlaceholder  Task = "sprite_placeholder"
	TaskTilesetPlaceholder Task = "tileset_placeholder"
	TaskSliceTileset       Task = "slice_tileset"
	TaskProcessSprite      Task = "process_sprite"
)

// SupportedTasks is the fixed set of tasks the factory accepts.
var SupportedTasks = map[Task]struct{}{
	TaskSpritePlaceholder:  {},
	TaskTilesetPlaceholder: {},
	TaskSliceTileset:       {},
	TaskProcessSprite:      {},
}

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Spec is a validated job. It is never mutated after Validate returns it.
type Spec struct {
	JobID          string         `json:"job_id"`
	Task           Task           `json:"task"`
	OutputBasename string         `json:"output_basename"`
	Params         map[string]any `json:"params"`
}

// Load reads a job spec file and validates its contents.
func Load(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Spec{}, errors.Validation(fmt.Sprintf("Job spec not found at %s", path))
		}
		return Spec{}, errors.WrapWithCode(err, errors.CodeValidation, "", "failed to read job spec")
	}

	raw, err := decode(data)
	if err != nil {
		return Spec{}, errors.WrapWithCode(err, errors.CodeValidation, "", "Job spec is not valid JSON")
	}

	return Validate(raw)
}

// decode keeps numbers as json.Number so params survive byte for byte.
func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after the top-level value")
	}
	return raw, nil
}

// Validate turns an arbitrary decoded structure into a Spec.
// Rules are checked in order and the first failure names its field.
func Validate(raw any) (Spec, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Spec{}, errors.Validation("Job spec must be a JSON object.")
	}

	jobID, ok := obj["job_id"].(string)
	if !ok || jobID == "" {
		return Spec{}, errors.ValidationField("job_id", "job_id is required and must be a string.")
	}
	if err := ValidateJobID(jobID); err != nil {
		return Spec{}, err
	}

	task, ok := obj["task"].(string)
	if _, supported := SupportedTasks[Task(task)]; !ok || !supported {
		return Spec{}, errors.ValidationField("task", fmt.Sprintf("task must be one of [%s].", strings.Join(TaskNames(), ", ")))
	}

	basename, ok := obj["output_basename"].(string)
	if !ok || basename == "" {
		return Spec{}, errors.ValidationField("output_basename", "output_basename is required and must be a string.")
	}
	if !IsBareFilename(basename) {
		return Spec{}, errors.ValidationField("output_basename", "output_basename must be a file basename without directories.")
	}

	params := map[string]any{}
	if p, present := obj["params"]; present && p != nil {
		m, ok := p.(map[string]any)
		if !ok {
			return Spec{}, errors.ValidationField("params", "params must be a JSON object.")
		}
		params = m
	}

	return Spec{
		JobID:          jobID,
		Task:           Task(task),
		OutputBasename: basename,
		Params:         params,
	}, nil
}

// ValidateJobID checks that id is usable as a single path component.
func ValidateJobID(id string) error {
	if !jobIDPattern.MatchString(id) {
		return errors.ValidationField("job_id", "job_id must contain only letters, numbers, underscore, or dash.")
	}
	return nil
}

// IsBareFilename reports whether name has no directory component in either
// path convention.
func IsBareFilename(name string) bool {
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	if name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name
}

// TaskNames returns the supported task identifiers, sorted.
func TaskNames() []string {
	names := make([]string, 0, len(SupportedTasks))
	for t := range SupportedTasks {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

// Params is a read-only view over task options with typed accessors.
// Numbers loaded from a file arrive as json.Number; in-process callers may use int.
type Params map[string]any

// Int returns the integer at key or def when absent or not a number.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	}
	return def
}

// Bool returns the boolean at key or def when absent or not a boolean.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// String returns the string at key or def when absent or not a string.
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}
