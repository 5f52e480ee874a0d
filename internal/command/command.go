// Package command maps each supported task to its editor script, script
// parameters and metadata payload.
package command

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strconv"

	"spritefactory/internal/editor"
	"spritefactory/internal/errors"
	"spritefactory/internal/job"
	"spritefactory/internal/pathconv"
)

// Context pairs a validated spec with the bundle directory reserved for it.
type Context struct {
	Spec job.Spec
	Dir  string
}

// Command is what the factory needs from a task variant.
type Command interface {
	// Task is the variant's identifier.
	Task() job.Task
	// Script is the absolute path of the Lua script in Unix form.
	Script() string
	// ScriptParams returns the ordered --script-param list.
	ScriptParams(ctx context.Context) ([]editor.ScriptParam, error)
	// Meta returns the payload written to meta.json.
	Meta() map[string]any
}

// behavior is one row of the dispatch table.
type behavior struct {
	script string
	// forward passes scalar params through to the script.
	forward bool
	meta    func(p job.Params) map[string]any
}

var behaviors = map[job.Task]behavior{
	job.TaskSpritePlaceholder: {
		script: "sprite_placeholder.lua",
		meta: func(job.Params) map[string]any {
			return map[string]any{
				"frame_count": 5,
				"tags":        walkTags(),
			}
		},
	},
	job.TaskTilesetPlaceholder: {
		script: "tileset_placeholder.lua",
		meta: func(job.Params) map[string]any {
			return map[string]any{
				"tileset_size": []int{128, 128},
				"tile_size":    []int{16, 16},
				"tiles":        []string{"grass", "stone", "wall", "dirt"},
			}
		},
	},
	job.TaskSliceTileset: {
		script:  "slice_tileset.lua",
		forward: true,
		meta: func(p job.Params) map[string]any {
			return map[string]any{
				"layout":       "grid",
				"tile_size":    []int{p.Int("tile_width", 16), p.Int("tile_height", 16)},
				"palette_size": p.Int("palette_size", 32),
				"remove_dupes": p.Bool("remove_dupes", true),
			}
		},
	},
	job.TaskProcessSprite: {
		script:  "process_sprite.lua",
		forward: true,
		meta: func(p job.Params) map[string]any {
			m := map[string]any{
				"target_size":  []int{p.Int("target_width", 32), p.Int("target_height", 32)},
				"palette_size": p.Int("palette_size", 16),
			}
			if p.Bool("gen_walkcycle", false) {
				m["frame_count"] = 5
				m["tags"] = walkTags()
			} else {
				m["frame_count"] = 1
				m["tags"] = map[string]any{"idle": frameRange(1, 1)}
			}
			return m
		},
	},
}

func walkTags() map[string]any {
	return map[string]any{
		"idle": frameRange(1, 1),
		"walk": frameRange(2, 5),
	}
}

func frameRange(from, to int) map[string]int {
	return map[string]int{"from": from, "to": to}
}

// Dispatcher builds commands for validated specs.
type Dispatcher struct {
	scriptsDir string
	paths      pathconv.Converter
}

// NewDispatcher creates a Dispatcher resolving scripts under scriptsDir.
func NewDispatcher(scriptsDir string, paths pathconv.Converter) *Dispatcher {
	return &Dispatcher{scriptsDir: scriptsDir, paths: paths}
}

// Dispatch returns the variant for c.Spec.Task.
func (d *Dispatcher) Dispatch(c Context) (Command, error) {
	b, ok := behaviors[c.Spec.Task]
	if !ok {
		return nil, errors.ValidationField("task", "unsupported task: "+string(c.Spec.Task))
	}
	return &variant{ctx: c, behavior: b, scriptsDir: d.scriptsDir, paths: d.paths}, nil
}

type variant struct {
	behavior
	ctx        Context
	scriptsDir string
	paths      pathconv.Converter
}

func (v *variant) Task() job.Task {
	return v.ctx.Spec.Task
}

func (v *variant) Script() string {
	return filepath.Join(v.scriptsDir, v.script)
}

func (v *variant) ScriptParams(ctx context.Context) ([]editor.ScriptParam, error) {
	outDir, err := v.paths.ToWindows(ctx, v.ctx.Dir)
	if err != nil {
		return nil, err
	}
	params := []editor.ScriptParam{
		{Key: "output_dir", Value: outDir},
		{Key: "output_basename", Value: v.ctx.Spec.OutputBasename},
	}
	if !v.forward {
		return params, nil
	}

	keys := make([]string, 0, len(v.ctx.Spec.Params))
	for k := range v.ctx.Spec.Params {
		if k == "output_dir" || k == "output_basename" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		value, ok := scalar(v.ctx.Spec.Params[k])
		if !ok {
			continue
		}
		if k == "input_file" {
			if value, err = v.paths.ToWindows(ctx, value); err != nil {
				return nil, err
			}
		}
		params = append(params, editor.ScriptParam{Key: k, Value: value})
	}
	return params, nil
}

func (v *variant) Meta() map[string]any {
	m := v.meta(job.Params(v.ctx.Spec.Params))
	m["job"] = v.ctx.Spec
	return m
}

// scalar renders strings, numbers and booleans for the command line.
func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	default:
		return "", false
	}
}
