package command

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"spritefactory/internal/editor"
	ferrors "spritefactory/internal/errors"
	"spritefactory/internal/job"
)

type fakePaths struct {
	calls []string
	err   error
}

func (f *fakePaths) ToWindows(ctx context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return "", f.err
	}
	return "W:" + path, nil
}

func (f *fakePaths) ToUnix(ctx context.Context, path string) (string, error) {
	return strings.TrimPrefix(path, "W:"), nil
}

func newContext(task job.Task, params map[string]any) Context {
	if params == nil {
		params = map[string]any{}
	}
	return Context{
		Spec: job.Spec{JobID: "abc-1", Task: task, OutputBasename: "sprite", Params: params},
		Dir:  "/artifacts/abc-1",
	}
}

// roundTrip renders a payload the way meta.json sees it.
func roundTrip(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestDispatch_EveryTaskEmbedsSpec(t *testing.T) {
	d := NewDispatcher("/lua", &fakePaths{})

	for _, name := range job.TaskNames() {
		t.Run(name, func(t *testing.T) {
			c := newContext(job.Task(name), map[string]any{"extra": "kept"})
			cmd, err := d.Dispatch(c)
			if err != nil {
				t.Fatalf("Dispatch failed: %v", err)
			}
			if cmd.Task() != job.Task(name) {
				t.Errorf("expected task %s, got %s", name, cmd.Task())
			}
			if cmd.Script() != filepath.Join("/lua", name+".lua") {
				t.Errorf("unexpected script %s", cmd.Script())
			}

			embedded, ok := cmd.Meta()["job"].(job.Spec)
			if !ok {
				t.Fatalf("expected job.Spec in payload, got %T", cmd.Meta()["job"])
			}
			if !reflect.DeepEqual(embedded, c.Spec) {
				t.Errorf("payload spec %+v differs from %+v", embedded, c.Spec)
			}
		})
	}
}

func TestDispatch_UnsupportedTask(t *testing.T) {
	d := NewDispatcher("/lua", &fakePaths{})

	_, err := d.Dispatch(newContext("unknown_task", nil))
	if err == nil {
		t.Fatal("expected error")
	}
	if !ferrors.IsValidation(err) || !strings.Contains(err.Error(), "unsupported task: unknown_task") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMeta_SpritePlaceholder(t *testing.T) {
	cmd, _ := NewDispatcher("/lua", &fakePaths{}).Dispatch(newContext(job.TaskSpritePlaceholder, nil))
	meta := roundTrip(t, cmd.Meta())

	if meta["frame_count"] != float64(5) {
		t.Errorf("expected frame_count 5, got %v", meta["frame_count"])
	}
	want := map[string]any{
		"idle": map[string]any{"from": float64(1), "to": float64(1)},
		"walk": map[string]any{"from": float64(2), "to": float64(5)},
	}
	if !reflect.DeepEqual(meta["tags"], want) {
		t.Errorf("unexpected tags: %v", meta["tags"])
	}
}

func TestMeta_TilesetPlaceholder(t *testing.T) {
	cmd, _ := NewDispatcher("/lua", &fakePaths{}).Dispatch(newContext(job.TaskTilesetPlaceholder, nil))
	meta := roundTrip(t, cmd.Meta())

	if !reflect.DeepEqual(meta["tileset_size"], []any{float64(128), float64(128)}) {
		t.Errorf("unexpected tileset_size: %v", meta["tileset_size"])
	}
	if !reflect.DeepEqual(meta["tile_size"], []any{float64(16), float64(16)}) {
		t.Errorf("unexpected tile_size: %v", meta["tile_size"])
	}
	if !reflect.DeepEqual(meta["tiles"], []any{"grass", "stone", "wall", "dirt"}) {
		t.Errorf("unexpected tiles: %v", meta["tiles"])
	}
}

func TestMeta_SliceTileset(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		tile    []any
		palette float64
		dupes   bool
	}{
		{"defaults", nil, []any{float64(16), float64(16)}, 32, true},
		{"from json", map[string]any{"tile_width": float64(8), "tile_height": float64(12), "palette_size": float64(4), "remove_dupes": false},
			[]any{float64(8), float64(12)}, 4, false},
		{"from ints", map[string]any{"tile_width": 24, "tile_height": 24}, []any{float64(24), float64(24)}, 32, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := NewDispatcher("/lua", &fakePaths{}).Dispatch(newContext(job.TaskSliceTileset, tt.params))
			meta := roundTrip(t, cmd.Meta())
			if meta["layout"] != "grid" {
				t.Errorf("expected grid layout, got %v", meta["layout"])
			}
			if !reflect.DeepEqual(meta["tile_size"], tt.tile) {
				t.Errorf("tile_size = %v, want %v", meta["tile_size"], tt.tile)
			}
			if meta["palette_size"] != tt.palette {
				t.Errorf("palette_size = %v, want %v", meta["palette_size"], tt.palette)
			}
			if meta["remove_dupes"] != tt.dupes {
				t.Errorf("remove_dupes = %v, want %v", meta["remove_dupes"], tt.dupes)
			}
		})
	}
}

func TestMeta_ProcessSprite(t *testing.T) {
	d := NewDispatcher("/lua", &fakePaths{})

	still, _ := d.Dispatch(newContext(job.TaskProcessSprite, nil))
	meta := roundTrip(t, still.Meta())
	if meta["frame_count"] != float64(1) {
		t.Errorf("expected single frame, got %v", meta["frame_count"])
	}
	if _, ok := meta["tags"].(map[string]any)["walk"]; ok {
		t.Error("walk tag should only appear with gen_walkcycle")
	}
	if !reflect.DeepEqual(meta["target_size"], []any{float64(32), float64(32)}) {
		t.Errorf("unexpected target_size: %v", meta["target_size"])
	}
	if meta["palette_size"] != float64(16) {
		t.Errorf("unexpected palette_size: %v", meta["palette_size"])
	}

	walking, _ := d.Dispatch(newContext(job.TaskProcessSprite, map[string]any{"gen_walkcycle": true}))
	meta = roundTrip(t, walking.Meta())
	if meta["frame_count"] != float64(5) {
		t.Errorf("expected 5 frames, got %v", meta["frame_count"])
	}
	if _, ok := meta["tags"].(map[string]any)["walk"]; !ok {
		t.Error("expected walk tag")
	}
}

func TestScriptParams_Placeholder(t *testing.T) {
	paths := &fakePaths{}
	cmd, _ := NewDispatcher("/lua", paths).Dispatch(newContext(job.TaskSpritePlaceholder, map[string]any{"ignored": "x"}))

	got, err := cmd.ScriptParams(context.Background())
	if err != nil {
		t.Fatalf("ScriptParams failed: %v", err)
	}
	want := []editor.ScriptParam{
		{Key: "output_dir", Value: "W:/artifacts/abc-1"},
		{Key: "output_basename", Value: "sprite"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ScriptParams() = %v, want %v", got, want)
	}
}

func TestScriptParams_ForwardsScalarsSorted(t *testing.T) {
	paths := &fakePaths{}
	cmd, _ := NewDispatcher("/lua", paths).Dispatch(newContext(job.TaskSliceTileset, map[string]any{
		"tile_width":   float64(16),
		"input_file":   "/tmp/src.png",
		"remove_dupes": true,
		"nested":       map[string]any{"a": 1},
		"list":         []any{1},
	}))

	got, err := cmd.ScriptParams(context.Background())
	if err != nil {
		t.Fatalf("ScriptParams failed: %v", err)
	}
	want := []editor.ScriptParam{
		{Key: "output_dir", Value: "W:/artifacts/abc-1"},
		{Key: "output_basename", Value: "sprite"},
		{Key: "input_file", Value: "W:/tmp/src.png"},
		{Key: "remove_dupes", Value: "true"},
		{Key: "tile_width", Value: "16"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ScriptParams() = %v, want %v", got, want)
	}
}

func TestScriptParams_TranslationFailure(t *testing.T) {
	paths := &fakePaths{err: errors.New("wslpath failed")}
	cmd, _ := NewDispatcher("/lua", paths).Dispatch(newContext(job.TaskTilesetPlaceholder, nil))

	if _, err := cmd.ScriptParams(context.Background()); err == nil {
		t.Fatal("expected translation error")
	}
}

func TestScalar(t *testing.T) {
	tests := []struct {
		in   any
		want string
		ok   bool
	}{
		{"a", "a", true},
		{true, "true", true},
		{float64(8), "8", true},
		{json.Number("9007199254740993"), "9007199254740993", true},
		{12, "12", true},
		{int64(7), "7", true},
		{[]any{1}, "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := scalar(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("scalar(%v) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
