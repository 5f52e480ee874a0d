package editor

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"spritefactory/internal/errors"
	"spritefactory/internal/pathconv"
	"spritefactory/internal/testutil"
)

func TestLocate_UnixOverride(t *testing.T) {
	exe := testutil.StubEditor(t, 0)
	loc := NewLocator(pathconv.New(testutil.StubPathTool(t)), exe)

	got, err := loc.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if got.Unix != exe {
		t.Errorf("expected unix path %s, got %s", exe, got.Unix)
	}
	if got.Windows != testutil.WindowsPrefix+exe {
		t.Errorf("expected windows path %s, got %s", testutil.WindowsPrefix+exe, got.Windows)
	}
}

func TestLocate_WindowsOverride(t *testing.T) {
	exe := testutil.StubEditor(t, 0)
	override := testutil.WindowsPrefix + exe
	loc := NewLocator(pathconv.New(testutil.StubPathTool(t)), override)

	got, err := loc.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if got.Unix != exe || got.Windows != override {
		t.Errorf("unexpected location: %+v", got)
	}
}

func TestLocate_OverrideMissing(t *testing.T) {
	tool := testutil.StubPathTool(t)
	missing := filepath.Join(t.TempDir(), "aseprite")

	for _, override := range []string{missing, testutil.WindowsPrefix + missing} {
		loc := NewLocator(pathconv.New(tool), override)
		_, err := loc.Locate(context.Background())
		if err == nil {
			t.Fatalf("expected error for %s", override)
		}
		if !errors.IsCode(err, errors.CodeConfig) {
			t.Errorf("expected config error, got %v", err)
		}
		if !strings.Contains(err.Error(), "ASEPRITE_EXE not found at "+override) {
			t.Errorf("expected message naming %s, got %v", override, err)
		}
	}
}

func TestLocate_OverrideWinsOverCandidates(t *testing.T) {
	override := filepath.Join(t.TempDir(), "nope")
	candidate := testutil.StubEditor(t, 0)
	loc := NewLocator(pathconv.New(testutil.StubPathTool(t)), override)
	loc.Candidates = []string{testutil.WindowsPrefix + candidate}

	if _, err := loc.Locate(context.Background()); err == nil {
		t.Fatal("expected a broken override to fail without falling back")
	}
}

func TestLocate_CandidatesInOrder(t *testing.T) {
	first := testutil.StubEditor(t, 0)
	second := testutil.StubEditor(t, 0)
	loc := NewLocator(pathconv.New(testutil.StubPathTool(t)), "")
	loc.Candidates = []string{
		"INVALID path skipped",
		testutil.WindowsPrefix + filepath.Join(t.TempDir(), "absent.exe"),
		testutil.WindowsPrefix + first,
		testutil.WindowsPrefix + second,
	}

	got, err := loc.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if got.Unix != first {
		t.Errorf("expected first existing candidate %s, got %s", first, got.Unix)
	}
}

func TestLocate_NotFound(t *testing.T) {
	loc := NewLocator(pathconv.New(testutil.StubPathTool(t)), "")
	loc.Candidates = []string{testutil.WindowsPrefix + filepath.Join(t.TempDir(), "absent.exe")}

	_, err := loc.Locate(context.Background())
	if !errors.IsCode(err, errors.CodeDiscovery) {
		t.Fatalf("expected discovery error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Set ASEPRITE_EXE") {
		t.Errorf("expected hint about ASEPRITE_EXE, got %v", err)
	}
}

func TestLocate_NoCaching(t *testing.T) {
	exe := testutil.StubEditor(t, 0)
	loc := NewLocator(pathconv.New(testutil.StubPathTool(t)), "")
	loc.Candidates = []string{testutil.WindowsPrefix + exe}

	if _, err := loc.Locate(context.Background()); err != nil {
		t.Fatalf("first Locate failed: %v", err)
	}

	loc.Candidates = []string{testutil.WindowsPrefix + filepath.Join(t.TempDir(), "gone.exe")}
	if _, err := loc.Locate(context.Background()); err == nil {
		t.Error("expected second Locate to resolve again and fail")
	}
}
