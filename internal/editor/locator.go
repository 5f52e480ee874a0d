// Package editor finds the Aseprite binary and drives it in batch mode.
package editor

import (
	"context"
	"os"
	"strings"

	"spritefactory/internal/errors"
	"spritefactory/internal/pathconv"
)

// DefaultCandidates are the well-known install locations, tried in order.
var DefaultCandidates = []string{
	`C:\Program Files\Aseprite\aseprite.exe`,
	`C:\Program Files (x86)\Aseprite\aseprite.exe`,
}

// Location is the same editor binary in both path conventions.
type Location struct {
	Unix    string
	Windows string
}

// Locator resolves the editor binary. Nothing is cached between calls.
type Locator struct {
	// Override is the operator-supplied path (ASEPRITE_EXE). A leading "/"
	// marks a Unix path; anything else is read as a Windows path.
	Override string
	// Candidates replaces DefaultCandidates when non-nil.
	Candidates []string

	paths pathconv.Converter
}

// NewLocator creates a Locator that translates through paths.
func NewLocator(paths pathconv.Converter, override string) *Locator {
	return &Locator{Override: override, paths: paths}
}

// Locate returns the editor location or a configuration/discovery error.
func (l *Locator) Locate(ctx context.Context) (Location, error) {
	if override := strings.TrimSpace(l.Override); override != "" {
		return l.fromOverride(ctx, override)
	}

	candidates := l.Candidates
	if candidates == nil {
		candidates = DefaultCandidates
	}

	for _, win := range candidates {
		unix, err := l.paths.ToUnix(ctx, win)
		if err != nil {
			continue
		}
		if isFile(unix) {
			return Location{Unix: unix, Windows: win}, nil
		}
	}

	return Location{}, errors.Discovery(
		`Aseprite executable not found. Set ASEPRITE_EXE to the Windows path (e.g. C:\Program Files\Aseprite\aseprite.exe) or a WSL path.`)
}

func (l *Locator) fromOverride(ctx context.Context, override string) (Location, error) {
	if strings.HasPrefix(override, "/") {
		if !isFile(override) {
			return Location{}, errors.Config("ASEPRITE_EXE not found at %s.", override)
		}
		win, err := l.paths.ToWindows(ctx, override)
		if err != nil {
			return Location{}, err
		}
		return Location{Unix: override, Windows: win}, nil
	}

	unix, err := l.paths.ToUnix(ctx, override)
	if err != nil {
		return Location{}, err
	}
	if !isFile(unix) {
		return Location{}, errors.Config("ASEPRITE_EXE not found at %s.", override)
	}
	return Location{Unix: unix, Windows: override}, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
