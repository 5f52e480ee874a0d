// Package pathconv converts paths between the orchestration host's Unix form
// and the editor host's Windows form by delegating to wslpath.
package pathconv

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"spritefactory/internal/errors"
)

// DefaultTool is the conversion utility shipped with WSL.
const DefaultTool = "wslpath"

// Converter is the contract the rest of the factory depends on.
type Converter interface {
	ToWindows(ctx context.Context, path string) (string, error)
	ToUnix(ctx context.Context, path string) (string, error)
}

// Translator implements Converter by running the conversion utility.
type Translator struct {
	// Tool is the utility name or path. Empty means DefaultTool.
	Tool string
}

// New creates a Translator for the given tool.
func New(tool string) *Translator {
	if tool == "" {
		tool = DefaultTool
	}
	return &Translator{Tool: tool}
}

// ToWindows converts a Unix path to its Windows form. The target need not exist.
func (t *Translator) ToWindows(ctx context.Context, path string) (string, error) {
	return t.run(ctx, "-w", path)
}

// ToUnix converts a Windows path to its Unix form. The target need not exist.
func (t *Translator) ToUnix(ctx context.Context, path string) (string, error) {
	return t.run(ctx, "-u", path)
}

func (t *Translator) run(ctx context.Context, flag, path string) (string, error) {
	bin, err := exec.LookPath(t.Tool)
	if err != nil {
		return "", errors.Config("%s not found; ensure this runs inside WSL.", t.Tool)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, flag, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return "", errors.Config("%s failed: %s", t.Tool, strings.TrimSpace(stderr.String()))
		}
		return "", errors.WrapWithCode(err, errors.CodeConfig, "", t.Tool+" failed")
	}

	return strings.TrimSpace(stdout.String()), nil
}
