// Package testutil holds shell-script stand-ins for wslpath and the editor.
// Only test code imports it.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// WindowsPrefix marks paths produced by the stub path tool.
const WindowsPrefix = "W:"

// pathToolScript maps /x to W:/x and back. Any path containing INVALID fails.
const pathToolScript = `#!/bin/sh
case "$2" in
  ""|*INVALID*) echo "wslpath: $2: Invalid argument" >&2; exit 1 ;;
esac
case "$1" in
  -w) printf '%s%s\n' "` + WindowsPrefix + `" "$2" ;;
  -u) p="$2"; printf '%s\n' "${p#` + WindowsPrefix + `}" ;;
  *) echo "wslpath: unknown flag $1" >&2; exit 1 ;;
esac
`

// WriteScript writes an executable script into dir and returns its path.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	RequireUnix(t)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("failed to write script %s: %v", name, err)
	}
	return path
}

// RequireUnix skips the test where /bin/sh scripts cannot run.
func RequireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script stubs require a Unix host")
	}
}

// StubPathTool installs a fake wslpath and returns its path.
func StubPathTool(t *testing.T) string {
	t.Helper()
	return WriteScript(t, t.TempDir(), "wslpath", pathToolScript)
}

// StubEditor installs a fake editor that echoes its arguments on stdout,
// prints a marker on stderr and exits with exitCode.
func StubEditor(t *testing.T, exitCode int) string {
	t.Helper()
	body := fmt.Sprintf(`#!/bin/sh
echo "editor args: $*"
echo "editor warning" >&2
exit %d
`, exitCode)
	return WriteScript(t, t.TempDir(), "aseprite", body)
}
