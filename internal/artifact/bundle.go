// Package artifact manages the per-job bundle directory on disk.
package artifact

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"spritefactory/internal/errors"
)

const (
	// MetaFile holds the job plus task-specific descriptive metadata.
	MetaFile = "meta.json"
	// GenerationInfoFile records the generation parameters of a pipeline run.
	GenerationInfoFile = "generation_info.json"
	// SourceFile is the generated image copied into the bundle.
	SourceFile = "source.png"
)

// Bundle is the directory <root>/<job_id>.
type Bundle struct {
	Dir string
}

// New returns the bundle for jobID under root. Nothing is created yet.
func New(root, jobID string) *Bundle {
	return &Bundle{Dir: filepath.Join(root, jobID)}
}

// Path returns the path of name inside the bundle.
func (b *Bundle) Path(name string) string {
	return filepath.Join(b.Dir, name)
}

// Ensure creates the bundle directory. Safe to call repeatedly.
func (b *Bundle) Ensure() error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return errors.Wrap(err, "artifact.ensure", "failed to create artifact directory")
	}
	return nil
}

// WriteMeta writes payload to meta.json, replacing any previous file.
func (b *Bundle) WriteMeta(payload any) error {
	return b.WriteJSON(MetaFile, payload)
}

// WriteJSON writes v to name as key-sorted, two-space indented JSON with a
// trailing newline.
func (b *Bundle) WriteJSON(name string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return errors.Wrap(err, "artifact.write", "failed to encode "+name)
	}
	if err := os.WriteFile(b.Path(name), data, 0o644); err != nil {
		return errors.Wrap(err, "artifact.write", "failed to write "+name)
	}
	return nil
}

// CopyIn copies the file at src into the bundle as name.
func (b *Bundle) CopyIn(src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "artifact.copy", "failed to open "+src)
	}
	defer in.Close()

	out, err := os.Create(b.Path(name))
	if err != nil {
		return errors.Wrap(err, "artifact.copy", "failed to create "+name)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(err, "artifact.copy", "failed to copy "+name)
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, "artifact.copy", "failed to close "+name)
	}
	return nil
}

// Files lists the regular files in the bundle, sorted by name.
func (b *Bundle) Files() ([]string, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "artifact.files", "failed to list artifact directory")
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Marshal renders v with every object's keys sorted, struct fields included.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
