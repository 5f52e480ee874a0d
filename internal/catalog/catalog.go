// Package catalog records finished bundles so assets can be found later.
// The filesystem bundle stays authoritative; the catalog is an index.
package catalog

import (
	"context"
	"time"
)

// Status is the outcome of one factory run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry is one row per job_id. Re-running a job replaces its row.
type Entry struct {
	JobID       string
	Task        string
	ArtifactDir string
	Files       []string
	// ExitCode is nil when the editor never ran.
	ExitCode   *int
	Status     Status
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder is what the factory needs from a catalog.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}
