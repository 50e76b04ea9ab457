package domain

import "time"

// RunStatus tracks the lifecycle of a detection run.
type RunStatus string

// Run statuses.
const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// Run is one scan-and-detect pass over a library. All pipeline state is
// run-scoped; groups and records are persisted under the run id.
type Run struct {
	ID          string    `json:"id"`
	LibraryPath string    `json:"library_path"`
	Status      RunStatus `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`

	// Stale is set by the library watcher when files change after the run
	// completed; results may no longer reflect the filesystem.
	Stale bool `json:"stale,omitempty"`

	Files   int `json:"files"`
	Groups  int `json:"groups"`
	Skipped int `json:"skipped"`

	// BytesSavable sums bytes_savable across all emitted groups.
	BytesSavable int64 `json:"bytes_savable"`

	Error string `json:"error,omitempty"`
}
