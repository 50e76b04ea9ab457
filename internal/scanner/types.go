// Package scanner orchestrates a detection run: it walks the library,
// resolves encodings, fingerprints files, hands the batch to the detection
// engine, and persists the result.
package scanner

// ScanPhase identifies the pipeline stage a scan is in.
type ScanPhase string

// Scan phases, in pipeline order.
const (
	PhaseWalking    ScanPhase = "walking"
	PhaseResolving  ScanPhase = "resolving"
	PhaseDetecting  ScanPhase = "detecting"
	PhasePersisting ScanPhase = "persisting"
	PhaseComplete   ScanPhase = "complete"
)

// ScanError is one per-file failure collected during a scan.
type ScanError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Progress is a point-in-time snapshot of scan state.
type Progress struct {
	Phase       ScanPhase   `json:"phase"`
	Current     int         `json:"current"`
	Total       int         `json:"total"`
	CurrentItem string      `json:"current_item,omitempty"`
	Errors      []ScanError `json:"errors,omitempty"`
}
