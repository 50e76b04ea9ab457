package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/errors"
	"github.com/novelshelf/novelshelf-server/internal/scanner"
)

func (s *Server) registerScanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "startScan",
		Method:        http.MethodPost,
		Path:          "/api/v1/scans",
		Summary:       "Start a scan",
		Description:   "Starts a background scan-and-detect run over the library",
		Tags:          []string{"Scans"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleStartScan)

	huma.Register(s.api, huma.Operation{
		OperationID: "getScanProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/scans/{runId}/progress",
		Summary:     "Get scan progress",
		Description: "Returns live progress for an in-flight scan",
		Tags:        []string{"Scans"},
	}, s.handleScanProgress)
}

// StartScanInput is the scan trigger request.
type StartScanInput struct {
	Body struct {
		// Path overrides the configured library path for this run.
		Path string `json:"path,omitempty" validate:"omitempty,dir" doc:"Directory to scan; defaults to the configured library path"`
	}
}

// StartScanOutput returns the created run.
type StartScanOutput struct {
	Body domain.Run
}

func (s *Server) handleStartScan(ctx context.Context, input *StartScanInput) (*StartScanOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	path := input.Body.Path
	if path == "" {
		path = s.libraryPath
	}
	if path == "" {
		return nil, errors.Validation("no library path configured and none provided")
	}

	run, err := s.scanner.Begin(ctx, path)
	if err != nil {
		return nil, err
	}

	tracker := scanner.NewProgressTracker(nil)
	s.trackProgress(run.ID, tracker)

	// The scan outlives the request; only server shutdown cancels it.
	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.untrackProgress(run.ID)
		if _, err := s.scanner.Execute(bg, run, tracker); err != nil {
			s.logger.Error("background scan failed", "run", run.ID, "error", err)
		}
	}()

	return &StartScanOutput{Body: *run}, nil
}

// ScanProgressInput identifies the run to report on.
type ScanProgressInput struct {
	RunID string `path:"runId" doc:"Run id returned by startScan"`
}

// ScanProgressOutput is a progress snapshot.
type ScanProgressOutput struct {
	Body scanner.Progress
}

func (s *Server) handleScanProgress(ctx context.Context, input *ScanProgressInput) (*ScanProgressOutput, error) {
	if tracker, ok := s.progressFor(input.RunID); ok {
		return &ScanProgressOutput{Body: tracker.Get()}, nil
	}

	// Not in flight: fall back to the persisted run state.
	run, err := s.store.Runs.Get(ctx, input.RunID)
	if err != nil {
		return nil, err
	}

	phase := scanner.PhaseComplete
	if run.Status == domain.RunRunning {
		phase = scanner.PhaseWalking
	}
	return &ScanProgressOutput{Body: scanner.Progress{
		Phase:   phase,
		Current: run.Files,
		Total:   run.Files,
	}}, nil
}
