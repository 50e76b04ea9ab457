package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/store"
)

func (s *Server) registerRunRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listRuns",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs",
		Summary:     "List runs",
		Tags:        []string{"Runs"},
	}, s.handleListRuns)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRun",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/{runId}",
		Summary:     "Get a run",
		Tags:        []string{"Runs"},
	}, s.handleGetRun)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteRun",
		Method:        http.MethodDelete,
		Path:          "/api/v1/runs/{runId}",
		Summary:       "Delete a run and its results",
		Tags:          []string{"Runs"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteRun)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRunGroups",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/{runId}/groups",
		Summary:     "List duplicate groups of a run",
		Tags:        []string{"Runs"},
	}, s.handleListGroups)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRunGroup",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/{runId}/groups/{groupId}",
		Summary:     "Get one duplicate group",
		Tags:        []string{"Runs"},
	}, s.handleGetGroup)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRunRecords",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/{runId}/records",
		Summary:     "List file records of a run",
		Tags:        []string{"Runs"},
	}, s.handleListRecords)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRunEvidence",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/{runId}/evidence/{evidenceId}",
		Summary:     "Get one evidence entry",
		Tags:        []string{"Runs"},
	}, s.handleGetEvidence)
}

// RunInput identifies a run.
type RunInput struct {
	RunID string `path:"runId"`
}

// pageInput carries pagination query parameters.
type pageInput struct {
	RunID  string `path:"runId"`
	Limit  int    `query:"limit" doc:"Items per page (max 1000)"`
	Cursor string `query:"cursor" doc:"Opaque cursor from a previous page"`
}

func (p pageInput) params() store.PaginationParams {
	return store.PaginationParams{Limit: p.Limit, Cursor: p.Cursor}
}

// ListRunsOutput returns all runs, newest first.
type ListRunsOutput struct {
	Body struct {
		Runs []domain.Run `json:"runs"`
	}
}

func (s *Server) handleListRuns(ctx context.Context, _ *struct{}) (*ListRunsOutput, error) {
	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	out := &ListRunsOutput{}
	out.Body.Runs = runs
	return out, nil
}

// RunOutput returns one run.
type RunOutput struct {
	Body domain.Run
}

func (s *Server) handleGetRun(ctx context.Context, input *RunInput) (*RunOutput, error) {
	run, err := s.store.Runs.Get(ctx, input.RunID)
	if err != nil {
		return nil, err
	}
	return &RunOutput{Body: *run}, nil
}

func (s *Server) handleDeleteRun(ctx context.Context, input *RunInput) (*struct{}, error) {
	// Ensure the run exists so deletes of unknown ids report 404.
	if _, err := s.store.Runs.Get(ctx, input.RunID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteRun(ctx, input.RunID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

// GroupsOutput is a page of duplicate groups.
type GroupsOutput struct {
	Body store.PaginatedResult[domain.DuplicateGroup]
}

func (s *Server) handleListGroups(ctx context.Context, input *pageInput) (*GroupsOutput, error) {
	page, err := s.store.ListGroups(ctx, input.RunID, input.params())
	if err != nil {
		return nil, err
	}
	return &GroupsOutput{Body: *page}, nil
}

// GroupInput identifies one group of a run.
type GroupInput struct {
	RunID   string `path:"runId"`
	GroupID string `path:"groupId"`
}

// GroupOutput returns one duplicate group.
type GroupOutput struct {
	Body domain.DuplicateGroup
}

func (s *Server) handleGetGroup(ctx context.Context, input *GroupInput) (*GroupOutput, error) {
	grp, err := s.store.GetGroup(ctx, input.RunID, input.GroupID)
	if err != nil {
		return nil, err
	}
	return &GroupOutput{Body: *grp}, nil
}

// RecordsOutput is a page of file records.
type RecordsOutput struct {
	Body store.PaginatedResult[domain.FileRecord]
}

func (s *Server) handleListRecords(ctx context.Context, input *pageInput) (*RecordsOutput, error) {
	page, err := s.store.ListRecords(ctx, input.RunID, input.params())
	if err != nil {
		return nil, err
	}
	return &RecordsOutput{Body: *page}, nil
}

// EvidenceInput identifies one evidence entry of a run.
type EvidenceInput struct {
	RunID      string `path:"runId"`
	EvidenceID string `path:"evidenceId"`
}

// EvidenceOutput returns one evidence entry.
type EvidenceOutput struct {
	Body domain.Evidence
}

func (s *Server) handleGetEvidence(ctx context.Context, input *EvidenceInput) (*EvidenceOutput, error) {
	ev, err := s.store.GetEvidence(ctx, input.RunID, input.EvidenceID)
	if err != nil {
		return nil, err
	}
	return &EvidenceOutput{Body: *ev}, nil
}
