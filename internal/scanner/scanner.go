package scanner

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/novelshelf/novelshelf-server/internal/config"
	"github.com/novelshelf/novelshelf-server/internal/dedup"
	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/encoding"
	"github.com/novelshelf/novelshelf-server/internal/errors"
	"github.com/novelshelf/novelshelf-server/internal/filename"
	"github.com/novelshelf/novelshelf-server/internal/hashing"
	"github.com/novelshelf/novelshelf-server/internal/id"
	"github.com/novelshelf/novelshelf-server/internal/store"
)

// Scanner drives a full scan-and-detect run over a library directory.
type Scanner struct {
	walker   *Walker
	resolver *encoding.Resolver
	hasher   *hashing.Service
	parser   *filename.Parser
	store    *store.Store
	cfg      config.DedupConfig
	logger   *slog.Logger
}

// New creates a scanner.
func New(walker *Walker, resolver *encoding.Resolver, hasher *hashing.Service, parser *filename.Parser, st *store.Store, cfg config.DedupConfig, logger *slog.Logger) *Scanner {
	return &Scanner{
		walker:   walker,
		resolver: resolver,
		hasher:   hasher,
		parser:   parser,
		store:    st,
		cfg:      cfg,
		logger:   logger,
	}
}

// Scan walks the library, enriches every discovered file, runs detection,
// and persists the result. A nil tracker disables progress reporting.
func (s *Scanner) Scan(ctx context.Context, libraryPath string, tracker *ProgressTracker) (*domain.Run, error) {
	run, err := s.Begin(ctx, libraryPath)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, run, tracker)
}

// Begin creates the run entity in running state. Callers that scan in the
// background use the returned run id to poll progress while Execute works.
func (s *Scanner) Begin(ctx context.Context, libraryPath string) (*domain.Run, error) {
	if libraryPath == "" {
		return nil, errors.Validation("library path is required")
	}

	run := &domain.Run{
		ID:          uuid.NewString(),
		LibraryPath: libraryPath,
		Status:      domain.RunRunning,
		StartedAt:   time.Now(),
	}
	if err := s.store.Runs.Create(ctx, run.ID, run); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create run")
	}
	return run, nil
}

// Execute runs the pipeline for a run created by Begin and updates the run
// entity to complete or failed.
func (s *Scanner) Execute(ctx context.Context, run *domain.Run, tracker *ProgressTracker) (*domain.Run, error) {
	if tracker == nil {
		tracker = NewProgressTracker(nil)
	}

	result, err := s.detect(ctx, run, tracker)
	if err != nil {
		run.Status = domain.RunFailed
		run.CompletedAt = time.Now()
		run.Error = err.Error()
		// The scan context may already be canceled; the failure still has to
		// reach the store.
		if uerr := s.store.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
			s.logger.Error("failed to mark run failed", "run", run.ID, "error", uerr)
		}
		return run, err
	}

	tracker.SetPhase(PhasePersisting)
	run.Status = domain.RunComplete
	run.CompletedAt = time.Now()
	run.Files = len(result.Records)
	run.Groups = len(result.Groups)
	run.Skipped = len(result.Skipped)
	for _, grp := range result.Groups {
		run.BytesSavable += grp.BytesSavable
	}

	if err := s.store.SaveResult(ctx, run, result.Records, result.Groups, result.Evidence); err != nil {
		return run, errors.Wrap(err, errors.CodeInternal, "failed to persist run")
	}

	tracker.SetPhase(PhaseComplete)
	s.logger.Info("scan complete",
		"run", run.ID,
		"files", run.Files,
		"groups", run.Groups,
		"skipped", run.Skipped,
		"bytes_savable", run.BytesSavable,
		"duration", run.CompletedAt.Sub(run.StartedAt),
	)
	return run, nil
}

// detect runs the walk/resolve/detect phases and returns the engine result.
func (s *Scanner) detect(ctx context.Context, run *domain.Run, tracker *ProgressTracker) (*dedup.Result, error) {
	tracker.SetPhase(PhaseWalking)
	records, err := s.collect(ctx, run.LibraryPath, tracker)
	if err != nil {
		return nil, err
	}

	tracker.SetPhase(PhaseResolving)
	tracker.SetTotal(len(records))
	records = s.resolve(records, tracker)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tracker.SetPhase(PhaseDetecting)
	opts := dedup.DefaultOptions()
	opts.NearThreshold = s.cfg.NearThreshold
	opts.Workers = s.cfg.Workers

	engine := dedup.NewEngine(s.hasher, s.parser, s.logger)
	engine.OnProgress = func(done, total int) {
		tracker.SetTotal(total)
		tracker.SetCurrent(done)
	}

	result, err := engine.Detect(ctx, records, opts)
	if err != nil {
		return nil, err
	}

	for i := range result.Groups {
		result.Groups[i].RunID = run.ID
	}
	for _, skip := range result.Skipped {
		tracker.AddError(ScanError{Path: skip.Path, Message: skip.Err.Error()})
	}
	return result, nil
}

// collect drains the walker into identity-only file records.
func (s *Scanner) collect(ctx context.Context, libraryPath string, tracker *ProgressTracker) ([]domain.FileRecord, error) {
	var records []domain.FileRecord
	for res := range s.walker.Walk(ctx, libraryPath) {
		records = append(records, domain.FileRecord{
			ID:      id.MustGenerate(id.PrefixRecord),
			Path:    res.Path,
			Name:    filepath.Base(res.Path),
			Ext:     filepath.Ext(res.Path),
			Size:    res.Size,
			ModTime: res.ModTime,
		})
		tracker.Increment(res.RelPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Info("walk complete", "path", libraryPath, "files", len(records))
	return records, nil
}

// resolve attaches the confirmed encoding and the fast fingerprint to every
// record. Failures flag the record and keep it in the batch; raw-byte
// signals still work without a confirmed encoding.
func (s *Scanner) resolve(records []domain.FileRecord, tracker *ProgressTracker) []domain.FileRecord {
	for i, rec := range records {
		res, err := s.resolver.Resolve(rec.Path, rec.Size, rec.ModTime)
		if err != nil {
			s.logger.Warn("encoding resolution failed", "path", rec.Path, "error", err)
			tracker.AddError(ScanError{Path: rec.Path, Message: err.Error()})
			records[i] = rec.WithFlag(domain.FlagDecodeFail)
			continue
		}
		rec = rec.WithEncoding(res.Name, res.Confidence)

		fp, err := s.hasher.FastFingerprint(rec.Path, rec.Size)
		if err != nil {
			s.logger.Warn("fast fingerprint failed", "path", rec.Path, "error", err)
			tracker.AddError(ScanError{Path: rec.Path, Message: err.Error()})
		} else {
			rec = rec.WithFastFingerprint(fp)
		}

		records[i] = rec
		tracker.Increment(rec.Name)
	}
	return records
}
