package dedup

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/errors"
	"github.com/novelshelf/novelshelf-server/internal/filename"
	"github.com/novelshelf/novelshelf-server/internal/hashing"
	"github.com/novelshelf/novelshelf-server/internal/id"
)

// Recommendation is the actionable output for one duplicate group: keep the
// canonical member, remove the rest.
type Recommendation struct {
	GroupID      string   `json:"group_id"`
	KeepID       string   `json:"keep_id"`
	RemoveIDs    []string `json:"remove_ids"`
	BytesSavable int64    `json:"bytes_savable"`
}

// Result is the complete outcome of a detection run. Records carry every
// signature computed along the way so callers can persist the enrichment.
type Result struct {
	Records         []domain.FileRecord     `json:"records"`
	Groups          []domain.DuplicateGroup `json:"groups"`
	Evidence        []domain.Evidence       `json:"evidence"`
	Recommendations []Recommendation        `json:"recommendations"`
	Skipped         []ItemError             `json:"skipped,omitempty"`
}

// Engine runs the full detection pipeline over a batch of file records:
// filename parsing, anchor hashing, blocking, lazy deep hashing of blocked
// candidates, pairwise classification, per-class merging, and overlap
// normalization. The engine is stateless across calls.
type Engine struct {
	hasher *hashing.Service
	parser *filename.Parser
	logger *slog.Logger

	// OnProgress, when set, receives anchor-hash completion counts.
	OnProgress func(done, total int)
}

// NewEngine creates a detection engine.
func NewEngine(hasher *hashing.Service, parser *filename.Parser, logger *slog.Logger) *Engine {
	return &Engine{hasher: hasher, parser: parser, logger: logger}
}

// Detect runs detection over the given records. Input records are never
// mutated; the result carries enriched copies in input order. Per-file I/O
// failures degrade the affected record and are reported in Skipped; only
// invalid options, duplicate record ids, context cancellation, or a
// structural pipeline error fail the whole run.
func (e *Engine) Detect(ctx context.Context, records []domain.FileRecord, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Result{}, nil
	}

	recs, err := e.prepare(records, opts)
	if err != nil {
		return nil, err
	}

	computer := NewAnchorComputer(e.hasher, e.logger, opts.Workers)
	recs, skipped := computer.Compute(ctx, recs, e.OnProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blocker := NewBlocker(e.logger)
	blocks := blocker.Build(recs)

	recs, deepSkipped := e.deepen(ctx, recs, blocks, opts)
	skipped = append(skipped, deepSkipped...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byID := make(map[string]domain.FileRecord, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}

	ledger := newEvidenceLedger()
	classifier := NewClassifier(opts, ledger, e.logger)
	var findings []Finding
	for _, block := range blocks {
		findings = append(findings, classifier.ClassifyBlock(block, byID)...)
	}

	selector := NewKeeperSelector(opts, e.logger)
	builder := NewGroupBuilder(selector, ledger, e.logger)
	groups, err := builder.Build("", recs, findings)
	if err != nil {
		return nil, err
	}

	normalizer := NewGroupNormalizer(selector, e.logger)
	groups, err = normalizer.Normalize(groups, recs)
	if err != nil {
		return nil, err
	}

	e.logger.Info("detection complete",
		"records", len(recs),
		"blocks", len(blocks),
		"findings", len(findings),
		"groups", len(groups),
		"skipped", len(skipped),
	)

	return &Result{
		Records:         recs,
		Groups:          groups,
		Evidence:        ledger.all(),
		Recommendations: recommendations(groups),
		Skipped:         skipped,
	}, nil
}

// prepare copies the input, assigns missing record ids, rejects duplicate
// ids, and fills in missing filename parses.
func (e *Engine) prepare(records []domain.FileRecord, opts Options) ([]domain.FileRecord, error) {
	recs := make([]domain.FileRecord, len(records))
	copy(recs, records)

	seen := make(map[string]bool, len(recs))
	for i, rec := range recs {
		if rec.ID == "" {
			rec.ID = id.MustGenerate(id.PrefixRecord)
		}
		if seen[rec.ID] {
			return nil, errors.Validationf("duplicate record id %q", rec.ID)
		}
		seen[rec.ID] = true

		if rec.Parsed == nil {
			rec = rec.WithParsed(e.parser.Parse(rec.Name))
		}
		if rec.Parsed.Confidence < opts.LowParseConfidence {
			rec = rec.WithFlag(domain.FlagLowParseConfidence)
		}
		recs[i] = rec
	}
	return recs, nil
}

// deepen computes the whole-text signatures (strong hash, normalized
// fingerprint, simhash, newline style) for blocked candidates that still
// lack them. Records outside any block never pay the full read. Failures
// flag the record as decode-failed and leave its cheap signals in place.
func (e *Engine) deepen(ctx context.Context, records []domain.FileRecord, blocks []domain.BlockingGroup, opts Options) ([]domain.FileRecord, []ItemError) {
	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.ID] = i
	}

	var pending []int
	queued := make(map[int]bool)
	for _, block := range blocks {
		for _, m := range block.MemberIDs {
			idx := index[m]
			rec := records[idx]
			if queued[idx] || (rec.HashStrong != "" && rec.FingerprintNorm != "") {
				continue
			}
			queued[idx] = true
			pending = append(pending, idx)
		}
	}
	if len(pending) == 0 {
		return records, nil
	}

	out := make([]domain.FileRecord, len(records))
	copy(out, records)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(pending), MaxWorkers)

	type result struct {
		index   int
		signals hashing.DeepSignals
		err     error
	}

	jobs := make(chan int, len(pending))
	results := make(chan result, len(pending))

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{index: idx, err: err}
					continue
				}
				rec := records[idx]
				signals, err := e.hasher.ComputeDeepSignals(rec.Path, rec.EncodingName)
				results <- result{index: idx, signals: signals, err: err}
			}
			return nil
		})
	}

	for _, idx := range pending {
		jobs <- idx
	}
	close(jobs)
	_ = g.Wait()
	close(results)

	var failures []ItemError
	for r := range results {
		if r.err != nil {
			rec := records[r.index]
			e.logger.Warn("deep hashing failed", "path", rec.Path, "error", r.err)
			out[r.index] = out[r.index].WithFlag(domain.FlagDecodeFail)
			failures = append(failures, ItemError{Path: rec.Path, Err: r.err})
			continue
		}
		out[r.index] = out[r.index].
			WithStrongHash(r.signals.Strong).
			WithNormFingerprint(r.signals.Norm).
			WithSimHash(r.signals.SimHash).
			WithNewlineStyle(r.signals.Newlines)
	}
	return out, failures
}

func recommendations(groups []domain.DuplicateGroup) []Recommendation {
	recs := make([]Recommendation, 0, len(groups))
	for _, grp := range groups {
		removes := make([]string, 0, len(grp.MemberIDs)-1)
		for _, m := range grp.MemberIDs {
			if m != grp.CanonicalID {
				removes = append(removes, m)
			}
		}
		recs = append(recs, Recommendation{
			GroupID:      grp.ID,
			KeepID:       grp.CanonicalID,
			RemoveIDs:    removes,
			BytesSavable: grp.BytesSavable,
		})
	}
	return recs
}
