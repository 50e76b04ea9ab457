package dedup

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/hashing"
)

// ItemError is one per-file failure from a parallel batch. Failures are
// aggregated and returned explicitly; they never abort the batch.
type ItemError struct {
	Path string
	Err  error
}

// AnchorComputer fills in missing anchor hashes on a batch of records using
// a bounded worker pool. Already-hashed records pass through unchanged, so
// the computation is idempotent.
type AnchorComputer struct {
	hasher *hashing.Service
	logger *slog.Logger
	// workers caps the pool; 0 selects the CPU count.
	workers int
}

// NewAnchorComputer creates the parallel anchor-hash driver.
func NewAnchorComputer(hasher *hashing.Service, logger *slog.Logger, workers int) *AnchorComputer {
	return &AnchorComputer{hasher: hasher, logger: logger, workers: workers}
}

// Compute returns a new slice in the original input order with anchor hashes
// filled in where they were missing. Per-file failures are logged, leave the
// record unchanged, and are aggregated into the returned ItemError list.
//
// Progress is reported every progressEvery completions and on the final
// completion, decoupled from task completion order.
func (c *AnchorComputer) Compute(ctx context.Context, records []domain.FileRecord, onProgress func(done, total int)) ([]domain.FileRecord, []ItemError) {
	out := make([]domain.FileRecord, len(records))
	copy(out, records)

	// Only records still missing anchors are dispatched.
	var pending []int
	for i, rec := range records {
		if !rec.HasAnchors() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	workers := c.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(pending), MaxWorkers)

	type result struct {
		index   int
		anchors domain.AnchorHashes
		err     error
	}

	jobs := make(chan int, len(pending))
	results := make(chan result, len(pending))

	var g errgroup.Group
	var done atomic.Int64
	total := len(pending)

	for range workers {
		g.Go(func() error {
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{index: idx, err: err}
					continue
				}

				rec := records[idx]
				anchors, err := c.hasher.AnchorHashes(rec.Path, rec.Size, rec.EncodingName)
				results <- result{index: idx, anchors: anchors, err: err}

				if n := done.Add(1); onProgress != nil && (n%progressEvery == 0 || n == int64(total)) {
					onProgress(int(n), total)
				}
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
			c.logger.Warn("anchor hash failed", "path", rec.Path, "error", r.err)
			failures = append(failures, ItemError{Path: rec.Path, Err: r.err})
			continue
		}
		out[r.index] = out[r.index].WithAnchors(r.anchors)
	}
	return out, failures
}
