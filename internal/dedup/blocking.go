package dedup

import (
	"log/slog"

	"github.com/novelshelf/novelshelf-server/internal/domain"
)

// Blocker partitions records into candidate blocks before pairwise
// comparison, avoiding the full O(n²) comparison space.
type Blocker struct {
	logger *slog.Logger
}

// NewBlocker creates a blocking service.
func NewBlocker(logger *slog.Logger) *Blocker {
	return &Blocker{logger: logger}
}

// Build groups records by parsed base title and extension; records without a
// title fall back to head-anchor bucketing. Title blocking takes strict
// priority: a titled record is never placed in an anchor bucket, even when
// its title block ends up a singleton and is excluded from output.
func (b *Blocker) Build(records []domain.FileRecord) []domain.BlockingGroup {
	type titleKey struct {
		title string
		ext   string
	}

	titled := make(map[titleKey][]string)
	var titleOrder []titleKey

	anchored := make(map[uint64][]string)
	var anchorOrder []uint64

	for _, rec := range records {
		if title := rec.BaseTitle(); title != "" {
			key := titleKey{title: title, ext: rec.Ext}
			if _, seen := titled[key]; !seen {
				titleOrder = append(titleOrder, key)
			}
			titled[key] = append(titled[key], rec.ID)
			continue
		}
		if rec.Anchors == nil {
			// No title and no anchors: nothing to block on.
			continue
		}
		head := rec.Anchors.Head
		if _, seen := anchored[head]; !seen {
			anchorOrder = append(anchorOrder, head)
		}
		anchored[head] = append(anchored[head], rec.ID)
	}

	var blocks []domain.BlockingGroup
	for _, key := range titleOrder {
		members := titled[key]
		if len(members) < 2 {
			continue
		}
		blocks = append(blocks, domain.BlockingGroup{
			Title:     key.title,
			Ext:       key.ext,
			MemberIDs: members,
		})
	}
	for _, head := range anchorOrder {
		members := anchored[head]
		if len(members) < 2 {
			continue
		}
		blocks = append(blocks, domain.BlockingGroup{MemberIDs: members})
	}

	b.logger.Debug("blocking complete",
		"records", len(records),
		"blocks", len(blocks),
		"pairs", pairCount(blocks),
	)
	return blocks
}

func pairCount(blocks []domain.BlockingGroup) int {
	total := 0
	for _, blk := range blocks {
		n := len(blk.MemberIDs)
		total += n * (n - 1) / 2
	}
	return total
}
