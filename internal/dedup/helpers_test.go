package dedup

import (
	"log/slog"
	"time"

	"github.com/novelshelf/novelshelf-server/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// rec builds a minimal record for classification tests.
func rec(id string, size int64) domain.FileRecord {
	return domain.FileRecord{
		ID:      id,
		Path:    "/library/" + id + ".txt",
		Name:    id + ".txt",
		Ext:     ".txt",
		Size:    size,
		ModTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// withTitle attaches a reliable parse with the given title and optional
// episode range (end < 0 means no range).
func withTitle(r domain.FileRecord, title string, start, end int) domain.FileRecord {
	parsed := domain.ParsedFilename{SeriesTitle: title, Confidence: 1.0}
	if end >= 0 {
		parsed.Ranges = []domain.RangeSegment{{Start: start, End: end, Type: domain.SegmentEpisode}}
	}
	return r.WithParsed(parsed)
}

func indexOf(records []domain.FileRecord) map[string]int {
	idx := make(map[string]int, len(records))
	for i, r := range records {
		idx[r.ID] = i
	}
	return idx
}
