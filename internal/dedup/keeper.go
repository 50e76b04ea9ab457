package dedup

import (
	"log/slog"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/errors"
	"github.com/novelshelf/novelshelf-server/internal/filename"
)

// keeperScore is the composite ordering key for canonical selection,
// evaluated field by field in priority order.
type keeperScore struct {
	// reliable is false for low-confidence filename parses; unreliable
	// records never beat reliable ones regardless of the other fields.
	reliable   bool
	episodeEnd int   // absent treated as -1
	size       int64 //
	mtime      int64 // unix millis, absent treated as 0
	keyword    int   // merged/complete filename keyword priority
	index      int   // original input index, lowest wins
}

// better reports whether s outranks other.
func (s keeperScore) better(other keeperScore) bool {
	if s.reliable != other.reliable {
		return s.reliable
	}
	if s.episodeEnd != other.episodeEnd {
		return s.episodeEnd > other.episodeEnd
	}
	if s.size != other.size {
		return s.size > other.size
	}
	if s.mtime != other.mtime {
		return s.mtime > other.mtime
	}
	if s.keyword != other.keyword {
		return s.keyword > other.keyword
	}
	return s.index < other.index
}

// KeeperSelector picks the canonical member of each duplicate group.
type KeeperSelector struct {
	opts   Options
	logger *slog.Logger
}

// NewKeeperSelector creates a canonical selector.
func NewKeeperSelector(opts Options, logger *slog.Logger) *KeeperSelector {
	return &KeeperSelector{opts: opts, logger: logger}
}

// Select returns the id of the group member to keep. Selection is a single
// pass with a deterministic composite key, so the result is independent of
// member order. A single-member group returns that member without scoring;
// an empty group is a structural error.
func (s *KeeperSelector) Select(members []domain.FileRecord, inputIndex map[string]int) (string, error) {
	switch len(members) {
	case 0:
		return "", errors.EmptyGroup("cannot select keeper from empty group")
	case 1:
		return members[0].ID, nil
	}

	best := members[0]
	bestScore := s.score(members[0], inputIndex)
	for _, rec := range members[1:] {
		if sc := s.score(rec, inputIndex); sc.better(bestScore) {
			best, bestScore = rec, sc
		}
	}
	return best.ID, nil
}

func (s *KeeperSelector) score(rec domain.FileRecord, inputIndex map[string]int) keeperScore {
	reliable := true
	if rec.Parsed != nil && rec.Parsed.Confidence < s.opts.LowParseConfidence {
		reliable = false
	}
	if rec.HasFlag(domain.FlagLowParseConfidence) {
		reliable = false
	}

	var mtime int64
	if !rec.ModTime.IsZero() {
		mtime = rec.ModTime.UnixMilli()
	}

	return keeperScore{
		reliable:   reliable,
		episodeEnd: rec.EpisodeEnd(),
		size:       rec.Size,
		mtime:      mtime,
		keyword:    filename.KeywordScore(rec.Name),
		index:      inputIndex[rec.ID],
	}
}
