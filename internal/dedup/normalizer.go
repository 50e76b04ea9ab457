package dedup

import (
	"log/slog"

	"github.com/novelshelf/novelshelf-server/internal/domain"
)

// GroupNormalizer resolves member overlap between groups of different types.
// Each record belongs to at most one group after normalization: stronger
// classes claim members first (EXACT, then VERSION, CONTAINMENT, NEAR), and
// groups that shrink below two members are dropped.
type GroupNormalizer struct {
	selector *KeeperSelector
	logger   *slog.Logger
}

// NewGroupNormalizer creates an overlap normalizer.
func NewGroupNormalizer(selector *KeeperSelector, logger *slog.Logger) *GroupNormalizer {
	return &GroupNormalizer{selector: selector, logger: logger}
}

// Normalize removes already-claimed members from lower-priority groups. When
// a group loses its canonical member the keeper is re-selected from the
// survivors, and savable bytes are recomputed either way.
func (n *GroupNormalizer) Normalize(groups []domain.DuplicateGroup, records []domain.FileRecord) ([]domain.DuplicateGroup, error) {
	index := make(map[string]int, len(records))
	byID := make(map[string]domain.FileRecord, len(records))
	for i, rec := range records {
		index[rec.ID] = i
		byID[rec.ID] = rec
	}

	claimed := make(map[string]bool)
	var out []domain.DuplicateGroup

	for _, cls := range classPriority {
		for _, grp := range groups {
			if grp.Type != cls {
				continue
			}

			var members []string
			for _, m := range grp.MemberIDs {
				if !claimed[m] {
					members = append(members, m)
				}
			}
			if len(members) < 2 {
				if len(members) < len(grp.MemberIDs) {
					n.logger.Debug("group dropped after normalization",
						"group", grp.ID, "type", grp.Type, "remaining", len(members))
				}
				continue
			}
			for _, m := range members {
				claimed[m] = true
			}

			grp.MemberIDs = members
			if !grp.HasMember(grp.CanonicalID) || grp.CanonicalID == "" {
				memberRecs := make([]domain.FileRecord, 0, len(members))
				for _, m := range members {
					memberRecs = append(memberRecs, byID[m])
				}
				canonical, err := n.selector.Select(memberRecs, index)
				if err != nil {
					return nil, err
				}
				grp.CanonicalID = canonical
			}
			grp.BytesSavable = bytesSavable(members, grp.CanonicalID, byID)
			out = append(out, grp)
		}
	}
	return out, nil
}
