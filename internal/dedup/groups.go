package dedup

import (
	"log/slog"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/id"
)

// classPriority is the normalization precedence of group types: stronger
// classes claim members before weaker ones.
var classPriority = []domain.GroupType{
	domain.GroupExact,
	domain.GroupVersion,
	domain.GroupContainment,
	domain.GroupNear,
}

// classOf maps a pairwise relation onto its group type.
func classOf(rel domain.Relation) domain.GroupType {
	switch rel {
	case domain.RelationExact:
		return domain.GroupExact
	case domain.RelationVersion:
		return domain.GroupVersion
	case domain.RelationContainsAInB, domain.RelationContainsBInA:
		return domain.GroupContainment
	default:
		return domain.GroupNear
	}
}

// GroupBuilder merges classified findings into duplicate groups. Edges are
// merged per relation class, so a record can appear in groups of different
// types; normalization resolves those overlaps afterwards.
type GroupBuilder struct {
	selector *KeeperSelector
	ledger   *evidenceLedger
	logger   *slog.Logger
}

// NewGroupBuilder creates a group builder.
func NewGroupBuilder(selector *KeeperSelector, ledger *evidenceLedger, logger *slog.Logger) *GroupBuilder {
	return &GroupBuilder{selector: selector, ledger: ledger, logger: logger}
}

// Build unions each class's edges into connected components and turns every
// component of two or more members into a DuplicateGroup with a canonical
// member. Output order is class priority, then first-member input order.
func (g *GroupBuilder) Build(runID string, records []domain.FileRecord, findings []Finding) ([]domain.DuplicateGroup, error) {
	index := make(map[string]int, len(records))
	byID := make(map[string]domain.FileRecord, len(records))
	for i, rec := range records {
		index[rec.ID] = i
		byID[rec.ID] = rec
	}

	byClass := make(map[domain.GroupType][]Finding)
	for _, f := range findings {
		cls := classOf(f.Edge.Relation)
		byClass[cls] = append(byClass[cls], f)
	}

	var groups []domain.DuplicateGroup
	for _, cls := range classPriority {
		classFindings := byClass[cls]
		if len(classFindings) == 0 {
			continue
		}

		uf := NewUnionFind(len(records))
		for _, f := range classFindings {
			uf.Union(index[f.Edge.A], index[f.Edge.B])
		}

		for _, component := range uf.Components(2) {
			members := make([]string, 0, len(component))
			memberSet := make(map[string]bool, len(component))
			memberRecs := make([]domain.FileRecord, 0, len(component))
			for _, idx := range component {
				rec := records[idx]
				members = append(members, rec.ID)
				memberSet[rec.ID] = true
				memberRecs = append(memberRecs, rec)
			}

			reasons := g.componentReasons(classFindings, memberSet)
			strength := g.strength(reasons)

			canonical, err := g.selector.Select(memberRecs, index)
			if err != nil {
				return nil, err
			}

			groups = append(groups, domain.DuplicateGroup{
				ID:           id.MustGenerate(id.PrefixGroup),
				RunID:        runID,
				Type:         cls,
				MemberIDs:    members,
				CanonicalID:  canonical,
				Confidence:   confidenceFor(strength),
				Strength:     strength,
				BytesSavable: bytesSavable(members, canonical, byID),
				Reasons:      reasons,
			})
		}
	}

	g.logger.Debug("group building complete",
		"findings", len(findings),
		"groups", len(groups),
	)
	return groups, nil
}

// componentReasons gathers the evidence ids of every edge (and its supporting
// evidence) fully inside the component, in finding order.
func (g *GroupBuilder) componentReasons(findings []Finding, memberSet map[string]bool) []string {
	var reasons []string
	seen := make(map[string]bool)
	add := func(evID string) {
		if evID == "" || seen[evID] {
			return
		}
		seen[evID] = true
		reasons = append(reasons, evID)
	}

	for _, f := range findings {
		if !memberSet[f.Edge.A] || !memberSet[f.Edge.B] {
			continue
		}
		add(f.Edge.EvidenceID)
		for _, s := range f.Support {
			add(s)
		}
	}
	return reasons
}

// strength is STRONG when any merged evidence is a strong hash or a
// normalized-text hash, WEAK otherwise. NORM_HASH is counted deliberately:
// the kind covers both anchor-window agreement and whole-text fingerprint
// equality, and the latter is as reliable as a strong hash after
// normalization. Don't narrow this to HASH_STRONG only.
func (g *GroupBuilder) strength(reasons []string) domain.Strength {
	for _, evID := range reasons {
		switch g.ledger.kindOf(evID) {
		case domain.EvidenceHashStrong, domain.EvidenceNormHash:
			return domain.StrengthStrong
		}
	}
	return domain.StrengthWeak
}

func confidenceFor(strength domain.Strength) float64 {
	if strength == domain.StrengthStrong {
		return ConfidenceStrong
	}
	return ConfidenceWeak
}

func bytesSavable(members []string, canonical string, byID map[string]domain.FileRecord) int64 {
	var total int64
	for _, m := range members {
		if m == canonical {
			continue
		}
		total += byID[m].Size
	}
	return total
}
