package dedup

import (
	"fmt"
	"log/slog"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/hashing"
)

// sizeContainmentRatio is the maximum small/large size ratio for the
// size-based containment heuristic. Files closer in size than this are more
// plausibly near-duplicates than partial exports.
const sizeContainmentRatio = 0.6

// Finding is a classified pair: the candidate edge plus any supporting
// evidence (anchor-hash agreement) recorded alongside it.
type Finding struct {
	Edge    domain.CandidateEdge
	Support []string // evidence ids
}

// Classifier detects pairwise relations within candidate blocks.
type Classifier struct {
	opts   Options
	ledger *evidenceLedger
	logger *slog.Logger
}

// NewClassifier creates a relation classifier writing evidence into the
// given ledger.
func NewClassifier(opts Options, ledger *evidenceLedger, logger *slog.Logger) *Classifier {
	return &Classifier{opts: opts, ledger: ledger, logger: logger}
}

// ClassifyBlock examines every pair in a block and returns the findings.
// Pair order follows original input order so evidence ids are reproducible.
func (c *Classifier) ClassifyBlock(block domain.BlockingGroup, byID map[string]domain.FileRecord) []Finding {
	var findings []Finding
	members := block.MemberIDs

	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, b := byID[members[i]], byID[members[j]]
			if f, ok := c.classifyPair(a, b); ok {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

// classifyPair applies the relation checks in priority order: exact, near,
// version, containment. At most one edge is emitted per pair. Anchor support
// is recorded only once a relation holds; pairs without an edge must not
// leave entries in the ledger.
func (c *Classifier) classifyPair(a, b domain.FileRecord) (Finding, bool) {
	edge, ok := c.relate(a, b)
	if !ok {
		return Finding{}, false
	}
	return Finding{Edge: edge, Support: c.anchorSupport(a, b)}, true
}

func (c *Classifier) relate(a, b domain.FileRecord) (domain.CandidateEdge, bool) {
	if c.opts.EnableExact {
		if edge, ok := c.exact(a, b); ok {
			return edge, true
		}
	}
	if c.opts.EnableNear {
		if edge, ok := c.near(a, b); ok {
			return edge, true
		}
	}
	if c.opts.EnableVersion {
		if edge, ok := c.version(a, b); ok {
			return edge, true
		}
	}
	if c.opts.EnableContainment {
		if edge, ok := c.containment(a, b); ok {
			return edge, true
		}
	}
	return domain.CandidateEdge{}, false
}

// anchorSupport records anchor-hash agreement as supporting evidence.
// Agreement upgrades group strength even when the deciding signal is weak.
func (c *Classifier) anchorSupport(a, b domain.FileRecord) []string {
	if a.Anchors == nil || b.Anchors == nil || !a.Anchors.Agree(*b.Anchors) {
		return nil
	}
	evID := c.ledger.record(domain.EvidenceNormHash, map[string]string{
		"source": "anchors",
		"head":   fmt.Sprintf("%016x", a.Anchors.Head),
	})
	return []string{evID}
}

// exact matches on equal strong hashes, or equal normalized-text
// fingerprints when strong hashes are unavailable. Confidence is fixed at 1.
func (c *Classifier) exact(a, b domain.FileRecord) (domain.CandidateEdge, bool) {
	if a.HashStrong != "" && a.HashStrong == b.HashStrong {
		evID := c.ledger.record(domain.EvidenceHashStrong, map[string]string{
			"hash": a.HashStrong,
		})
		return edge(a, b, domain.RelationExact, 1.0, evID), true
	}
	if a.FingerprintNorm != "" && a.FingerprintNorm == b.FingerprintNorm {
		evID := c.ledger.record(domain.EvidenceNormHash, map[string]string{
			"source": "fulltext",
			"hash":   a.FingerprintNorm,
		})
		return edge(a, b, domain.RelationExact, 1.0, evID), true
	}
	return domain.CandidateEdge{}, false
}

// near matches on simhash similarity above the configured threshold, with
// equal fast fingerprints as a cheaper fallback signal.
func (c *Classifier) near(a, b domain.FileRecord) (domain.CandidateEdge, bool) {
	if a.SimHash != 0 && b.SimHash != 0 {
		sim := hashing.Similarity(a.SimHash, b.SimHash)
		if sim >= c.opts.NearThreshold {
			evID := c.ledger.record(domain.EvidenceSimHash, map[string]string{
				"similarity": fmt.Sprintf("%.4f", sim),
			})
			return edge(a, b, domain.RelationNear, sim, evID), true
		}
		return domain.CandidateEdge{}, false
	}
	if a.FingerprintFast != 0 && a.FingerprintFast == b.FingerprintFast {
		evID := c.ledger.record(domain.EvidenceFastFP, map[string]string{
			"fingerprint": fmt.Sprintf("%016x", a.FingerprintFast),
		})
		return edge(a, b, domain.RelationNear, c.opts.NearThreshold, evID), true
	}
	return domain.CandidateEdge{}, false
}

// version links files of the same series whose episode coverage, size, or
// mtime differ: different exports of the same work at different points.
func (c *Classifier) version(a, b domain.FileRecord) (domain.CandidateEdge, bool) {
	if a.BaseTitle() == "" || a.BaseTitle() != b.BaseTitle() {
		return domain.CandidateEdge{}, false
	}
	if a.EpisodeEnd() == b.EpisodeEnd() && a.Size == b.Size && a.ModTime.Equal(b.ModTime) {
		return domain.CandidateEdge{}, false
	}
	if a.EpisodeEnd() < 0 && b.EpisodeEnd() < 0 {
		// Without any episode information a bare size/mtime difference is
		// too weak to call a version.
		return domain.CandidateEdge{}, false
	}
	if ra, rb, ok := firstRanges(a, b); ok && ra != rb && (ra.Contains(rb) || rb.Contains(ra)) {
		// Strictly nested ranges are a containment case, not a version.
		return domain.CandidateEdge{}, false
	}
	evID := c.ledger.record(domain.EvidenceTextDiff, map[string]string{
		"episode_end_a": fmt.Sprintf("%d", a.EpisodeEnd()),
		"episode_end_b": fmt.Sprintf("%d", b.EpisodeEnd()),
		"size_a":        fmt.Sprintf("%d", a.Size),
		"size_b":        fmt.Sprintf("%d", b.Size),
	})
	return edge(a, b, domain.RelationVersion, 0.7, evID), true
}

// containment flags the smaller file as possibly contained in the larger.
// Parsed episode ranges give a directed range check; otherwise a relative
// size heuristic applies. Neither verifies actual text offsets, so this
// evidence is always weak (see CONTAINMENT_RK detail "method").
func (c *Classifier) containment(a, b domain.FileRecord) (domain.CandidateEdge, bool) {
	if ra, rb, ok := firstRanges(a, b); ok {
		switch {
		case rb.Contains(ra) && ra != rb:
			evID := c.containmentEvidence("range", ra, rb)
			return edge(a, b, domain.RelationContainsAInB, 0.8, evID), true
		case ra.Contains(rb) && ra != rb:
			evID := c.containmentEvidence("range", rb, ra)
			return edge(a, b, domain.RelationContainsBInA, 0.8, evID), true
		}
		return domain.CandidateEdge{}, false
	}

	if a.Size == 0 || b.Size == 0 || a.BaseTitle() == "" {
		return domain.CandidateEdge{}, false
	}
	small, large := a.Size, b.Size
	relation := domain.RelationContainsAInB
	if small > large {
		small, large = large, small
		relation = domain.RelationContainsBInA
	}
	if float64(small)/float64(large) > sizeContainmentRatio {
		return domain.CandidateEdge{}, false
	}
	evID := c.ledger.record(domain.EvidenceContainmentRK, map[string]string{
		"method":     "size-heuristic",
		"size_small": fmt.Sprintf("%d", small),
		"size_large": fmt.Sprintf("%d", large),
	})
	return edge(a, b, relation, 0.5, evID), true
}

func (c *Classifier) containmentEvidence(method string, inner, outer domain.RangeSegment) string {
	return c.ledger.record(domain.EvidenceContainmentRK, map[string]string{
		"method": method,
		"inner":  fmt.Sprintf("%d-%d", inner.Start, inner.End),
		"outer":  fmt.Sprintf("%d-%d", outer.Start, outer.End),
	})
}

func firstRanges(a, b domain.FileRecord) (ra, rb domain.RangeSegment, ok bool) {
	if a.Parsed == nil || b.Parsed == nil || len(a.Parsed.Ranges) == 0 || len(b.Parsed.Ranges) == 0 {
		return ra, rb, false
	}
	return a.Parsed.Ranges[0], b.Parsed.Ranges[0], true
}

func edge(a, b domain.FileRecord, rel domain.Relation, score float64, evidenceID string) domain.CandidateEdge {
	return domain.CandidateEdge{
		A:          a.ID,
		B:          b.ID,
		Relation:   rel,
		Score:      score,
		EvidenceID: evidenceID,
	}
}
