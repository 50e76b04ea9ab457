package domain

import (
	"time"
)

// Relation classifies how two files relate.
type Relation string

// Pairwise relations. EXACT and NEAR are undirected; the CONTAINS relations
// are directed. VERSION links files of the same series at different episode
// coverage.
const (
	RelationExact        Relation = "EXACT"
	RelationNear         Relation = "NEAR"
	RelationContainsAInB Relation = "CONTAINS_A_IN_B"
	RelationContainsBInA Relation = "CONTAINS_B_IN_A"
	RelationVersion      Relation = "VERSION"
)

// EvidenceKind names the signal that justified a relation.
type EvidenceKind string

// Evidence kinds.
const (
	EvidenceHashStrong    EvidenceKind = "HASH_STRONG"
	EvidenceFastFP        EvidenceKind = "FP_FAST"
	EvidenceNormHash      EvidenceKind = "NORM_HASH"
	EvidenceSimHash       EvidenceKind = "SIMHASH"
	EvidenceContainmentRK EvidenceKind = "CONTAINMENT_RK"
	EvidenceTextDiff      EvidenceKind = "TEXT_DIFF"
)

// Evidence records the signal and detail that justified a relation or group.
// Immutable once created; edges and groups reference it by id, never inline.
type Evidence struct {
	ID        string            `json:"id"`
	Kind      EvidenceKind      `json:"kind"`
	Detail    map[string]string `json:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// CandidateEdge links two file records with a classified relation.
type CandidateEdge struct {
	A          string   `json:"a"`
	B          string   `json:"b"`
	Relation   Relation `json:"relation"`
	Score      float64  `json:"score"`
	EvidenceID string   `json:"evidence_id"`
}

// GroupType classifies a duplicate group.
type GroupType string

// Group types, in normalization priority order (exact claims first).
const (
	GroupExact       GroupType = "EXACT"
	GroupVersion     GroupType = "VERSION"
	GroupContainment GroupType = "CONTAINMENT"
	GroupNear        GroupType = "NEAR"
)

// Strength grades how trustworthy a group's merged evidence is.
type Strength string

// Duplicate strengths.
const (
	StrengthWeak   Strength = "WEAK"
	StrengthStrong Strength = "STRONG"
)

// DuplicateGroup is one connected component of candidate edges, with a
// recommended canonical member. Confidence and strength derive
// deterministically from the merged edges; they are never set independently.
// Groups are created once per component per run and never mutated after
// normalization.
type DuplicateGroup struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id,omitempty"`
	Type        GroupType `json:"type"`
	MemberIDs   []string  `json:"member_ids"`
	CanonicalID string    `json:"canonical_id,omitempty"`
	Confidence  float64   `json:"confidence"`
	Strength    Strength  `json:"strength"`
	// BytesSavable sums the sizes of non-canonical members.
	BytesSavable int64    `json:"bytes_savable"`
	Reasons      []string `json:"reasons,omitempty"` // evidence ids
}

// HasMember reports whether the group contains the given record id.
func (g DuplicateGroup) HasMember(recordID string) bool {
	for _, m := range g.MemberIDs {
		if m == recordID {
			return true
		}
	}
	return false
}

// BlockingGroup is a candidate block produced before pairwise comparison.
// Blocks always have at least two members; singletons are excluded, never
// reassigned to another blocking strategy.
type BlockingGroup struct {
	Title     string   `json:"title,omitempty"` // empty for anchor-bucket blocks
	Ext       string   `json:"ext,omitempty"`
	MemberIDs []string `json:"member_ids"`
}
