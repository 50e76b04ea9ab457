package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelshelf/novelshelf-server/internal/domain"
)

func newTestClassifier(ledger *evidenceLedger) *Classifier {
	return NewClassifier(DefaultOptions(), ledger, testLogger())
}

func classifyOne(t *testing.T, c *Classifier, a, b domain.FileRecord) (Finding, bool) {
	t.Helper()
	block := domain.BlockingGroup{MemberIDs: []string{a.ID, b.ID}}
	byID := map[string]domain.FileRecord{a.ID: a, b.ID: b}
	findings := c.ClassifyBlock(block, byID)
	if len(findings) == 0 {
		return Finding{}, false
	}
	require.Len(t, findings, 1)
	return findings[0], true
}

func TestClassifyExactByStrongHash(t *testing.T) {
	ledger := newEvidenceLedger()
	c := newTestClassifier(ledger)

	a := rec("rec-a", 100).WithStrongHash("deadbeef")
	b := rec("rec-b", 100).WithStrongHash("deadbeef")

	f, ok := classifyOne(t, c, a, b)

	require.True(t, ok)
	assert.Equal(t, domain.RelationExact, f.Edge.Relation)
	assert.Equal(t, 1.0, f.Edge.Score)
	assert.Equal(t, domain.EvidenceHashStrong, ledger.kindOf(f.Edge.EvidenceID))
}

func TestClassifyExactByNormFingerprint(t *testing.T) {
	ledger := newEvidenceLedger()
	c := newTestClassifier(ledger)

	// Strong hashes differ (different raw bytes), normalized text agrees.
	a := rec("rec-a", 100).WithStrongHash("aaaa").WithNormFingerprint("cafe")
	b := rec("rec-b", 102).WithStrongHash("bbbb").WithNormFingerprint("cafe")

	f, ok := classifyOne(t, c, a, b)

	require.True(t, ok)
	assert.Equal(t, domain.RelationExact, f.Edge.Relation)
	assert.Equal(t, domain.EvidenceNormHash, ledger.kindOf(f.Edge.EvidenceID))
}

func TestClassifyNearBySimHash(t *testing.T) {
	ledger := newEvidenceLedger()
	c := newTestClassifier(ledger)

	// One-bit difference in 64: similarity 63/64 ≈ 0.984.
	a := rec("rec-a", 100).WithSimHash(0xffff_ffff_ffff_ffff)
	b := rec("rec-b", 100).WithSimHash(0xffff_ffff_ffff_fffe)

	f, ok := classifyOne(t, c, a, b)

	require.True(t, ok)
	assert.Equal(t, domain.RelationNear, f.Edge.Relation)
	assert.InDelta(t, 63.0/64.0, f.Edge.Score, 0.0001)
	assert.Equal(t, domain.EvidenceSimHash, ledger.kindOf(f.Edge.EvidenceID))
}

func TestClassifyNearBelowThreshold(t *testing.T) {
	c := newTestClassifier(newEvidenceLedger())

	// 32 differing bits: similarity 0.5, well below the default 0.90.
	a := rec("rec-a", 100).WithSimHash(0xffff_ffff_0000_0000)
	b := rec("rec-b", 100).WithSimHash(0x0000_0000_0000_0000)

	_, ok := classifyOne(t, c, a, b)
	assert.False(t, ok)
}

func TestClassifyNearFastFingerprintFallback(t *testing.T) {
	ledger := newEvidenceLedger()
	c := newTestClassifier(ledger)

	// No simhashes computed; equal fast fingerprints stand in.
	a := rec("rec-a", 100).WithFastFingerprint(0x1234)
	b := rec("rec-b", 100).WithFastFingerprint(0x1234)

	f, ok := classifyOne(t, c, a, b)

	require.True(t, ok)
	assert.Equal(t, domain.RelationNear, f.Edge.Relation)
	assert.Equal(t, domain.EvidenceFastFP, ledger.kindOf(f.Edge.EvidenceID))
}

func TestClassifyNestedRangesDeferToContainment(t *testing.T) {
	ledger := newEvidenceLedger()
	c := newTestClassifier(ledger)

	a := withTitle(rec("rec-a", 100), "달빛조각사", 1, 50)
	b := withTitle(rec("rec-b", 250), "달빛조각사", 1, 114)
	b.ModTime = b.ModTime.Add(time.Hour)

	f, ok := classifyOne(t, c, a, b)

	require.True(t, ok)
	// 1-50 nests strictly inside 1-114: the version check defers nested
	// ranges to containment.
	assert.Equal(t, domain.RelationContainsAInB, f.Edge.Relation)
	assert.Equal(t, domain.EvidenceContainmentRK, ledger.kindOf(f.Edge.EvidenceID))
}

func TestClassifyVersionOverlappingRanges(t *testing.T) {
	ledger := newEvidenceLedger()
	c := newTestClassifier(ledger)

	// Overlapping but not nested: 1-60 vs 50-114.
	a := withTitle(rec("rec-a", 100), "달빛조각사", 1, 60)
	b := withTitle(rec("rec-b", 120), "달빛조각사", 50, 114)

	f, ok := classifyOne(t, c, a, b)

	require.True(t, ok)
	assert.Equal(t, domain.RelationVersion, f.Edge.Relation)
	assert.Equal(t, domain.EvidenceTextDiff, ledger.kindOf(f.Edge.EvidenceID))
}

func TestClassifyVersionRequiresEpisodeSignal(t *testing.T) {
	c := newTestClassifier(newEvidenceLedger())

	// Same title, no ranges, sizes too close for the containment heuristic:
	// a bare size difference is not a version.
	a := withTitle(rec("rec-a", 100), "시리즈", 0, -1)
	b := withTitle(rec("rec-b", 90), "시리즈", 0, -1)

	_, ok := classifyOne(t, c, a, b)
	assert.False(t, ok)
}

func TestClassifyVersionIdenticalMetadataNoEdge(t *testing.T) {
	c := newTestClassifier(newEvidenceLedger())

	a := withTitle(rec("rec-a", 100), "시리즈", 1, 10)
	b := withTitle(rec("rec-b", 100), "시리즈", 1, 10)

	_, ok := classifyOne(t, c, a, b)
	assert.False(t, ok)
}

func TestClassifyContainmentByRange(t *testing.T) {
	ledger := newEvidenceLedger()
	c := newTestClassifier(ledger)

	a := withTitle(rec("rec-a", 500), "달빛조각사", 1, 114)
	b := withTitle(rec("rec-b", 100), "달빛조각사", 10, 20)

	f, ok := classifyOne(t, c, a, b)

	require.True(t, ok)
	assert.Equal(t, domain.RelationContainsBInA, f.Edge.Relation)
	assert.Equal(t, 0.8, f.Edge.Score)
}

func TestClassifyContainmentSizeHeuristic(t *testing.T) {
	ledger := newEvidenceLedger()
	c := newTestClassifier(ledger)

	// Same title, no ranges, small file well under 60% of the large one.
	a := withTitle(rec("rec-a", 100), "시리즈", 0, -1)
	b := withTitle(rec("rec-b", 1000), "시리즈", 0, -1)

	f, ok := classifyOne(t, c, a, b)

	require.True(t, ok)
	assert.Equal(t, domain.RelationContainsAInB, f.Edge.Relation)
	assert.Equal(t, 0.5, f.Edge.Score)
	ev := ledger.entries[f.Edge.EvidenceID]
	assert.Equal(t, "size-heuristic", ev.Detail["method"])
}

func TestClassifyAnchorSupportRecorded(t *testing.T) {
	ledger := newEvidenceLedger()
	c := newTestClassifier(ledger)
	anchors := domain.AnchorHashes{Head: 1, Mid: 2, Tail: 3}

	a := rec("rec-a", 100).WithStrongHash("deadbeef").WithAnchors(anchors)
	b := rec("rec-b", 100).WithStrongHash("deadbeef").WithAnchors(anchors)

	f, ok := classifyOne(t, c, a, b)

	require.True(t, ok)
	require.Len(t, f.Support, 1)
	assert.Equal(t, domain.EvidenceNormHash, ledger.kindOf(f.Support[0]))
}

func TestClassifyNoAnchorSupportOnDisagreement(t *testing.T) {
	c := newTestClassifier(newEvidenceLedger())

	a := rec("rec-a", 100).WithStrongHash("deadbeef").WithAnchors(domain.AnchorHashes{Head: 1})
	b := rec("rec-b", 100).WithStrongHash("deadbeef").WithAnchors(domain.AnchorHashes{Head: 2})

	f, ok := classifyOne(t, c, a, b)

	require.True(t, ok)
	assert.Empty(t, f.Support)
}

func TestClassifyNoEdgeLeavesNoEvidence(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableExact = false
	opts.EnableNear = false
	opts.EnableVersion = false
	opts.EnableContainment = false
	ledger := newEvidenceLedger()
	c := NewClassifier(opts, ledger, testLogger())

	// Anchors agree, but with every class disabled no edge can be emitted,
	// so nothing may land in the ledger either.
	anchors := domain.AnchorHashes{Head: 1, Mid: 2, Tail: 3}
	a := rec("rec-a", 100).WithStrongHash("deadbeef").WithAnchors(anchors)
	b := rec("rec-b", 100).WithStrongHash("deadbeef").WithAnchors(anchors)

	_, ok := classifyOne(t, c, a, b)

	assert.False(t, ok)
	assert.Empty(t, ledger.all())
}

func TestClassifyDisabledClassesSkipped(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableExact = false
	c := NewClassifier(opts, newEvidenceLedger(), testLogger())

	a := rec("rec-a", 100).WithStrongHash("deadbeef")
	b := rec("rec-b", 100).WithStrongHash("deadbeef")

	_, ok := classifyOne(t, c, a, b)
	assert.False(t, ok)
}

func TestClassifyBlockPairOrder(t *testing.T) {
	c := newTestClassifier(newEvidenceLedger())

	recs := []domain.FileRecord{
		rec("rec-a", 1).WithStrongHash("x"),
		rec("rec-b", 1).WithStrongHash("x"),
		rec("rec-c", 1).WithStrongHash("x"),
	}
	block := domain.BlockingGroup{MemberIDs: []string{"rec-a", "rec-b", "rec-c"}}
	byID := map[string]domain.FileRecord{}
	for _, r := range recs {
		byID[r.ID] = r
	}

	findings := c.ClassifyBlock(block, byID)

	require.Len(t, findings, 3)
	assert.Equal(t, "rec-a", findings[0].Edge.A)
	assert.Equal(t, "rec-b", findings[0].Edge.B)
	assert.Equal(t, "rec-a", findings[1].Edge.A)
	assert.Equal(t, "rec-c", findings[1].Edge.B)
	assert.Equal(t, "rec-b", findings[2].Edge.A)
	assert.Equal(t, "rec-c", findings[2].Edge.B)
}
