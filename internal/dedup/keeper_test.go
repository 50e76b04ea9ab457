package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/errors"
)

func newTestSelector() *KeeperSelector {
	return NewKeeperSelector(DefaultOptions(), testLogger())
}

func TestSelectEmptyGroup(t *testing.T) {
	s := newTestSelector()

	_, err := s.Select(nil, map[string]int{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyGroup))
}

func TestSelectSingleton(t *testing.T) {
	s := newTestSelector()

	keeper, err := s.Select([]domain.FileRecord{rec("rec-a", 100)}, map[string]int{"rec-a": 0})

	require.NoError(t, err)
	assert.Equal(t, "rec-a", keeper)
}

func TestSelectHigherEpisodeEndWins(t *testing.T) {
	s := newTestSelector()
	members := []domain.FileRecord{
		withTitle(rec("rec-a", 9000), "달빛조각사", 1, 50),
		withTitle(rec("rec-b", 100), "달빛조각사", 1, 114),
	}

	keeper, err := s.Select(members, indexOf(members))

	require.NoError(t, err)
	// Episode coverage outranks size.
	assert.Equal(t, "rec-b", keeper)
}

func TestSelectSizeBreaksEpisodeTie(t *testing.T) {
	s := newTestSelector()
	members := []domain.FileRecord{
		withTitle(rec("rec-a", 100), "전생검신", 1, 114),
		withTitle(rec("rec-b", 9000), "전생검신", 1, 114),
	}

	keeper, err := s.Select(members, indexOf(members))

	require.NoError(t, err)
	assert.Equal(t, "rec-b", keeper)
}

func TestSelectUnreliableParseNeverWins(t *testing.T) {
	s := newTestSelector()
	low := rec("rec-a", 9000).WithParsed(domain.ParsedFilename{
		SeriesTitle: "",
		Confidence:  0.1,
		Ranges:      []domain.RangeSegment{{Start: 1, End: 999, Type: domain.SegmentEpisode}},
	})
	members := []domain.FileRecord{
		low,
		withTitle(rec("rec-b", 100), "시리즈", 1, 10),
	}

	keeper, err := s.Select(members, indexOf(members))

	require.NoError(t, err)
	// rec-a claims more episodes and more bytes, but its parse is unreliable.
	assert.Equal(t, "rec-b", keeper)
}

func TestSelectKeywordBreaksFullTie(t *testing.T) {
	s := newTestSelector()
	mt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := withTitle(rec("rec-a", 500), "시리즈", 1, 10)
	a.Name = "시리즈 1-10화.txt"
	a.ModTime = mt
	b := withTitle(rec("rec-b", 500), "시리즈", 1, 10)
	b.Name = "시리즈 1-10화 통합본.txt"
	b.ModTime = mt

	members := []domain.FileRecord{a, b}
	keeper, err := s.Select(members, indexOf(members))

	require.NoError(t, err)
	assert.Equal(t, "rec-b", keeper)
}

func TestSelectInputIndexIsFinalTieBreak(t *testing.T) {
	s := newTestSelector()
	mt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := withTitle(rec("rec-a", 500), "시리즈", 1, 10)
	a.ModTime = mt
	b := withTitle(rec("rec-b", 500), "시리즈", 1, 10)
	b.ModTime = mt

	members := []domain.FileRecord{a, b}
	keeper, err := s.Select(members, indexOf(members))

	require.NoError(t, err)
	assert.Equal(t, "rec-a", keeper)
}

func TestSelectIndependentOfMemberOrder(t *testing.T) {
	s := newTestSelector()
	members := []domain.FileRecord{
		withTitle(rec("rec-a", 100), "시리즈", 1, 10),
		withTitle(rec("rec-b", 200), "시리즈", 1, 114),
		withTitle(rec("rec-c", 9000), "시리즈", 1, 50),
	}
	index := indexOf(members)

	forward, err := s.Select(members, index)
	require.NoError(t, err)

	reversed := []domain.FileRecord{members[2], members[1], members[0]}
	backward, err := s.Select(reversed, index)
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
	assert.Equal(t, "rec-b", forward)
}
