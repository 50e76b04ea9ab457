package filename

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelshelf/novelshelf-server/internal/domain"
)

func newTestParser() *Parser {
	return NewParser(slog.New(slog.DiscardHandler))
}

func TestParseEpisodeRange(t *testing.T) {
	p := newTestParser()

	parsed := p.Parse("달빛조각사 1-114화.txt")

	assert.Equal(t, "달빛조각사", parsed.SeriesTitle)
	require.Len(t, parsed.Ranges, 1)
	assert.Equal(t, 1, parsed.Ranges[0].Start)
	assert.Equal(t, 114, parsed.Ranges[0].End)
	assert.Equal(t, domain.SegmentEpisode, parsed.Ranges[0].Type)
	assert.Equal(t, 114, parsed.EpisodeEnd())
	assert.InDelta(t, 1.0, parsed.Confidence, 0.001)
}

func TestParseLatinTitleRange(t *testing.T) {
	p := newTestParser()

	parsed := p.Parse("Series Title 1-114.txt")

	assert.Equal(t, "Series Title", parsed.SeriesTitle)
	require.Len(t, parsed.Ranges, 1)
	assert.Equal(t, 114, parsed.EpisodeEnd())
}

func TestParseBracketedTagsStripped(t *testing.T) {
	p := newTestParser()

	parsed := p.Parse("[조아라] 달빛조각사 1-50화 (완결).txt")

	assert.Equal(t, "달빛조각사", parsed.SeriesTitle)
	assert.True(t, parsed.HasVariant("완결"))
	assert.Equal(t, 50, parsed.EpisodeEnd())
}

func TestParseVolumeMarker(t *testing.T) {
	p := newTestParser()

	parsed := p.Parse("전생검신 제3권.txt")

	require.Len(t, parsed.Ranges, 1)
	assert.Equal(t, domain.SegmentVolume, parsed.Ranges[0].Type)
	assert.Equal(t, 3, parsed.Ranges[0].Start)
	assert.Equal(t, 3, parsed.Ranges[0].End)
}

func TestParseEnglishChapterMarker(t *testing.T) {
	p := newTestParser()

	parsed := p.Parse("Moonlight Sculptor Chapter 52.txt")

	assert.Equal(t, "Moonlight Sculptor", parsed.SeriesTitle)
	require.Len(t, parsed.Ranges, 1)
	assert.Equal(t, 52, parsed.EpisodeEnd())
}

func TestParseSideStoryVariant(t *testing.T) {
	p := newTestParser()

	parsed := p.Parse("달빛조각사 외전 1-5화.txt")

	assert.True(t, parsed.HasVariant("외전"))
	require.Len(t, parsed.Ranges, 1)
	assert.Equal(t, domain.SegmentSideStory, parsed.Ranges[0].Type)
}

func TestParseBackwardsRangeDropped(t *testing.T) {
	p := newTestParser()

	// End before start: the fragment is stripped but yields no range.
	parsed := p.Parse("시리즈 114-1화.txt")

	assert.Empty(t, parsed.Ranges)
	assert.Equal(t, -1, parsed.EpisodeEnd())
}

func TestParseNoMetadata(t *testing.T) {
	p := newTestParser()

	parsed := p.Parse("소설모음.txt")

	assert.Equal(t, "소설모음", parsed.SeriesTitle)
	assert.Empty(t, parsed.Ranges)
	assert.InDelta(t, 0.7, parsed.Confidence, 0.001)
}

func TestParseEmptyStemLowConfidence(t *testing.T) {
	p := newTestParser()

	parsed := p.Parse("1-10화.txt")

	assert.Equal(t, "", parsed.SeriesTitle)
	assert.Less(t, parsed.Confidence, LowConfidenceThreshold)
}

func TestParseNeverPanics(t *testing.T) {
	p := newTestParser()

	for _, name := range []string{"", ".txt", "   ", "((((", "화화화", "9999999999-1화.txt"} {
		assert.NotPanics(t, func() { p.Parse(name) }, "input %q", name)
	}
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"달빛조각사 통합본.txt", 4},
		{"달빛조각사 합본.txt", 3},
		{"달빛조각사 완결.txt", 2},
		{"달빛조각사 최종.txt", 1},
		{"달빛조각사 1-10화.txt", 0},
	}
	for _, tt := range tests {
		if got := KeywordScore(tt.name); got != tt.want {
			t.Errorf("KeywordScore(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestKeywordScoreMergedBeatsComplete(t *testing.T) {
	// A file carrying both keywords scores as the stronger one.
	assert.Greater(t, KeywordScore("시리즈 통합본 완결.txt"), KeywordScore("시리즈 완결.txt"))
}
