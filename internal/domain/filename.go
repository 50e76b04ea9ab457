package domain

import (
	"github.com/novelshelf/novelshelf-server/internal/errors"
)

// SegmentType classifies what a numeric range in a filename counts.
type SegmentType string

// Segment types recognized by the filename parser.
const (
	SegmentEpisode   SegmentType = "episode"
	SegmentVolume    SegmentType = "volume"
	SegmentPart      SegmentType = "part"
	SegmentSideStory SegmentType = "side-story"
)

// RangeSegment is a validated numeric range parsed from a filename,
// e.g. "1-114화" or "제3권".
type RangeSegment struct {
	Start int         `json:"start"`
	End   int         `json:"end"`
	Type  SegmentType `json:"type,omitempty"`
	Unit  string      `json:"unit,omitempty"`
}

// NewRangeSegment validates and constructs a range segment.
// A backwards range (start > end) is a structural error; the parser never
// produces one, but callers constructing segments directly must handle it.
func NewRangeSegment(start, end int, segType SegmentType, unit string) (RangeSegment, error) {
	if start > end {
		return RangeSegment{}, errors.Validationf("range start %d exceeds end %d", start, end)
	}
	if start < 0 {
		return RangeSegment{}, errors.Validationf("range start %d is negative", start)
	}
	return RangeSegment{Start: start, End: end, Type: segType, Unit: unit}, nil
}

// Contains reports whether other lies entirely within this segment.
func (s RangeSegment) Contains(other RangeSegment) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// Overlaps reports whether the two segments share any value.
func (s RangeSegment) Overlaps(other RangeSegment) bool {
	return s.Start <= other.End && other.Start <= s.End
}

// ParsedFilename is the structured metadata extracted from a filename.
type ParsedFilename struct {
	// SeriesTitle is the normalized base title: the filename with episode,
	// volume, and variant tokens stripped.
	SeriesTitle string `json:"series_title"`
	// Confidence in [0,1]. Parses below the caller's reliability threshold
	// disqualify the record from winning keeper selection.
	Confidence float64        `json:"confidence"`
	Ranges     []RangeSegment `json:"ranges,omitempty"`
	Variants   []string       `json:"variants,omitempty"`
}

// EpisodeEnd returns the upper bound of the first recognized range, or -1
// when no range was parsed.
func (p ParsedFilename) EpisodeEnd() int {
	if len(p.Ranges) == 0 {
		return -1
	}
	return p.Ranges[0].End
}

// HasVariant reports whether the given variant keyword was recognized.
func (p ParsedFilename) HasVariant(v string) bool {
	for _, existing := range p.Variants {
		if existing == v {
			return true
		}
	}
	return false
}
