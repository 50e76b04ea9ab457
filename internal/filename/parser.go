// Package filename extracts structured series metadata from novel filenames.
//
// Serialized fiction gets re-exported under names like
// "[조아라] 달빛조각사 1-114화 (완결).txt" or "Moonlight Sculptor Ch. 52.txt".
// The parser recognizes episode ranges, volume markers, and variant keywords,
// and strips them to recover a stable base title for blocking.
package filename

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/novelshelf/novelshelf-server/internal/domain"
)

// Ordered patterns. Range forms are tried before single markers so
// "1-114화" is not consumed as a lone "114화".
var (
	// 1-114화, 3~12권, 1-2부
	rangeRe = regexp.MustCompile(`(\d+)\s*[-~]\s*(\d+)\s*(화|회|권|부)?`)
	// 제3권, 12화, 2부
	singleKoRe = regexp.MustCompile(`제?\s*(\d+)\s*(화|회|권|부)`)
	// Chapter 12, Ch. 12, Ep. 3, Vol 2
	singleEnRe = regexp.MustCompile(`(?i)\b(?:chapter|ch\.?|ep\.?|episode|vol\.?|volume)\s*(\d+)\b`)

	bracketRe = regexp.MustCompile(`[\[(（【{][^\])）】}]*[\])）】}]`)
	spacesRe  = regexp.MustCompile(`\s+`)
	tailRe    = regexp.MustCompile(`[\s\-_~.,]+$`)
	headRe    = regexp.MustCompile(`^[\s\-_~.,]+`)
)

// variantKeywords maps recognized variant tokens to their canonical flag.
// Matched as whole tokens, case-insensitive for the Latin ones.
var variantKeywords = []string{
	"완결", "통합본", "합본", "외전", "번외", "최종", "개정판", "complete", "final",
}

// keeperKeywords is the keeper-selection priority list; the earliest-listed
// keyword found in a filename wins the keyword tie-break.
var keeperKeywords = []string{"통합본", "합본", "완결", "최종"}

// LowConfidenceThreshold is the parse confidence below which a record is
// unreliable for keeper scoring.
const LowConfidenceThreshold = 0.3

// Parser extracts ParsedFilename values from raw filenames.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a filename parser.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts series title, episode ranges, and variant flags from a
// filename. The extension is stripped internally. Parse never fails:
// clearly-invalid numeric ranges (end < start) simply yield no range.
func (p *Parser) Parse(name string) domain.ParsedFilename {
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	variants := findVariants(stem)

	ranges, stripped := extractRanges(stem, variants)

	title := cleanTitle(stripped)

	confidence := scoreConfidence(title, ranges)

	return domain.ParsedFilename{
		SeriesTitle: title,
		Confidence:  confidence,
		Ranges:      ranges,
		Variants:    variants,
	}
}

// KeywordScore returns the keeper tie-break score for a filename: higher for
// merged/complete exports. The earliest-listed keyword found decides.
func KeywordScore(name string) int {
	lower := strings.ToLower(name)
	for i, kw := range keeperKeywords {
		if strings.Contains(lower, kw) {
			return len(keeperKeywords) - i
		}
	}
	return 0
}

// findVariants collects recognized variant keywords as whole tokens.
func findVariants(stem string) []string {
	tokens := tokenize(stem)
	var found []string
	for _, kw := range variantKeywords {
		for _, tok := range tokens {
			if strings.EqualFold(tok, kw) {
				found = append(found, kw)
				break
			}
		}
	}
	return found
}

// tokenize splits a filename stem on separators and bracket characters.
func tokenize(stem string) []string {
	return strings.FieldsFunc(stem, func(r rune) bool {
		switch r {
		case ' ', '\t', '_', '-', '.', ',', '(', ')', '[', ']', '{', '}', '【', '】', '（', '）':
			return true
		}
		return false
	})
}

// extractRanges finds numeric range/volume markers in pattern order and
// returns the validated segments plus the stem with matched fragments removed.
// Backwards ranges are dropped without error.
func extractRanges(stem string, variants []string) ([]domain.RangeSegment, string) {
	var segments []domain.RangeSegment
	remaining := stem

	sideStory := false
	for _, v := range variants {
		if v == "외전" || v == "번외" {
			sideStory = true
		}
	}

	remaining = rangeRe.ReplaceAllStringFunc(remaining, func(m string) string {
		sub := rangeRe.FindStringSubmatch(m)
		start, err1 := strconv.Atoi(sub[1])
		end, err2 := strconv.Atoi(sub[2])
		if err1 != nil || err2 != nil || start > end {
			// Clearly invalid; strip the fragment but record no range.
			return " "
		}
		seg, err := domain.NewRangeSegment(start, end, segmentType(sub[3], sideStory), sub[3])
		if err != nil {
			return " "
		}
		segments = append(segments, seg)
		return " "
	})

	for _, re := range []*regexp.Regexp{singleKoRe, singleEnRe} {
		remaining = re.ReplaceAllStringFunc(remaining, func(m string) string {
			sub := re.FindStringSubmatch(m)
			n, err := strconv.Atoi(sub[1])
			if err != nil {
				return " "
			}
			unit := ""
			if len(sub) > 2 {
				unit = sub[2]
			}
			seg, err := domain.NewRangeSegment(n, n, segmentType(unit, sideStory), unit)
			if err != nil {
				return " "
			}
			segments = append(segments, seg)
			return " "
		})
	}

	return segments, remaining
}

// segmentType maps a unit suffix to a segment type.
func segmentType(unit string, sideStory bool) domain.SegmentType {
	if sideStory {
		return domain.SegmentSideStory
	}
	switch unit {
	case "권":
		return domain.SegmentVolume
	case "부":
		return domain.SegmentPart
	default:
		return domain.SegmentEpisode
	}
}

// cleanTitle strips variant keywords, bracketed tags, and tail separators,
// then collapses whitespace.
func cleanTitle(stripped string) string {
	s := bracketRe.ReplaceAllString(stripped, " ")

	for _, kw := range variantKeywords {
		for _, tok := range tokenize(s) {
			if strings.EqualFold(tok, kw) {
				s = strings.ReplaceAll(s, tok, " ")
			}
		}
	}

	s = strings.NewReplacer("_", " ", ".", " ").Replace(s)
	s = headRe.ReplaceAllString(s, "")
	s = tailRe.ReplaceAllString(s, "")
	return spacesRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// scoreConfidence grades how trustworthy a parse is for keeper scoring.
func scoreConfidence(title string, ranges []domain.RangeSegment) float64 {
	switch {
	case title == "":
		return 0.1
	case len(ranges) > 0:
		return 1.0
	case len([]rune(title)) >= 2:
		return 0.7
	default:
		return 0.4
	}
}
