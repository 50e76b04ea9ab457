// Package textnorm canonicalizes text for comparison-stable hashing.
//
// Normalization is idempotent and insensitive to CRLF-vs-LF and
// whitespace-run differences, so two exports of the same chapter hash
// identically even when an editor rewrapped the line endings.
package textnorm

import (
	"strings"

	"github.com/novelshelf/novelshelf-server/internal/domain"
)

// Zero-width characters stripped during normalization.
const (
	zwsp = '\u200b' // zero-width space
	zwnj = '\u200c' // zero-width non-joiner
	zwj  = '\u200d' // zero-width joiner
	bom  = '\ufeff' // byte order mark / zero-width no-break space
)

// Normalize canonicalizes text in four ordered steps: unify line endings to
// LF, collapse runs of spaces and tabs within each line to a single space
// (dropping any run at the end of a line), strip zero-width characters, and
// trim leading/trailing whitespace.
func Normalize(text string) string {
	text = unifyNewlines(text)
	text = stripZeroWidth(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		// collapseSpaces leaves a trailing run as a single space; at a line
		// end that space carries no content and must not survive, or the
		// same text with and without trailing spaces hashes differently.
		lines[i] = strings.TrimRight(collapseSpaces(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// unifyNewlines converts CRLF and bare CR to LF.
func unifyNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// collapseSpaces reduces runs of spaces and tabs to one space. Newlines are
// not passed through here; callers split on them first.
func collapseSpaces(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	inRun := false
	for _, r := range line {
		if r == ' ' || r == '\t' {
			if !inRun {
				b.WriteByte(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// stripZeroWidth removes ZWSP, ZWNJ, ZWJ, and BOM characters.
func stripZeroWidth(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case zwsp, zwnj, zwj, bom:
			return -1
		}
		return r
	}, text)
}

// DetectNewlineStyle reports the dominant line-ending convention of raw text.
func DetectNewlineStyle(text string) domain.NewlineStyle {
	crlf := strings.Count(text, "\r\n")
	cr := strings.Count(text, "\r") - crlf
	lf := strings.Count(text, "\n") - crlf

	switch {
	case crlf == 0 && cr == 0 && lf == 0:
		return domain.NewlineUnknown
	case crlf > 0 && cr == 0 && lf == 0:
		return domain.NewlineCRLF
	case cr > 0 && crlf == 0 && lf == 0:
		return domain.NewlineCR
	case lf > 0 && crlf == 0 && cr == 0:
		return domain.NewlineLF
	default:
		return domain.NewlineMixed
	}
}
