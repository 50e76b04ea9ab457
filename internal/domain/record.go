// Package domain defines the core data model for the duplicate-detection pipeline.
package domain

import (
	"time"
)

// RecordFlag marks a processing condition on a file record.
type RecordFlag string

// Record flags set by pipeline stages.
const (
	// FlagDecodeFail marks a record whose content could not be decoded with
	// its confirmed encoding; the record stays in the pipeline with reduced
	// matching power.
	FlagDecodeFail RecordFlag = "decode_fail"
	// FlagLowParseConfidence marks a record whose filename parse fell below
	// the reliability threshold; keeper scoring applies a large penalty.
	FlagLowParseConfidence RecordFlag = "low_parse_confidence"
)

// NewlineStyle identifies the dominant line-ending convention of a file.
type NewlineStyle string

// Newline styles detected from raw content.
const (
	NewlineLF      NewlineStyle = "lf"
	NewlineCRLF    NewlineStyle = "crlf"
	NewlineCR      NewlineStyle = "cr"
	NewlineMixed   NewlineStyle = "mixed"
	NewlineUnknown NewlineStyle = ""
)

// AnchorHashes holds normalized-window hashes at a file's head, mid, and tail
// offsets. An empty file hashes all three windows identically (the hash of
// empty normalized text); that is the documented equality case, not a collision.
type AnchorHashes struct {
	Head uint64 `json:"head"`
	Mid  uint64 `json:"mid"`
	Tail uint64 `json:"tail"`
}

// Agree reports whether both anchor triples are present-equal window by window.
func (a AnchorHashes) Agree(b AnchorHashes) bool {
	return a.Head == b.Head && a.Mid == b.Mid && a.Tail == b.Tail
}

// FileRecord is one physical file moving through the pipeline.
//
// Identity fields are immutable; analysis fields are progressively filled by
// pipeline stages. Stages never mutate a record in place: each With* method
// returns a new value with one field group changed (copy-on-write).
type FileRecord struct {
	// Identity, set by the scanner.
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Ext     string    `json:"ext"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`

	// Encoding resolution.
	EncodingName       string  `json:"encoding_name,omitempty"`
	EncodingConfidence float64 `json:"encoding_confidence,omitempty"`

	NewlineStyle NewlineStyle `json:"newline_style,omitempty"`

	// Content signatures.
	HashStrong      string        `json:"hash_strong,omitempty"`      // hex SHA-256 of decoded content
	FingerprintFast uint64        `json:"fingerprint_fast,omitempty"` // xxhash of raw head/mid/tail windows
	FingerprintNorm string        `json:"fingerprint_norm,omitempty"` // hex SHA-256 of normalized text
	SimHash         uint64        `json:"simhash,omitempty"`
	Anchors         *AnchorHashes `json:"anchors,omitempty"`

	// Parsed filename metadata.
	Parsed *ParsedFilename `json:"parsed,omitempty"`

	Flags []RecordFlag `json:"flags,omitempty"`
}

// WithEncoding returns a copy with the confirmed encoding attached.
func (r FileRecord) WithEncoding(name string, confidence float64) FileRecord {
	r.EncodingName = name
	r.EncodingConfidence = confidence
	return r
}

// WithNewlineStyle returns a copy with the newline style attached.
func (r FileRecord) WithNewlineStyle(style NewlineStyle) FileRecord {
	r.NewlineStyle = style
	return r
}

// WithStrongHash returns a copy with the strong content hash attached.
func (r FileRecord) WithStrongHash(hexDigest string) FileRecord {
	r.HashStrong = hexDigest
	return r
}

// WithFastFingerprint returns a copy with the fast multi-window fingerprint attached.
func (r FileRecord) WithFastFingerprint(fp uint64) FileRecord {
	r.FingerprintFast = fp
	return r
}

// WithNormFingerprint returns a copy with the normalized-text fingerprint attached.
func (r FileRecord) WithNormFingerprint(hexDigest string) FileRecord {
	r.FingerprintNorm = hexDigest
	return r
}

// WithSimHash returns a copy with the similarity hash attached.
func (r FileRecord) WithSimHash(h uint64) FileRecord {
	r.SimHash = h
	return r
}

// WithAnchors returns a copy with the anchor-hash triple attached.
func (r FileRecord) WithAnchors(a AnchorHashes) FileRecord {
	r.Anchors = &a
	return r
}

// WithParsed returns a copy with parsed filename metadata attached.
func (r FileRecord) WithParsed(p ParsedFilename) FileRecord {
	r.Parsed = &p
	return r
}

// WithFlag returns a copy with the given flag appended (once).
func (r FileRecord) WithFlag(f RecordFlag) FileRecord {
	if r.HasFlag(f) {
		return r
	}
	flags := make([]RecordFlag, len(r.Flags), len(r.Flags)+1)
	copy(flags, r.Flags)
	r.Flags = append(flags, f)
	return r
}

// HasFlag reports whether the record carries the given flag.
func (r FileRecord) HasFlag(f RecordFlag) bool {
	for _, existing := range r.Flags {
		if existing == f {
			return true
		}
	}
	return false
}

// HasAnchors reports whether the anchor-hash triple has been computed.
func (r FileRecord) HasAnchors() bool {
	return r.Anchors != nil
}

// BaseTitle returns the parsed series title, or "" when the filename parse is
// missing or produced no title.
func (r FileRecord) BaseTitle() string {
	if r.Parsed == nil {
		return ""
	}
	return r.Parsed.SeriesTitle
}

// EpisodeEnd returns the numeric upper bound of the first recognized episode
// range. Absent ranges report -1, the value keeper ordering expects.
func (r FileRecord) EpisodeEnd() int {
	if r.Parsed == nil {
		return -1
	}
	return r.Parsed.EpisodeEnd()
}
