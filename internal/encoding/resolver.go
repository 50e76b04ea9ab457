// Package encoding resolves and decodes text-file encodings.
//
// Detection runs once per file and the result is attached to the record as
// the confirmed encoding; hashing stages never re-detect. Files in the wild
// are UTF-8 (with or without BOM), UTF-16, or legacy EUC-KR/CP949 exports.
package encoding

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"

	"github.com/novelshelf/novelshelf-server/internal/errors"
)

// Canonical encoding names attached to records.
const (
	UTF8    = "utf-8"
	UTF16LE = "utf-16le"
	UTF16BE = "utf-16be"
	EUCKR   = "euc-kr"
	CP949   = "cp949"
)

// Byte order marks.
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// defaultSampleSize is how many leading bytes Detect examines.
const defaultSampleSize = 8 * 1024

// defaultCacheEntries bounds the detection cache.
const defaultCacheEntries = 4096

// Resolution is a detected encoding plus a confidence score.
type Resolution struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Resolved reports whether detection produced a usable encoding.
func (r Resolution) Resolved() bool {
	return r.Name != ""
}

// Resolver detects file encodings with a bounded cache keyed by
// path+mtime+size, so re-scans of an unchanged library skip re-reading
// samples. The cache is owned by the resolver, never ambient state.
type Resolver struct {
	cache      *ristretto.Cache[string, Resolution]
	logger     *slog.Logger
	sampleSize int
}

// NewResolver creates a resolver with a bounded detection cache.
func NewResolver(logger *slog.Logger) (*Resolver, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, Resolution]{
		NumCounters: defaultCacheEntries * 10,
		MaxCost:     defaultCacheEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create detection cache: %w", err)
	}
	return &Resolver{
		cache:      cache,
		logger:     logger,
		sampleSize: defaultSampleSize,
	}, nil
}

// Close releases cache resources.
func (r *Resolver) Close() {
	r.cache.Close()
}

// Resolve reads a sample of the file and returns its detected encoding.
// Results are cached by path+mtime+size.
func (r *Resolver) Resolve(path string, size int64, mtime time.Time) (Resolution, error) {
	key := cacheKey(path, size, mtime)
	if res, ok := r.cache.Get(key); ok {
		return res, nil
	}

	sample, err := readSample(path, r.sampleSize)
	if err != nil {
		return Resolution{}, fmt.Errorf("read sample from %s: %w", path, err)
	}

	res := Detect(sample)
	r.cache.Set(key, res, 1)
	return res, nil
}

func cacheKey(path string, size int64, mtime time.Time) string {
	return fmt.Sprintf("%s|%d|%d", path, size, mtime.UnixNano())
}

func readSample(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.Read(buf)
	if err != nil && read == 0 {
		// Empty files return io.EOF with zero bytes; that is a valid sample.
		return []byte{}, nil
	}
	return buf[:read], nil
}

// Detect examines a byte sample and returns the best-guess encoding with a
// confidence score. An empty name means detection failed.
func Detect(sample []byte) Resolution {
	switch {
	case bytes.HasPrefix(sample, bomUTF8):
		return Resolution{Name: UTF8, Confidence: 1.0}
	case bytes.HasPrefix(sample, bomUTF16LE):
		return Resolution{Name: UTF16LE, Confidence: 1.0}
	case bytes.HasPrefix(sample, bomUTF16BE):
		return Resolution{Name: UTF16BE, Confidence: 1.0}
	}

	if len(sample) == 0 {
		// Nothing to contradict UTF-8; empty text decodes under anything.
		return Resolution{Name: UTF8, Confidence: 0.5}
	}

	if utf8.Valid(sample) {
		if isASCII(sample) {
			// Pure ASCII is also valid EUC-KR; lower confidence but UTF-8 wins.
			return Resolution{Name: UTF8, Confidence: 0.8}
		}
		return Resolution{Name: UTF8, Confidence: 0.95}
	}

	if looksEUCKR(sample) {
		return Resolution{Name: EUCKR, Confidence: 0.8}
	}

	return Resolution{}
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// looksEUCKR checks that the sample round-trips through the EUC-KR decoder
// and yields hangul, the expected script for legacy exports.
func looksEUCKR(sample []byte) bool {
	decoded, err := korean.EUCKR.NewDecoder().Bytes(sample)
	if err != nil {
		return false
	}
	for _, r := range string(decoded) {
		if r == utf8.RuneError {
			return false
		}
	}
	for _, r := range string(decoded) {
		if r >= 0xAC00 && r <= 0xD7A3 { // hangul syllables
			return true
		}
	}
	return false
}

// Decode converts raw bytes to text using a confirmed encoding name.
// An empty name is a programming-contract violation, not an I/O failure:
// upstream must have resolved the encoding before any hashing call.
func Decode(raw []byte, name string) (string, error) {
	if name == "" {
		return "", errors.EncodingUnresolved("decode called without a confirmed encoding")
	}

	enc, err := encodingFor(name)
	if err != nil {
		return "", err
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode as %s: %w", name, err)
	}
	return string(bytes.TrimPrefix(decoded, bomUTF8)), nil
}

// encodingFor maps a canonical name to its x/text encoding.
func encodingFor(name string) (encoding.Encoding, error) {
	switch name {
	case UTF8:
		return unicode.UTF8, nil
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	case EUCKR, CP949:
		// x/text's EUC-KR table covers the CP949 extension set.
		return korean.EUCKR, nil
	default:
		return nil, errors.EncodingUnresolvedf("unsupported encoding %q", name)
	}
}
