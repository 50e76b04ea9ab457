// Package hashing computes the layered content signatures used for duplicate
// detection: cheap multi-window fingerprints, strong whole-file hashes,
// normalized anchor hashes, and similarity hashes.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/encoding"
	"github.com/novelshelf/novelshelf-server/internal/textnorm"
)

// DefaultWindowSize is the byte width of the head/mid/tail windows.
const DefaultWindowSize = 4096

// simhashShingle is the token n-gram width for similarity hashing.
const simhashShingle = 3

// Service computes file content signatures.
type Service struct {
	logger *slog.Logger
	window int64
}

// NewService creates a hashing service. A non-positive windowSize selects
// DefaultWindowSize.
func NewService(logger *slog.Logger, windowSize int) *Service {
	w := int64(windowSize)
	if w <= 0 {
		w = DefaultWindowSize
	}
	return &Service{logger: logger, window: w}
}

// StrongHash computes the SHA-256 of the file's text content decoded with the
// record's confirmed encoding. The encoding must already be resolved upstream;
// calling without one is a contract violation, signaled distinctly from I/O
// errors.
func (s *Service) StrongHash(path, encodingName string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	text, err := encoding.Decode(raw, encodingName)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:]), nil
}

// FastFingerprint hashes fixed-size raw windows at the file's head, middle,
// and tail in a single open, using xxhash. No decoding is involved; this is
// the cheapest signal and runs before any strong hash.
func (s *Service) FastFingerprint(path string, size int64) (uint64, error) {
	windows, err := s.readWindows(path, size)
	if err != nil {
		return 0, err
	}

	digest := xxhash.New()
	for _, w := range windows {
		_, _ = digest.Write(w)
	}
	return digest.Sum64(), nil
}

// AnchorHashes computes the head/mid/tail anchor triple: each window is
// independently decoded with the confirmed encoding, text-normalized, then
// hashed. An empty file yields identical hashes for all three windows.
func (s *Service) AnchorHashes(path string, size int64, encodingName string) (domain.AnchorHashes, error) {
	windows, err := s.readWindows(path, size)
	if err != nil {
		return domain.AnchorHashes{}, err
	}

	var hashes [3]uint64
	for i, w := range windows {
		text, err := encoding.Decode(w, encodingName)
		if err != nil {
			return domain.AnchorHashes{}, err
		}
		hashes[i] = xxhash.Sum64String(textnorm.Normalize(text))
	}

	return domain.AnchorHashes{Head: hashes[0], Mid: hashes[1], Tail: hashes[2]}, nil
}

// readWindows reads the head, mid, and tail windows in one file open.
// Offsets are clamped to zero for files smaller than the window.
func (s *Service) readWindows(path string, size int64) ([3][]byte, error) {
	var windows [3][]byte

	f, err := os.Open(path)
	if err != nil {
		return windows, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	offsets := [3]int64{
		0,
		max(size/2-s.window/2, 0),
		max(size-s.window, 0),
	}

	for i, off := range offsets {
		buf := make([]byte, s.window)
		n, err := f.ReadAt(buf, off)
		if err != nil && n == 0 && size > 0 {
			return windows, fmt.Errorf("read window at %d in %s: %w", off, path, err)
		}
		windows[i] = buf[:n]
	}
	return windows, nil
}

// DeepSignals bundles the signatures that need the whole decoded text.
type DeepSignals struct {
	Strong   string
	Norm     string
	SimHash  uint64
	Newlines domain.NewlineStyle
}

// ComputeDeepSignals reads and decodes the file once and derives every
// whole-text signature from it: strong hash, normalized fingerprint,
// similarity hash, and newline style.
func (s *Service) ComputeDeepSignals(path, encodingName string) (DeepSignals, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DeepSignals{}, fmt.Errorf("read %s: %w", path, err)
	}

	text, err := encoding.Decode(raw, encodingName)
	if err != nil {
		return DeepSignals{}, err
	}

	sum := sha256.Sum256([]byte(text))
	return DeepSignals{
		Strong:   hex.EncodeToString(sum[:]),
		Norm:     NormFingerprint(text),
		SimHash:  SimHash(text),
		Newlines: textnorm.DetectNewlineStyle(text),
	}, nil
}

// NormFingerprint is the SHA-256 of the normalized text, stable across
// CRLF-vs-LF and whitespace-run differences.
func NormFingerprint(text string) string {
	sum := sha256.Sum256([]byte(textnorm.Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// SimHash computes a 64-bit similarity hash over token shingles of the
// normalized text. Hamming distance between two values approximates
// dissimilarity.
func SimHash(text string) uint64 {
	tokens := strings.Fields(textnorm.Normalize(text))
	if len(tokens) == 0 {
		return 0
	}

	var weights [64]int
	addShingle := func(shingle string) {
		h := xxhash.Sum64String(shingle)
		for bit := range 64 {
			if h&(1<<bit) != 0 {
				weights[bit]++
			} else {
				weights[bit]--
			}
		}
	}

	if len(tokens) < simhashShingle {
		addShingle(strings.Join(tokens, " "))
	} else {
		for i := 0; i+simhashShingle <= len(tokens); i++ {
			addShingle(strings.Join(tokens[i:i+simhashShingle], " "))
		}
	}

	var h uint64
	for bit := range 64 {
		if weights[bit] > 0 {
			h |= 1 << bit
		}
	}
	return h
}

// Similarity maps two simhash values to [0,1]: 1 - popcount(a XOR b)/64.
func Similarity(a, b uint64) float64 {
	return 1.0 - float64(bits.OnesCount64(a^b))/64.0
}
