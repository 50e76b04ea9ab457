package dedup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/encoding"
	"github.com/novelshelf/novelshelf-server/internal/filename"
	"github.com/novelshelf/novelshelf-server/internal/hashing"
)

func newTestEngine() *Engine {
	hasher := hashing.NewService(testLogger(), hashing.DefaultWindowSize)
	parser := filename.NewParser(testLogger())
	return NewEngine(hasher, parser, testLogger())
}

// libraryFile writes content under dir and returns an identity record the way
// the scanner would build it, with a fixed mtime for determinism.
func libraryFile(t *testing.T, dir, name, content string) domain.FileRecord {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return domain.FileRecord{
		Path:    path,
		Name:    name,
		Ext:     filepath.Ext(name),
		Size:    int64(len(content)),
		ModTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}.WithEncoding(encoding.UTF8, 1.0)
}

func TestDetectEmptyInput(t *testing.T) {
	e := newTestEngine()

	result, err := e.Detect(context.Background(), nil, DefaultOptions())

	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Groups)
}

func TestDetectInvalidOptions(t *testing.T) {
	e := newTestEngine()
	opts := DefaultOptions()
	opts.NearThreshold = 1.5

	_, err := e.Detect(context.Background(), nil, opts)
	require.Error(t, err)
}

func TestDetectRejectsDuplicateIDs(t *testing.T) {
	e := newTestEngine()
	records := []domain.FileRecord{rec("rec-a", 1), rec("rec-a", 2)}

	_, err := e.Detect(context.Background(), records, DefaultOptions())
	require.Error(t, err)
}

func TestDetectEndToEnd(t *testing.T) {
	e := newTestEngine()
	dir := t.TempDir()

	story := "달이 뜨는 밤마다 조각가는 끌을 들었다.\n그의 손끝에서 이야기가 태어났다.\n"
	records := []domain.FileRecord{
		// Identical content under the same base title: an exact pair.
		libraryFile(t, dir, "달빛조각사 1-114화.txt", story),
		libraryFile(t, dir, "달빛조각사 1-114화 (완결).txt", story),
		// Same series, overlapping but non-nested coverage, different text:
		// a version pair.
		libraryFile(t, dir, "전생검신 1-60화.txt", "검신은 첫 생을 산에서 마쳤다.\n"),
		libraryFile(t, dir, "전생검신 50-114화.txt", "두 번째 삶은 바다에서 시작되었다.\n"),
		// Unrelated singleton.
		libraryFile(t, dir, "독립 단편.txt", "아무와도 겹치지 않는 이야기.\n"),
	}

	result, err := e.Detect(context.Background(), records, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Skipped)
	require.Len(t, result.Records, 5)
	for i, out := range result.Records {
		assert.NotEmpty(t, out.ID)
		assert.Equal(t, records[i].Name, out.Name, "input order preserved")
		assert.NotNil(t, out.Parsed)
		assert.True(t, out.HasAnchors())
	}

	require.Len(t, result.Groups, 2)

	exact := result.Groups[0]
	assert.Equal(t, domain.GroupExact, exact.Type)
	assert.Equal(t, domain.StrengthStrong, exact.Strength)
	assert.Equal(t, ConfidenceStrong, exact.Confidence)
	require.Len(t, exact.MemberIDs, 2)
	// Full tie on coverage, size, and mtime: the merged-keyword name wins.
	assert.Equal(t, result.Records[1].ID, exact.CanonicalID)
	assert.Equal(t, result.Records[0].Size, exact.BytesSavable)
	assert.NotEmpty(t, exact.Reasons)

	version := result.Groups[1]
	assert.Equal(t, domain.GroupVersion, version.Type)
	assert.Equal(t, domain.StrengthWeak, version.Strength)
	assert.Equal(t, ConfidenceWeak, version.Confidence)
	// Higher episode coverage wins the keeper slot.
	assert.Equal(t, result.Records[3].ID, version.CanonicalID)

	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, exact.ID, result.Recommendations[0].GroupID)
	assert.Equal(t, exact.CanonicalID, result.Recommendations[0].KeepID)
	assert.Equal(t, []string{result.Records[0].ID}, result.Recommendations[0].RemoveIDs)

	// Every group reason resolves to a returned evidence entry.
	evidence := make(map[string]bool, len(result.Evidence))
	for _, ev := range result.Evidence {
		evidence[ev.ID] = true
	}
	for _, grp := range result.Groups {
		for _, reason := range grp.Reasons {
			assert.True(t, evidence[reason], "reason %s missing from evidence", reason)
		}
	}
}

func TestDetectLineEndingVariantsClassifyExact(t *testing.T) {
	e := newTestEngine()
	dir := t.TempDir()

	// Same text, but one export uses CRLF endings and carries trailing spaces
	// on some lines. Raw bytes differ, so only the normalized fingerprint can
	// make this pair exact.
	records := []domain.FileRecord{
		libraryFile(t, dir, "바람의 검 1-30화.txt", "첫 문장.\n둘째 문장.\n"),
		libraryFile(t, dir, "바람의 검 1-30화 (완결).txt", "첫 문장.  \r\n둘째 문장. \r\n"),
	}

	result, err := e.Detect(context.Background(), records, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	grp := result.Groups[0]
	assert.Equal(t, domain.GroupExact, grp.Type)
	assert.Equal(t, domain.StrengthStrong, grp.Strength)
	assert.Equal(t, ConfidenceStrong, grp.Confidence)

	assert.NotEqual(t, result.Records[0].HashStrong, result.Records[1].HashStrong)
	assert.Equal(t, result.Records[0].FingerprintNorm, result.Records[1].FingerprintNorm)
}

func TestDetectInputRecordsNotMutated(t *testing.T) {
	e := newTestEngine()
	dir := t.TempDir()

	records := []domain.FileRecord{
		libraryFile(t, dir, "시리즈 1-10화.txt", "본문 하나\n"),
		libraryFile(t, dir, "시리즈 1-10화 복사.txt", "본문 하나\n"),
	}

	_, err := e.Detect(context.Background(), records, DefaultOptions())
	require.NoError(t, err)

	for _, in := range records {
		assert.Empty(t, in.ID)
		assert.Nil(t, in.Parsed)
		assert.Nil(t, in.Anchors)
		assert.Empty(t, in.HashStrong)
	}
}

func TestDetectUnreadableFileSkippedNotFatal(t *testing.T) {
	e := newTestEngine()
	dir := t.TempDir()

	ghost := domain.FileRecord{
		Path:    filepath.Join(dir, "유령 1-10화.txt"), // never written
		Name:    "유령 1-10화.txt",
		Ext:     ".txt",
		Size:    100,
		ModTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}.WithEncoding(encoding.UTF8, 1.0)

	records := []domain.FileRecord{
		ghost,
		libraryFile(t, dir, "유령 1-20화.txt", "실제로 존재하는 본문\n"),
	}

	result, err := e.Detect(context.Background(), records, DefaultOptions())
	require.NoError(t, err)

	require.NotEmpty(t, result.Skipped)
	assert.Equal(t, ghost.Path, result.Skipped[0].Path)
	assert.True(t, result.Records[0].HasFlag(domain.FlagDecodeFail))
}

func TestDetectCancelledContext(t *testing.T) {
	e := newTestEngine()
	dir := t.TempDir()

	records := []domain.FileRecord{
		libraryFile(t, dir, "시리즈 1-10화.txt", "본문\n"),
		libraryFile(t, dir, "시리즈 1-20화.txt", "본문 더\n"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Detect(ctx, records, DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
}
