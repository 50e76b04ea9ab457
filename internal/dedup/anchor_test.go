package dedup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/encoding"
	"github.com/novelshelf/novelshelf-server/internal/hashing"
)

func newTestAnchorComputer(workers int) *AnchorComputer {
	hasher := hashing.NewService(testLogger(), hashing.DefaultWindowSize)
	return NewAnchorComputer(hasher, testLogger(), workers)
}

func tempRecord(t *testing.T, id, content string) domain.FileRecord {
	t.Helper()
	path := filepath.Join(t.TempDir(), id+".txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	r := rec(id, int64(len(content)))
	r.Path = path
	return r.WithEncoding(encoding.UTF8, 1.0)
}

func TestAnchorComputeFillsMissing(t *testing.T) {
	c := newTestAnchorComputer(2)
	records := []domain.FileRecord{
		tempRecord(t, "rec-a", "첫 번째 이야기\n"),
		tempRecord(t, "rec-b", "두 번째 이야기\n"),
	}

	out, failures := c.Compute(context.Background(), records, nil)

	assert.Empty(t, failures)
	require.Len(t, out, 2)
	assert.Equal(t, "rec-a", out[0].ID)
	assert.Equal(t, "rec-b", out[1].ID)
	assert.True(t, out[0].HasAnchors())
	assert.True(t, out[1].HasAnchors())
	// Input records are not mutated.
	assert.False(t, records[0].HasAnchors())
}

func TestAnchorComputeIdempotent(t *testing.T) {
	c := newTestAnchorComputer(1)
	records := []domain.FileRecord{tempRecord(t, "rec-a", "내용\n")}

	once, failures := c.Compute(context.Background(), records, nil)
	require.Empty(t, failures)

	twice, failures := c.Compute(context.Background(), once, nil)
	require.Empty(t, failures)

	assert.Equal(t, once[0].Anchors, twice[0].Anchors)
}

func TestAnchorComputePerFileFailure(t *testing.T) {
	c := newTestAnchorComputer(2)
	missing := rec("rec-gone", 10)
	missing.Path = filepath.Join(t.TempDir(), "does-not-exist.txt")
	missing = missing.WithEncoding(encoding.UTF8, 1.0)

	records := []domain.FileRecord{
		tempRecord(t, "rec-a", "멀쩡한 파일\n"),
		missing,
	}

	out, failures := c.Compute(context.Background(), records, nil)

	// One failure, but the batch completes and the healthy record is hashed.
	require.Len(t, failures, 1)
	assert.Equal(t, missing.Path, failures[0].Path)
	assert.True(t, out[0].HasAnchors())
	assert.False(t, out[1].HasAnchors())
}

func TestAnchorComputeIdenticalContentAgrees(t *testing.T) {
	c := newTestAnchorComputer(0)
	content := "같은 본문이 두 파일에 들어 있다.\n"
	records := []domain.FileRecord{
		tempRecord(t, "rec-a", content),
		tempRecord(t, "rec-b", content),
	}

	out, failures := c.Compute(context.Background(), records, nil)

	require.Empty(t, failures)
	require.True(t, out[0].HasAnchors())
	require.True(t, out[1].HasAnchors())
	assert.True(t, out[0].Anchors.Agree(*out[1].Anchors))
}
