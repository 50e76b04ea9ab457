package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelshelf/novelshelf-server/internal/config"
	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/encoding"
	"github.com/novelshelf/novelshelf-server/internal/filename"
	"github.com/novelshelf/novelshelf-server/internal/hashing"
	"github.com/novelshelf/novelshelf-server/internal/store"
)

func newTestScanner(t *testing.T) (*Scanner, *store.Store) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	resolver, err := encoding.NewResolver(logger)
	require.NoError(t, err)
	t.Cleanup(resolver.Close)

	hasher := hashing.NewService(logger, hashing.DefaultWindowSize)
	parser := filename.NewParser(logger)
	walker := NewWalker(logger, []string{".txt"})
	cfg := config.DedupConfig{NearThreshold: 0.90, Workers: 2, WindowSize: hashing.DefaultWindowSize}

	return New(walker, resolver, hasher, parser, st, cfg, logger), st
}

func TestBeginRequiresPath(t *testing.T) {
	s, _ := newTestScanner(t)

	_, err := s.Begin(context.Background(), "")
	require.Error(t, err)
}

func TestScanPersistsRun(t *testing.T) {
	s, st := newTestScanner(t)
	ctx := context.Background()

	library := t.TempDir()
	story := "어느 날 주인공이 각성했다.\n그리고 모든 것이 달라졌다.\n"
	require.NoError(t, os.WriteFile(filepath.Join(library, "회귀자 1-100화.txt"), []byte(story), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(library, "회귀자 1-100화 (완결).txt"), []byte(story), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(library, "다른 작품.txt"), []byte("전혀 다른 이야기.\n"), 0o600))

	run, err := s.Scan(ctx, library, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.RunComplete, run.Status)
	assert.Equal(t, library, run.LibraryPath)
	assert.Equal(t, 3, run.Files)
	assert.Equal(t, 1, run.Groups)
	assert.Zero(t, run.Skipped)
	assert.Equal(t, int64(len(story)), run.BytesSavable)
	assert.False(t, run.CompletedAt.IsZero())

	// The run and its children are readable back from the store.
	persisted, err := st.Runs.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunComplete, persisted.Status)

	groups, err := st.ListGroups(ctx, run.ID, store.PaginationParams{})
	require.NoError(t, err)
	require.Len(t, groups.Items, 1)
	assert.Equal(t, run.ID, groups.Items[0].RunID)
	assert.Equal(t, domain.GroupExact, groups.Items[0].Type)

	records, err := st.ListRecords(ctx, run.ID, store.PaginationParams{})
	require.NoError(t, err)
	assert.Len(t, records.Items, 3)

	for _, reason := range groups.Items[0].Reasons {
		_, err := st.GetEvidence(ctx, run.ID, reason)
		assert.NoError(t, err, "evidence %s should be persisted", reason)
	}
}

func TestScanEmptyLibrary(t *testing.T) {
	s, _ := newTestScanner(t)

	run, err := s.Scan(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.RunComplete, run.Status)
	assert.Zero(t, run.Files)
	assert.Zero(t, run.Groups)
}

func TestExecuteMarksRunFailedOnCancel(t *testing.T) {
	s, st := newTestScanner(t)

	run, err := s.Begin(context.Background(), t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Execute(ctx, run, nil)
	require.Error(t, err)

	// The failure is recorded on the run entity written with a live context.
	persisted, err := st.Runs.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, persisted.Status)
	assert.NotEmpty(t, persisted.Error)
}
