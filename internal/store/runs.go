package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/novelshelf/novelshelf-server/internal/domain"
)

// SaveResult persists a completed run together with everything it produced.
// The children are written through a write batch; a failure leaves the run
// entity itself unwritten, so readers never observe a run without its data.
func (s *Store) SaveResult(ctx context.Context, run *domain.Run, records []domain.FileRecord, groups []domain.DuplicateGroup, evidence []domain.Evidence) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, rec := range records {
		if err := batchSet(wb, recordKey(run.ID, rec.ID), rec); err != nil {
			return err
		}
	}
	for _, grp := range groups {
		if err := batchSet(wb, groupKey(run.ID, grp.ID), grp); err != nil {
			return err
		}
	}
	for _, ev := range evidence {
		if err := batchSet(wb, evidenceKey(run.ID, ev.ID), ev); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush run %s: %w", run.ID, err)
	}

	if err := s.set(runKey(run.ID), run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

func batchSet(wb *badger.WriteBatch, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := wb.Set(key, data); err != nil {
		return fmt.Errorf("failed to batch key %s: %w", key, err)
	}
	return nil
}

// UpdateRun overwrites a run's own entity without touching its children.
func (s *Store) UpdateRun(ctx context.Context, run *domain.Run) error {
	return s.Runs.Update(ctx, run.ID, run)
}

// ListRuns returns every run, newest key first left to the caller to sort;
// Badger iterates in key order.
func (s *Store) ListRuns(ctx context.Context) ([]domain.Run, error) {
	var runs []domain.Run
	for run, err := range s.Runs.List(ctx) {
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// ListRecords returns one page of a run's file records.
func (s *Store) ListRecords(ctx context.Context, runID string, params PaginationParams) (*PaginatedResult[domain.FileRecord], error) {
	return listPrefix[domain.FileRecord](ctx, s, recordPrefix(runID), params)
}

// ListGroups returns one page of a run's duplicate groups.
func (s *Store) ListGroups(ctx context.Context, runID string, params PaginationParams) (*PaginatedResult[domain.DuplicateGroup], error) {
	return listPrefix[domain.DuplicateGroup](ctx, s, groupPrefix(runID), params)
}

// ListEvidence returns one page of a run's evidence entries.
func (s *Store) ListEvidence(ctx context.Context, runID string, params PaginationParams) (*PaginatedResult[domain.Evidence], error) {
	return listPrefix[domain.Evidence](ctx, s, evidencePrefix(runID), params)
}

// GetGroup retrieves one duplicate group of a run.
func (s *Store) GetGroup(ctx context.Context, runID, groupID string) (*domain.DuplicateGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var grp domain.DuplicateGroup
	err := s.get(groupKey(runID, groupID), &grp)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &grp, nil
}

// GetEvidence retrieves one evidence entry of a run.
func (s *Store) GetEvidence(ctx context.Context, runID, evidenceID string) (*domain.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ev domain.Evidence
	err := s.get(evidenceKey(runID, evidenceID), &ev)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// MarkRunsStale flags every completed run over the given library path as
// stale. The watcher calls this when files under the path change.
func (s *Store) MarkRunsStale(ctx context.Context, libraryPath string) (int, error) {
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, run := range runs {
		if run.LibraryPath != libraryPath || run.Stale || run.Status != domain.RunComplete {
			continue
		}
		run.Stale = true
		if err := s.UpdateRun(ctx, &run); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// DeleteRun removes a run and everything stored under it.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := []byte(runPrefix + runID)
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to delete key %s: %w", key, err)
			}
		}
		return nil
	})
}

// listPrefix pages through a key prefix using the last returned key as an
// opaque cursor.
func listPrefix[T any](ctx context.Context, s *Store, prefix string, params PaginationParams) (*PaginatedResult[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Validate()

	startKey, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	result := &PaginatedResult[T]{}
	var lastKey string

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(prefix)
		if startKey != "" {
			// Resume just past the cursor key.
			seek = append([]byte(startKey), 0)
		}

		for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if len(result.Items) >= params.Limit {
				result.HasMore = true
				result.NextCursor = EncodeCursor(lastKey)
				return nil
			}

			var item T
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return err
			}
			result.Items = append(result.Items, item)
			lastKey = string(it.Item().Key())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
