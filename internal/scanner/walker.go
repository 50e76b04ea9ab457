package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// Walker traverses the filesystem and discovers candidate text files.
type Walker struct {
	logger *slog.Logger
	// exts are the accepted filename extensions, lowercased with leading dot.
	exts map[string]bool
}

// NewWalker creates a walker that accepts the given extensions.
func NewWalker(logger *slog.Logger, extensions []string) *Walker {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Walker{logger: logger, exts: exts}
}

// WalkResult represents a file discovered during walking.
type WalkResult struct {
	Path    string
	RelPath string
	Size    int64
	ModTime time.Time
}

// Walk traverses a directory and streams discovered files on the returned
// channel. Hidden files and directories are skipped, symlinks are never
// followed, and non-matching extensions are ignored. The channel closes when
// the walk completes or the context is canceled.
func (w *Walker) Walk(ctx context.Context, rootPath string) <-chan WalkResult {
	results := make(chan WalkResult, 100) // Buffered channel for better performance

	go func() {
		defer close(results)

		err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				w.logger.Error("walk error", "path", path, "error", err)
				// Continue walking despite errors.
				return nil
			}

			// Skip hidden files/directories.
			if d.Name() != "." && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				return nil
			}

			// Symlinks are skipped entirely; following them risks cycles and
			// double-counting files already reachable by their real path.
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}

			if !w.exts[strings.ToLower(filepath.Ext(d.Name()))] {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				w.logger.Error("failed to get file info", "path", path, "error", err)
				return nil
			}

			relPath, err := filepath.Rel(rootPath, path)
			if err != nil {
				w.logger.Error("failed to compute relative path", "path", path, "error", err)
				relPath = path
			}

			result := WalkResult{
				Path:    path,
				RelPath: relPath,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}

			select {
			case results <- result:
			case <-ctx.Done():
				return ctx.Err()
			}

			return nil
		})

		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("walk failed", "root", rootPath, "error", err)
		}
	}()

	return results
}
