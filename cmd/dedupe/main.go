// Package main provides a one-shot duplicate detection CLI: scan a directory,
// run the detection pipeline in memory, and print the resulting groups.
package main

import (
	"context"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/novelshelf/novelshelf-server/internal/dedup"
	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/encoding"
	"github.com/novelshelf/novelshelf-server/internal/filename"
	"github.com/novelshelf/novelshelf-server/internal/hashing"
	"github.com/novelshelf/novelshelf-server/internal/id"
	"github.com/novelshelf/novelshelf-server/internal/scanner"
)

func main() {
	threshold := flag.Float64("near-threshold", 0.90, "minimum simhash similarity for near-duplicates")
	workers := flag.Int("workers", 0, "hashing worker pool size (0 = number of CPUs)")
	asJSON := flag.Bool("json", false, "emit the full result as JSON")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: dedupe [flags] <library-path>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	libraryPath := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	result, err := run(ctx, libraryPath, *threshold, *workers, logger)
	if err != nil {
		logger.Error("detection failed", "error", err)
		os.Exit(1)
	}

	if *asJSON {
		data, err := json.Marshal(result)
		if err != nil {
			logger.Error("failed to encode result", "error", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		fmt.Println()
		return
	}

	printSummary(result)
}

func run(ctx context.Context, libraryPath string, threshold float64, workers int, logger *slog.Logger) (*dedup.Result, error) {
	resolver, err := encoding.NewResolver(logger)
	if err != nil {
		return nil, err
	}
	defer resolver.Close()

	hasher := hashing.NewService(logger, hashing.DefaultWindowSize)
	parser := filename.NewParser(logger)
	walker := scanner.NewWalker(logger, []string{".txt"})

	var records []domain.FileRecord
	for res := range walker.Walk(ctx, libraryPath) {
		rec := domain.FileRecord{
			ID:      id.MustGenerate(id.PrefixRecord),
			Path:    res.Path,
			Name:    filepath.Base(res.Path),
			Ext:     filepath.Ext(res.Path),
			Size:    res.Size,
			ModTime: res.ModTime,
		}
		if enc, err := resolver.Resolve(rec.Path, rec.Size, rec.ModTime); err == nil {
			rec = rec.WithEncoding(enc.Name, enc.Confidence)
		}
		if fp, err := hasher.FastFingerprint(rec.Path, rec.Size); err == nil {
			rec = rec.WithFastFingerprint(fp)
		}
		records = append(records, rec)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := dedup.DefaultOptions()
	opts.NearThreshold = threshold
	opts.Workers = workers

	engine := dedup.NewEngine(hasher, parser, logger)
	return engine.Detect(ctx, records, opts)
}

func printSummary(result *dedup.Result) {
	byID := make(map[string]domain.FileRecord, len(result.Records))
	for _, rec := range result.Records {
		byID[rec.ID] = rec
	}

	fmt.Printf("files: %d  groups: %d  skipped: %d\n\n", len(result.Records), len(result.Groups), len(result.Skipped))

	var savable int64
	for _, grp := range result.Groups {
		savable += grp.BytesSavable
		fmt.Printf("[%s] %s (%s, confidence %.2f)\n", grp.Type, grp.ID, grp.Strength, grp.Confidence)
		for _, m := range grp.MemberIDs {
			marker := " "
			if m == grp.CanonicalID {
				marker = "*"
			}
			fmt.Printf("  %s %s (%d bytes)\n", marker, byID[m].Path, byID[m].Size)
		}
		fmt.Println()
	}

	fmt.Printf("reclaimable: %d bytes across %d groups\n", savable, len(result.Groups))
	for _, skip := range result.Skipped {
		fmt.Fprintf(os.Stderr, "skipped %s: %v\n", skip.Path, skip.Err)
	}
}
