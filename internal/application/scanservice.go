// Package application contains use-case orchestration services: the
// library scan pass and the catalog query/page-delivery path.
package application

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/comicserve/comicserve/internal/comicinfo"
	"github.com/comicserve/comicserve/internal/domain/model"
	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// ScanService drives one full indexing pass over the comic library tree.
type ScanService struct {
	issues  driven.IssueStore
	archive driven.ArchiveReader
}

// NewScanService creates a new ScanService with all required dependencies.
func NewScanService(issues driven.IssueStore, archive driven.ArchiveReader) *ScanService {
	return &ScanService{issues: issues, archive: archive}
}

// Run walks the tree rooted at root depth-first and (re)indexes every
// supported archive file whose stored modification time is stale. A
// single file failing to read or parse is logged and skipped; only
// context cancellation aborts the pass. After the pass the store's query
// planner statistics are refreshed as a maintenance hint.
func (s *ScanService) Run(ctx context.Context, root string) error {
	start := time.Now()
	var indexed, skipped, failed int

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Error("walk error", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !s.archive.Supports(path) {
			slog.Debug("skipping unsupported file", "path", path)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Error("skipping unstattable file", "path", path, "error", err)
			failed++
			return nil
		}

		if !s.issues.NeedsReindex(ctx, path, info.ModTime()) {
			slog.Debug("skipping unchanged file", "path", path)
			skipped++
			return nil
		}

		if err := s.indexFile(ctx, path, info); err != nil {
			slog.Error("skipping file", "path", path, "error", err)
			failed++
			return nil
		}
		indexed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}

	if err := s.issues.Analyze(ctx); err != nil {
		slog.Error("analyze after scan failed", "error", err)
	}

	slog.Info("scan complete",
		"root", root,
		"indexed", indexed,
		"skipped", skipped,
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// indexFile introspects one archive and upserts the resulting issue with
// its full, unfiltered entry list. Filtering to image types happens at
// page-read time; the stored listing is the archive's ground truth.
func (s *ScanService) indexFile(ctx context.Context, path string, info os.FileInfo) error {
	entries, err := s.archive.ListEntries(path)
	if err != nil {
		return err
	}

	issue := model.Issue{
		Filepath:   path,
		ModifiedAt: info.ModTime(),
		Size:       info.Size(),
	}

	if slices.Contains(entries, comicinfo.EntryName) {
		raw, err := s.archive.ReadEntry(path, comicinfo.EntryName)
		if err != nil {
			return err
		}
		meta, err := comicinfo.Parse(raw)
		if err != nil {
			return err
		}
		issue.RawComicInfo = string(raw)
		applyMetadata(&issue, meta)
	}

	id, err := s.issues.Upsert(ctx, issue, entries)
	if err != nil {
		return err
	}

	slog.Info("indexed", "path", path, "issue_id", id, "entries", len(entries))
	return nil
}

func applyMetadata(issue *model.Issue, meta *comicinfo.Info) {
	issue.Title = meta.Title
	issue.Series = meta.Series
	issue.IssueNumber = meta.Number
	issue.Volume = meta.Volume
	issue.Summary = meta.Summary
	issue.ComicvineURL = meta.Web
	issue.ReleasedAt = meta.ReleasedAt
	issue.Writer = meta.Writer
	issue.Penciller = meta.Penciller
	issue.Inker = meta.Inker
	issue.Colorist = meta.Colorist
	issue.CoverArtist = meta.CoverArtist
	issue.Publisher = meta.Publisher
	issue.PageCount = meta.PageCount
}
