package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// ErrNoSuchPage is returned by GetPage for a page index beyond the
// issue's page sequence (or an issue that does not exist at all). The
// boundary layer maps it to a not-found response instead of a generic
// server error.
var ErrNoSuchPage = errors.New("no such page")

// imageSuffixes are the raster formats exposed as pages. Everything else
// in an archive (metadata, thumbnails databases, directories) is
// invisible to readers.
var imageSuffixes = []string{".jpg", ".gif", ".png"}

// LibraryService is the read side of the catalog: page delivery with its
// auto-mark-read heuristic, plus explicit read marks.
type LibraryService struct {
	issues  driven.IssueStore
	pages   driven.PageStore
	users   driven.UserStore
	archive driven.ArchiveReader
}

// NewLibraryService creates a new LibraryService with all required
// dependencies.
func NewLibraryService(
	issues driven.IssueStore,
	pages driven.PageStore,
	users driven.UserStore,
	archive driven.ArchiveReader,
) *LibraryService {
	return &LibraryService{issues: issues, pages: pages, users: users, archive: archive}
}

// GetPage returns the entry name and raw bytes of one page of an issue.
// The page sequence is the issue's stored entry list ordered by entry
// name and filtered to image suffixes; pageIndex is a zero-based offset
// into it. Requesting a page within the last two of the book marks the
// issue read for the user as a best-effort side effect.
func (s *LibraryService) GetPage(ctx context.Context, issueID int64, pageIndex int, userID int64) (string, []byte, error) {
	issue, err := s.issues.Get(ctx, issueID)
	if err != nil {
		return "", nil, fmt.Errorf("get issue %d: %w", issueID, err)
	}
	if issue == nil {
		return "", nil, fmt.Errorf("issue %d: %w", issueID, ErrNoSuchPage)
	}

	entries, err := s.pages.EntriesForIssue(ctx, issueID)
	if err != nil {
		return "", nil, fmt.Errorf("list pages for issue %d: %w", issueID, err)
	}

	sequence := filterImages(entries)
	if pageIndex < 0 || pageIndex >= len(sequence) {
		return "", nil, fmt.Errorf("issue %d page %d of %d: %w", issueID, pageIndex, len(sequence), ErrNoSuchPage)
	}

	// Reaching the last two pages counts as having read the book. The
	// mark is best effort: a failed write never fails the page response.
	if pageIndex+3 > len(sequence) {
		if err := s.users.MarkRead(ctx, issueID, userID); err != nil {
			slog.Warn("auto mark-read failed", "issue_id", issueID, "user_id", userID, "error", err)
		}
	}

	name := sequence[pageIndex]
	data, err := s.archive.ReadEntry(issue.Filepath, name)
	if err != nil {
		return "", nil, fmt.Errorf("read page %s of issue %d: %w", name, issueID, err)
	}

	return name, data, nil
}

// MarkRead explicitly marks an issue read for a user.
func (s *LibraryService) MarkRead(ctx context.Context, issueID, userID int64) error {
	return s.users.MarkRead(ctx, issueID, userID)
}

// filterImages keeps the entries whose name ends in a recognized raster
// image suffix. The input is already sorted by entry name, so the result
// is the reader-visible page sequence.
func filterImages(entries []string) []string {
	var images []string
	for _, entry := range entries {
		lower := strings.ToLower(entry)
		for _, suffix := range imageSuffixes {
			if strings.HasSuffix(lower, suffix) {
				images = append(images, entry)
				break
			}
		}
	}
	return images
}
