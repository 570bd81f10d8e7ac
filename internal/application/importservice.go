package application

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/comicserve/comicserve/internal/comicinfo"
	"github.com/comicserve/comicserve/internal/domain/model"
	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// ImportService seeds the catalog from a ComicRack library database
// (ComicDb.xml): one Book element per archive, carrying the same flat
// metadata elements as an embedded ComicInfo document plus ComicRack's
// own reading-progress fields. Meant to run once against a freshly
// migrated catalog; it overwrites metadata for any file it finds.
type ImportService struct {
	issues  driven.IssueStore
	users   driven.UserStore
	archive driven.ArchiveReader

	// root anchors the Book File paths on the local library tree.
	// stripPrefix is removed from each File first (ComicRack records
	// Windows paths from the machine it ran on).
	root        string
	stripPrefix string

	// readUserID receives read marks for books ComicRack considers
	// finished. NoUser disables read-mark seeding.
	readUserID int64
}

// NewImportService creates an ImportService over the given stores.
func NewImportService(
	issues driven.IssueStore,
	users driven.UserStore,
	archive driven.ArchiveReader,
	root, stripPrefix string,
	readUserID int64,
) *ImportService {
	return &ImportService{
		issues:      issues,
		users:       users,
		archive:     archive,
		root:        root,
		stripPrefix: stripPrefix,
		readUserID:  readUserID,
	}
}

// comicRackBook is one Book element of a ComicRack database. PageCount
// and LastPageRead have shown up both as attributes and as child
// elements across ComicRack versions, so both forms are accepted.
type comicRackBook struct {
	File             string `xml:"File,attr"`
	PageCountAttr    *int   `xml:"PageCount,attr"`
	LastPageReadAttr *int   `xml:"LastPageRead,attr"`
	PageCountElem    *int   `xml:"PageCount"`
	LastPageReadElem *int   `xml:"LastPageRead"`
	Inner            []byte `xml:",innerxml"`
}

func (b comicRackBook) pageCount() *int {
	if b.PageCountAttr != nil {
		return b.PageCountAttr
	}
	return b.PageCountElem
}

func (b comicRackBook) lastPageRead() *int {
	if b.LastPageReadAttr != nil {
		return b.LastPageReadAttr
	}
	return b.LastPageReadElem
}

// finished reports whether ComicRack's progress puts the reader within
// the last two pages, the same completion boundary as page delivery.
func (b comicRackBook) finished() bool {
	pages, last := b.pageCount(), b.lastPageRead()
	if pages == nil || last == nil {
		return false
	}
	return *pages-2 <= *last
}

// Run streams the ComicRack database from r and imports every Book
// whose file exists under the library root. A single book failing to
// resolve or parse is logged and skipped; a malformed database aborts
// the import.
func (s *ImportService) Run(ctx context.Context, r io.Reader) error {
	start := time.Now()
	var imported, skipped, failed int

	dec := xml.NewDecoder(r)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read comicrack database: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Book" {
			continue
		}

		var book comicRackBook
		if err := dec.DecodeElement(&book, &se); err != nil {
			return fmt.Errorf("decode book element: %w", err)
		}

		switch err := s.importBook(ctx, book); {
		case errors.Is(err, errBookMissing):
			skipped++
		case err != nil:
			slog.Error("skipping book", "file", book.File, "error", err)
			failed++
		default:
			imported++
		}
	}

	slog.Info("comicrack import complete",
		"imported", imported,
		"skipped", skipped,
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// errBookMissing marks a book whose file is absent from the library.
var errBookMissing = errors.New("book file not found")

func (s *ImportService) importBook(ctx context.Context, book comicRackBook) error {
	path := s.resolvePath(book.File)

	info, err := os.Stat(path)
	if err != nil {
		slog.Warn("book file not in library", "file", book.File, "path", path)
		return errBookMissing
	}

	// The page set comes from the archive itself, not ComicRack, so a
	// prior or later scan pass sees the same ground truth.
	entries, err := s.archive.ListEntries(path)
	if err != nil {
		return err
	}

	meta, err := comicinfo.Parse(book.Inner)
	if err != nil {
		return err
	}

	issue := model.Issue{
		Filepath:     path,
		ModifiedAt:   info.ModTime(),
		Size:         info.Size(),
		RawComicInfo: string(book.Inner),
	}
	applyMetadata(&issue, meta)

	id, err := s.issues.Upsert(ctx, issue, entries)
	if err != nil {
		return err
	}

	if s.readUserID != driven.NoUser && book.finished() {
		if err := s.users.MarkRead(ctx, id, s.readUserID); err != nil {
			return err
		}
		slog.Info("imported as read", "path", path, "issue_id", id)
		return nil
	}

	slog.Info("imported", "path", path, "issue_id", id, "entries", len(entries))
	return nil
}

// resolvePath maps a ComicRack File value onto the local library tree:
// strip the configured prefix, flip backslashes, anchor at the root.
func (s *ImportService) resolvePath(file string) string {
	rel := strings.TrimPrefix(file, s.stripPrefix)
	rel = strings.ReplaceAll(rel, `\`, "/")
	return filepath.Join(s.root, rel)
}
