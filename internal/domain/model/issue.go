package model

import (
	"path/filepath"
	"strconv"
	"time"
)

// Issue represents one comic archive file in the catalog. Optional fields
// are pointers: nil means the embedded metadata never supplied a value,
// which the store persists as NULL.
type Issue struct {
	ID         int64
	Filepath   string
	ModifiedAt time.Time
	Size       int64

	// RawComicInfo is the unparsed ComicInfo.xml document, kept for
	// full-text search. Empty when the archive carries no metadata.
	RawComicInfo string

	ComicvineID  *int64
	ComicvineURL *string
	Series       *string
	IssueNumber  *int
	Volume       *int
	Title        *string
	Summary      *string
	ReleasedAt   *time.Time
	Writer       *string
	Penciller    *string
	Inker        *string
	Colorist     *string
	CoverArtist  *string
	Publisher    *string
	PageCount    *int
}

// Filename returns the base name of the archive file.
func (i Issue) Filename() string {
	return filepath.Base(i.Filepath)
}

// DisplayTitle returns a human-readable title for feed entries:
// "Series #Number" when the metadata supplies a series, the archive
// filename otherwise.
func (i Issue) DisplayTitle() string {
	if i.Series == nil {
		return i.Filename()
	}
	title := *i.Series
	if i.IssueNumber != nil {
		title += " #" + strconv.Itoa(*i.IssueNumber)
	}
	return title
}
