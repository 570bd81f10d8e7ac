// Package archive gives uniform read access over the two comic container
// formats: zip (.cbz/.zip) and rar (.cbr/.rar). The format is chosen once
// per call from the filename suffix; the two containers sit behind one
// internal interface so callers never branch on format themselves.
package archive

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ArchiveReader = (*Reader)(nil)

// Reader is the filesystem-backed implementation of the ArchiveReader
// port. It holds no state: every operation reopens and reparses the
// archive, which is acceptable because callers gate on change detection
// or fetch a single page at a time.
type Reader struct{}

// NewReader creates a new archive Reader.
func NewReader() *Reader {
	return &Reader{}
}

// container is the shared capability over one physical archive format.
type container interface {
	list() ([]string, error)
	read(name string) ([]byte, error)
}

// extContainer is the single source of truth for supported extensions,
// mapping each to its container constructor. Supports and open both
// consult it, so classification and dispatch cannot drift apart.
var extContainer = map[string]func(path string) container{
	".cbz": newZipContainer,
	".zip": newZipContainer,
	".cbr": newRarContainer,
	".rar": newRarContainer,
}

// open selects the container implementation for the file's extension.
func open(path string) (container, error) {
	newContainer, ok := extContainer[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}
	return newContainer(path), nil
}

// Supports reports whether the filename's extension maps to a known
// container format.
func (r *Reader) Supports(path string) bool {
	_, ok := extContainer[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ListEntries returns the archive's entry names in the container's native
// listing order: the zip directory order for zip, the rar header order
// for rar. Neither is necessarily sorted.
func (r *Reader) ListEntries(path string) ([]string, error) {
	c, err := open(path)
	if err != nil {
		return nil, err
	}
	return c.list()
}

// ReadEntry returns the raw bytes of one named entry. A missing entry is
// driven.ErrEntryNotFound; anything else is a corrupt or unreadable
// archive.
func (r *Reader) ReadEntry(path, name string) ([]byte, error) {
	c, err := open(path)
	if err != nil {
		return nil, err
	}
	return c.read(name)
}
