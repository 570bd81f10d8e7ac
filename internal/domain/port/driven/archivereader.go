package driven

import "errors"

// ErrEntryNotFound is returned by ReadEntry when the archive opens fine
// but contains no entry with the requested name.
var ErrEntryNotFound = errors.New("entry not found in archive")

// ArchiveReader defines the driven port for uniform read access over the
// supported comic container formats. Implementations are pure readers:
// no caching, every call reopens the file.
type ArchiveReader interface {
	// Supports reports whether the filename's extension maps to a known
	// container format.
	Supports(path string) bool

	// ListEntries returns the archive's entry names in the container's
	// native listing order.
	ListEntries(path string) ([]string, error)

	// ReadEntry returns the raw bytes of one named entry.
	ReadEntry(path, name string) ([]byte, error)
}
