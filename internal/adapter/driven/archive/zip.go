package archive

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// zipContainer reads .cbz/.zip archives via archive/zip.
type zipContainer struct {
	path string
}

func newZipContainer(path string) container {
	return zipContainer{path: path}
}

func (z zipContainer) list() ([]string, error) {
	r, err := zip.OpenReader(z.path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", z.path, err)
	}
	defer r.Close()

	entries := make([]string, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, f.Name)
	}
	return entries, nil
}

func (z zipContainer) read(name string) ([]byte, error) {
	r, err := zip.OpenReader(z.path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", z.path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open zip entry %s in %s: %w", name, z.path, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read zip entry %s in %s: %w", name, z.path, err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("%s in %s: %w", name, z.path, driven.ErrEntryNotFound)
}
