package archive

import (
	"errors"
	"fmt"
	"io"

	"github.com/nwaples/rardecode/v2"

	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// rarContainer reads .cbr/.rar archives via rardecode. Rar has no central
// directory, so both listing and entry reads walk the file headers in
// stream order.
type rarContainer struct {
	path string
}

func newRarContainer(path string) container {
	return rarContainer{path: path}
}

func (c rarContainer) list() ([]string, error) {
	r, err := rardecode.OpenReader(c.path)
	if err != nil {
		return nil, fmt.Errorf("open rar %s: %w", c.path, err)
	}
	defer r.Close()

	var entries []string
	for {
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list rar %s: %w", c.path, err)
		}
		entries = append(entries, hdr.Name)
	}
}

func (c rarContainer) read(name string) ([]byte, error) {
	r, err := rardecode.OpenReader(c.path)
	if err != nil {
		return nil, fmt.Errorf("open rar %s: %w", c.path, err)
	}
	defer r.Close()

	for {
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s in %s: %w", name, c.path, driven.ErrEntryNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("read rar %s: %w", c.path, err)
		}
		if hdr.Name != name {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read rar entry %s in %s: %w", name, c.path, err)
		}
		return data, nil
	}
}
