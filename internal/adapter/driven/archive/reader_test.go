package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// writeTestArchive lays down a cbz with the given entries in order.
func writeTestArchive(t *testing.T, name string, entries map[string][]byte, order []string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for _, entry := range order {
		ew, err := w.Create(entry)
		require.NoError(t, err)
		_, err = ew.Write(entries[entry])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	return path
}

func TestReader_Supports(t *testing.T) {
	r := NewReader()

	assert.True(t, r.Supports("issue.cbz"))
	assert.True(t, r.Supports("issue.CBZ"))
	assert.True(t, r.Supports("issue.zip"))
	assert.True(t, r.Supports("issue.cbr"))
	assert.True(t, r.Supports("issue.rar"))
	assert.False(t, r.Supports("issue.pdf"))
	assert.False(t, r.Supports("issue"))
}

func TestReader_ListEntriesKeepsArchiveOrder(t *testing.T) {
	path := writeTestArchive(t, "issue.cbz", map[string][]byte{
		"b.png":         []byte("bbb"),
		"a.jpg":         []byte("aaa"),
		"ComicInfo.xml": []byte("<ComicInfo/>"),
	}, []string{"b.png", "a.jpg", "ComicInfo.xml"})

	entries, err := NewReader().ListEntries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.png", "a.jpg", "ComicInfo.xml"}, entries)
}

func TestReader_ReadEntry(t *testing.T) {
	path := writeTestArchive(t, "issue.cbz", map[string][]byte{
		"a.jpg": []byte("aaa"),
		"b.png": []byte("bbb"),
	}, []string{"a.jpg", "b.png"})

	data, err := NewReader().ReadEntry(path, "b.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("bbb"), data)
}

func TestReader_ReadEntryMissing(t *testing.T) {
	path := writeTestArchive(t, "issue.cbz", map[string][]byte{
		"a.jpg": []byte("aaa"),
	}, []string{"a.jpg"})

	_, err := NewReader().ReadEntry(path, "nope.jpg")
	require.ErrorIs(t, err, driven.ErrEntryNotFound)
}

func TestReader_UnsupportedExtension(t *testing.T) {
	_, err := NewReader().ListEntries("issue.pdf")
	require.Error(t, err)

	_, err = NewReader().ReadEntry("issue.pdf", "a.jpg")
	require.Error(t, err)
}

func TestReader_CorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cbz")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := NewReader().ListEntries(path)
	require.Error(t, err)
}

func TestReader_CorruptRarArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cbr")
	require.NoError(t, os.WriteFile(path, []byte("not a rar"), 0o644))

	// The .cbr suffix must reach the rar container, which then fails to
	// open, rather than being rejected as an unknown format.
	_, err := NewReader().ListEntries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open rar")

	_, err = NewReader().ReadEntry(path, "p01.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open rar")
}

func TestReader_SupportedExtensionsAllDispatch(t *testing.T) {
	// Every extension Supports accepts must resolve to a container, so
	// files the scanner admits never bounce off the dispatch.
	r := NewReader()
	for _, name := range []string{"x.cbz", "x.zip", "x.cbr", "x.rar", "x.CBR"} {
		require.True(t, r.Supports(name))

		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))

		_, err := r.ListEntries(path)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "unsupported archive format")
	}
}
