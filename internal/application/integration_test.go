package application_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comicserve/comicserve/internal/adapter/driven/archive"
	"github.com/comicserve/comicserve/internal/adapter/driven/sqlite"
	"github.com/comicserve/comicserve/internal/application"
	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// newCatalog opens a migrated file-backed catalog in a temp directory.
func newCatalog(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlite.RunMigrations(db.Writer))
	return db
}

// TestScanToPageDelivery runs the full loop: index a five-page archive
// off disk, query the grouped catalog for a fresh user, deliver pages,
// and observe the read mark from reaching the end of the book.
func TestScanToPageDelivery(t *testing.T) {
	ctx := context.Background()

	library := t.TempDir()
	bookPath := filepath.Join(library, "foo-1.cbz")
	writeCbz(t, bookPath, map[string][]byte{
		"p01.jpg":       []byte("one"),
		"p02.jpg":       []byte("two"),
		"p03.jpg":       []byte("three"),
		"p04.jpg":       []byte("four"),
		"p05.jpg":       []byte("five"),
		"ComicInfo.xml": []byte(fooComicInfo),
	})

	db := newCatalog(t)
	issues := sqlite.NewIssueRepo(db)
	pages := sqlite.NewPageRepo(db)
	users := sqlite.NewUserRepo(db)
	reader := archive.NewReader()

	require.NoError(t, application.NewScanService(issues, reader).Run(ctx, library))

	userID, err := users.VerifyOrCreate(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.NotEqual(t, driven.NoUser, userID)

	groups, err := issues.UnreadGroupedBySeries(ctx, userID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Foo", groups[0].Key)

	stat, err := os.Stat(bookPath)
	require.NoError(t, err)
	assert.WithinDuration(t, stat.ModTime(), groups[0].UpdatedAt, time.Second)

	all, err := issues.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].ReleasedAt)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *all[0].ReleasedAt)

	svc := application.NewLibraryService(issues, pages, users, reader)

	// First page serves without touching read state.
	name, data, err := svc.GetPage(ctx, all[0].ID, 0, userID)
	require.NoError(t, err)
	assert.Equal(t, "p01.jpg", name)
	assert.Equal(t, []byte("one"), data)

	unread, err := issues.Unread(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	// Reaching the last page marks the book read.
	name, data, err = svc.GetPage(ctx, all[0].ID, 4, userID)
	require.NoError(t, err)
	assert.Equal(t, "p05.jpg", name)
	assert.Equal(t, []byte("five"), data)

	unread, err = issues.Unread(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// A second pass over an unchanged library rewrites nothing.
	assert.False(t, issues.NeedsReindex(ctx, bookPath, stat.ModTime()))
}

// TestPageSequenceExcludesNonImages indexes an archive whose physical
// order differs from name order and checks the exposed page sequence.
func TestPageSequenceExcludesNonImages(t *testing.T) {
	ctx := context.Background()

	library := t.TempDir()
	writeCbz(t, filepath.Join(library, "mixed.cbz"), map[string][]byte{
		"b.png":         []byte("bee"),
		"a.jpg":         []byte("ay"),
		"ComicInfo.xml": []byte("<ComicInfo/>"),
	})

	db := newCatalog(t)
	issues := sqlite.NewIssueRepo(db)
	pages := sqlite.NewPageRepo(db)
	users := sqlite.NewUserRepo(db)
	reader := archive.NewReader()

	require.NoError(t, application.NewScanService(issues, reader).Run(ctx, library))

	all, err := issues.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	svc := application.NewLibraryService(issues, pages, users, reader)

	name, _, err := svc.GetPage(ctx, all[0].ID, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", name)

	name, _, err = svc.GetPage(ctx, all[0].ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "b.png", name)

	_, _, err = svc.GetPage(ctx, all[0].ID, 2, 1)
	require.ErrorIs(t, err, application.ErrNoSuchPage)
}
