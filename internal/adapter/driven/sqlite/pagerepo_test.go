package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRepo_EntriesAreSortedByName(t *testing.T) {
	db := setupTestDB(t)
	issues := NewIssueRepo(db)
	pages := NewPageRepo(db)
	ctx := context.Background()

	// Stored in archive physical order; read back in entry-name order.
	id, err := issues.Upsert(ctx,
		makeIssue("/comics/scrambled.cbz", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		[]string{"b.png", "a.jpg", "ComicInfo.xml"},
	)
	require.NoError(t, err)

	entries, err := pages.EntriesForIssue(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"ComicInfo.xml", "a.jpg", "b.png"}, entries)
}

func TestPageRepo_EmptyIssue(t *testing.T) {
	db := setupTestDB(t)
	issues := NewIssueRepo(db)
	pages := NewPageRepo(db)
	ctx := context.Background()

	id, err := issues.Upsert(ctx, makeIssue("/comics/empty.cbz", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)), nil)
	require.NoError(t, err)

	entries, err := pages.EntriesForIssue(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
