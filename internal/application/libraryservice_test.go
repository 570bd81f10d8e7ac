package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comicserve/comicserve/internal/application"
	"github.com/comicserve/comicserve/internal/domain/model"
	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockIssueStore struct {
	issues  map[int64]*model.Issue
	upserts []model.Issue
	entries [][]string
	stale   map[string]bool

	analyzed int
}

func (m *mockIssueStore) Upsert(_ context.Context, issue model.Issue, entries []string) (int64, error) {
	m.upserts = append(m.upserts, issue)
	m.entries = append(m.entries, entries)
	return int64(len(m.upserts)), nil
}

func (m *mockIssueStore) NeedsReindex(_ context.Context, filepath string, _ time.Time) bool {
	if m.stale == nil {
		return true
	}
	return m.stale[filepath]
}

func (m *mockIssueStore) All(_ context.Context) ([]model.Issue, error)    { return nil, nil }
func (m *mockIssueStore) Recent(_ context.Context) ([]model.Issue, error) { return nil, nil }

func (m *mockIssueStore) Unread(_ context.Context, _ int64) ([]model.Issue, error) {
	return nil, nil
}

func (m *mockIssueStore) UnreadGroupedBySeries(_ context.Context, _ int64) ([]model.Group, error) {
	return nil, nil
}

func (m *mockIssueStore) ByPublisher(_ context.Context) ([]model.Group, error) { return nil, nil }

func (m *mockIssueStore) SeriesForPublisher(_ context.Context, _ string) ([]model.Group, error) {
	return nil, nil
}

func (m *mockIssueStore) IssuesForPublisherSeries(_ context.Context, _, _ string) ([]model.Issue, error) {
	return nil, nil
}

func (m *mockIssueStore) Get(_ context.Context, id int64) (*model.Issue, error) {
	return m.issues[id], nil
}

func (m *mockIssueStore) Search(_ context.Context, _ string) ([]model.Issue, error) {
	return nil, nil
}

func (m *mockIssueStore) Analyze(_ context.Context) error {
	m.analyzed++
	return nil
}

type mockPageStore struct {
	entries map[int64][]string
}

func (m *mockPageStore) EntriesForIssue(_ context.Context, issueID int64) ([]string, error) {
	return m.entries[issueID], nil
}

type readMark struct {
	IssueID int64
	UserID  int64
}

type mockUserStore struct {
	marks   []readMark
	markErr error
}

func (m *mockUserStore) VerifyOrCreate(_ context.Context, _, _ string) (int64, error) {
	return 1, nil
}

func (m *mockUserStore) Lookup(_ context.Context, _ string) (int64, error) {
	return 1, nil
}

func (m *mockUserStore) MarkRead(_ context.Context, issueID, userID int64) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.marks = append(m.marks, readMark{IssueID: issueID, UserID: userID})
	return nil
}

type mockArchiveReader struct {
	entries map[string][]string
	data    map[string][]byte
}

func (m *mockArchiveReader) Supports(path string) bool {
	_, ok := m.entries[path]
	return ok
}

func (m *mockArchiveReader) ListEntries(path string) ([]string, error) {
	entries, ok := m.entries[path]
	if !ok {
		return nil, errors.New("no such archive")
	}
	return entries, nil
}

func (m *mockArchiveReader) ReadEntry(path, name string) ([]byte, error) {
	data, ok := m.data[path+"!"+name]
	if !ok {
		return nil, driven.ErrEntryNotFound
	}
	return data, nil
}

// --- Tests ---

func libraryFixture() (*application.LibraryService, *mockUserStore) {
	issues := &mockIssueStore{issues: map[int64]*model.Issue{
		7: {ID: 7, Filepath: "/library/foo-1.cbz"},
	}}
	// Stored order is lexicographic; metadata sorts ahead of the images
	// and must be filtered out of the page sequence.
	pages := &mockPageStore{entries: map[int64][]string{
		7: {"ComicInfo.xml", "p01.jpg", "p02.jpg", "p03.png", "p04.jpg", "p05.gif"},
	}}
	users := &mockUserStore{}
	archive := &mockArchiveReader{data: map[string][]byte{
		"/library/foo-1.cbz!p01.jpg": []byte("page one"),
		"/library/foo-1.cbz!p03.png": []byte("page three"),
		"/library/foo-1.cbz!p04.jpg": []byte("page four"),
		"/library/foo-1.cbz!p05.gif": []byte("page five"),
	}}
	return application.NewLibraryService(issues, pages, users, archive), users
}

func TestLibraryService_GetPageSkipsNonImages(t *testing.T) {
	svc, _ := libraryFixture()

	name, data, err := svc.GetPage(context.Background(), 7, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "p01.jpg", name)
	assert.Equal(t, []byte("page one"), data)
}

func TestLibraryService_GetPageOutOfRange(t *testing.T) {
	svc, _ := libraryFixture()

	_, _, err := svc.GetPage(context.Background(), 7, 5, 1)
	require.ErrorIs(t, err, application.ErrNoSuchPage)

	_, _, err = svc.GetPage(context.Background(), 7, -1, 1)
	require.ErrorIs(t, err, application.ErrNoSuchPage)
}

func TestLibraryService_GetPageUnknownIssue(t *testing.T) {
	svc, _ := libraryFixture()

	_, _, err := svc.GetPage(context.Background(), 99, 0, 1)
	require.ErrorIs(t, err, application.ErrNoSuchPage)
}

func TestLibraryService_LastTwoPagesMarkRead(t *testing.T) {
	svc, users := libraryFixture()

	// Five images; index 2 is not yet in the final two.
	_, _, err := svc.GetPage(context.Background(), 7, 2, 1)
	require.NoError(t, err)
	assert.Empty(t, users.marks)

	_, _, err = svc.GetPage(context.Background(), 7, 3, 1)
	require.NoError(t, err)
	require.Len(t, users.marks, 1)
	assert.Equal(t, readMark{IssueID: 7, UserID: 1}, users.marks[0])

	_, _, err = svc.GetPage(context.Background(), 7, 4, 1)
	require.NoError(t, err)
	assert.Len(t, users.marks, 2)
}

func TestLibraryService_MarkReadFailureDoesNotFailPage(t *testing.T) {
	issues := &mockIssueStore{issues: map[int64]*model.Issue{
		7: {ID: 7, Filepath: "/library/foo-1.cbz"},
	}}
	pages := &mockPageStore{entries: map[int64][]string{7: {"p01.jpg"}}}
	users := &mockUserStore{markErr: errors.New("store down")}
	archive := &mockArchiveReader{data: map[string][]byte{
		"/library/foo-1.cbz!p01.jpg": []byte("page one"),
	}}
	svc := application.NewLibraryService(issues, pages, users, archive)

	name, data, err := svc.GetPage(context.Background(), 7, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "p01.jpg", name)
	assert.Equal(t, []byte("page one"), data)
}

func TestLibraryService_MarkRead(t *testing.T) {
	svc, users := libraryFixture()

	require.NoError(t, svc.MarkRead(context.Background(), 7, 1))
	require.Len(t, users.marks, 1)
	assert.Equal(t, readMark{IssueID: 7, UserID: 1}, users.marks[0])
}
