package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/comicserve/comicserve/internal/domain/model"
	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IssueStore = (*IssueRepo)(nil)

// IssueRepo is the SQLite implementation of the IssueStore port interface.
type IssueRepo struct {
	db *DB
}

// NewIssueRepo creates a new IssueRepo backed by the given DB.
func NewIssueRepo(db *DB) *IssueRepo {
	return &IssueRepo{db: db}
}

// issueColumns is the canonical select list shared by every issue query.
const issueColumns = `id, filepath, modified_at, size, comicvine_id, comicvine_url,
	series, issue_number, volume, title, summary, released_at,
	writer, penciller, inker, colorist, cover_artist, publisher, page_count`

// Upsert writes or overwrites the issue row keyed by filepath, then
// replaces the issue's page set and full-text row in the same
// transaction. The issue id is resolved by a follow-up select because the
// overwrite path of an upsert does not reliably report the existing
// row's id.
func (r *IssueRepo) Upsert(ctx context.Context, issue model.Issue, entries []string) (int64, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const upsertQuery = `
		INSERT INTO issues (
			filepath, modified_at, size, comicvine_id, comicvine_url,
			series, issue_number, volume, title, summary, released_at,
			writer, penciller, inker, colorist, cover_artist, publisher, page_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filepath) DO UPDATE SET
			modified_at = excluded.modified_at,
			size = excluded.size,
			comicvine_id = excluded.comicvine_id,
			comicvine_url = excluded.comicvine_url,
			series = excluded.series,
			issue_number = excluded.issue_number,
			volume = excluded.volume,
			title = excluded.title,
			summary = excluded.summary,
			released_at = excluded.released_at,
			writer = excluded.writer,
			penciller = excluded.penciller,
			inker = excluded.inker,
			colorist = excluded.colorist,
			cover_artist = excluded.cover_artist,
			publisher = excluded.publisher,
			page_count = excluded.page_count
	`

	var releasedAt any
	if issue.ReleasedAt != nil {
		releasedAt = issue.ReleasedAt.Format(dateLayout)
	}

	if _, err := tx.ExecContext(ctx, upsertQuery,
		issue.Filepath, formatTime(issue.ModifiedAt), issue.Size,
		issue.ComicvineID, issue.ComicvineURL,
		issue.Series, issue.IssueNumber, issue.Volume, issue.Title, issue.Summary,
		releasedAt,
		issue.Writer, issue.Penciller, issue.Inker, issue.Colorist,
		issue.CoverArtist, issue.Publisher, issue.PageCount,
	); err != nil {
		return 0, fmt.Errorf("upsert issue %s: %w", issue.Filepath, err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM issues WHERE filepath = ?`, issue.Filepath).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve issue id for %s: %w", issue.Filepath, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE issue_id = ?`, id); err != nil {
		return 0, fmt.Errorf("delete pages for issue %d: %w", id, err)
	}

	const insertPage = `INSERT OR IGNORE INTO pages (issue_id, entry_name) VALUES (?, ?)`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, insertPage, id, entry); err != nil {
			return 0, fmt.Errorf("insert page %s for issue %d: %w", entry, id, err)
		}
	}

	if issue.RawComicInfo != "" {
		const ftsQuery = `INSERT OR REPLACE INTO issue_fts (rowid, comicinfo) VALUES (?, ?)`
		if _, err := tx.ExecContext(ctx, ftsQuery, id, issue.RawComicInfo); err != nil {
			return 0, fmt.Errorf("index metadata for issue %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit issue %s: %w", issue.Filepath, err)
	}

	return id, nil
}

// NeedsReindex reports whether the file must be (re)indexed. Any store
// failure, including a missing row, counts as "needs reindex" -- failing
// open toward a re-scan is cheap, silently skipping new content is not.
func (r *IssueRepo) NeedsReindex(ctx context.Context, filepath string, modifiedAt time.Time) bool {
	const query = `SELECT modified_at FROM issues WHERE filepath = ?`

	var stored string
	if err := r.db.Reader.QueryRowContext(ctx, query, filepath).Scan(&stored); err != nil {
		return true
	}

	storedAt, err := parseTime(stored)
	if err != nil {
		return true
	}

	return storedAt.Before(modifiedAt)
}

// All returns every issue in the catalog as a flat list, ordered by
// filepath.
func (r *IssueRepo) All(ctx context.Context) ([]model.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues ORDER BY filepath`
	return r.queryIssues(ctx, query)
}

// Recent returns every issue ordered by modification time, newest first.
func (r *IssueRepo) Recent(ctx context.Context) ([]model.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues ORDER BY modified_at DESC`
	return r.queryIssues(ctx, query)
}

// Unread returns the issues with no read mark for the user, newest first.
func (r *IssueRepo) Unread(ctx context.Context, userID int64) ([]model.Issue, error) {
	query := `
		SELECT ` + issueColumns + `
		FROM issues
		WHERE id NOT IN (SELECT issue_id FROM read_marks WHERE user_id = ?)
		ORDER BY modified_at DESC
	`
	return r.queryIssues(ctx, query, userID)
}

// UnreadGroupedBySeries groups the user's unread issues by series. Issues
// without a series fall into the "None" group. Each group carries the most
// recent modification time among its issues; groups are ordered by key.
func (r *IssueRepo) UnreadGroupedBySeries(ctx context.Context, userID int64) ([]model.Group, error) {
	const query = `
		SELECT COALESCE(series, 'None') AS group_key, MAX(modified_at)
		FROM issues
		WHERE id NOT IN (SELECT issue_id FROM read_marks WHERE user_id = ?)
		GROUP BY group_key
		ORDER BY group_key
	`
	return r.queryGroups(ctx, query, userID)
}

// ByPublisher groups all issues by publisher, "None" for issues without
// one, ordered by publisher name.
func (r *IssueRepo) ByPublisher(ctx context.Context) ([]model.Group, error) {
	const query = `
		SELECT COALESCE(publisher, 'None') AS group_key, MAX(modified_at)
		FROM issues
		GROUP BY group_key
		ORDER BY group_key
	`
	return r.queryGroups(ctx, query)
}

// SeriesForPublisher groups a publisher's issues by series, ordered by
// series name. The publisher argument may be "None" to address issues
// without one.
func (r *IssueRepo) SeriesForPublisher(ctx context.Context, publisher string) ([]model.Group, error) {
	const query = `
		SELECT COALESCE(series, 'None') AS group_key, MAX(modified_at)
		FROM issues
		WHERE COALESCE(publisher, 'None') = ?
		GROUP BY group_key
		ORDER BY group_key
	`
	return r.queryGroups(ctx, query, publisher)
}

// IssuesForPublisherSeries returns one publisher's issues in one series,
// ordered by issue number then filepath.
func (r *IssueRepo) IssuesForPublisherSeries(ctx context.Context, publisher, series string) ([]model.Issue, error) {
	query := `
		SELECT ` + issueColumns + `
		FROM issues
		WHERE COALESCE(publisher, 'None') = ? AND COALESCE(series, 'None') = ?
		ORDER BY issue_number, filepath
	`
	return r.queryIssues(ctx, query, publisher, series)
}

// Get retrieves a single issue by id. Returns nil, nil if the issue does
// not exist.
func (r *IssueRepo) Get(ctx context.Context, id int64) (*model.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id = ?`

	issue, err := scanIssue(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get issue %d: %w", id, err)
	}

	return issue, nil
}

// Search runs an FTS5 match over the raw metadata documents and returns
// the owning issues, best match first.
func (r *IssueRepo) Search(ctx context.Context, query string) ([]model.Issue, error) {
	sqlQuery := `
		SELECT ` + prefixedIssueColumns("i") + `
		FROM issues i
		JOIN issue_fts ON issue_fts.rowid = i.id
		WHERE issue_fts MATCH ?
		ORDER BY rank
	`
	return r.queryIssues(ctx, sqlQuery, query)
}

// Analyze refreshes SQLite's query planner statistics. Called once after
// a full scan pass.
func (r *IssueRepo) Analyze(ctx context.Context) error {
	if _, err := r.db.Writer.ExecContext(ctx, `ANALYZE`); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return nil
}

func (r *IssueRepo) queryIssues(ctx context.Context, query string, args ...any) ([]model.Issue, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, *issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}

	return issues, nil
}

func (r *IssueRepo) queryGroups(ctx context.Context, query string, args ...any) ([]model.Group, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		var updatedAt string
		if err := rows.Scan(&g.Key, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}

		g.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse group updated_at: %w", err)
		}

		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	return groups, nil
}

func scanIssue(s scanner) (*model.Issue, error) {
	var issue model.Issue
	var modifiedAt string
	var comicvineID sql.NullInt64
	var issueNumber, volume, pageCount sql.NullInt64
	var comicvineURL, series, title, summary, releasedAt sql.NullString
	var writer, penciller, inker, colorist, coverArtist, publisher sql.NullString

	err := s.Scan(
		&issue.ID, &issue.Filepath, &modifiedAt, &issue.Size,
		&comicvineID, &comicvineURL,
		&series, &issueNumber, &volume, &title, &summary, &releasedAt,
		&writer, &penciller, &inker, &colorist, &coverArtist, &publisher, &pageCount,
	)
	if err != nil {
		return nil, err
	}

	issue.ModifiedAt, err = parseTime(modifiedAt)
	if err != nil {
		return nil, fmt.Errorf("parse modified_at: %w", err)
	}

	if comicvineID.Valid {
		issue.ComicvineID = &comicvineID.Int64
	}
	issue.ComicvineURL = nullString(comicvineURL)
	issue.Series = nullString(series)
	issue.IssueNumber = nullInt(issueNumber)
	issue.Volume = nullInt(volume)
	issue.Title = nullString(title)
	issue.Summary = nullString(summary)
	issue.Writer = nullString(writer)
	issue.Penciller = nullString(penciller)
	issue.Inker = nullString(inker)
	issue.Colorist = nullString(colorist)
	issue.CoverArtist = nullString(coverArtist)
	issue.Publisher = nullString(publisher)
	issue.PageCount = nullInt(pageCount)

	if releasedAt.Valid {
		released, err := time.Parse(dateLayout, releasedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse released_at: %w", err)
		}
		issue.ReleasedAt = &released
	}

	return &issue, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// prefixedIssueColumns qualifies the canonical column list with a table
// alias for queries that join.
func prefixedIssueColumns(alias string) string {
	return alias + ".id, " + alias + ".filepath, " + alias + ".modified_at, " + alias + ".size, " +
		alias + ".comicvine_id, " + alias + ".comicvine_url, " + alias + ".series, " +
		alias + ".issue_number, " + alias + ".volume, " + alias + ".title, " + alias + ".summary, " +
		alias + ".released_at, " + alias + ".writer, " + alias + ".penciller, " + alias + ".inker, " +
		alias + ".colorist, " + alias + ".cover_artist, " + alias + ".publisher, " + alias + ".page_count"
}
