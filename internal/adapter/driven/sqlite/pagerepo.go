package sqlite

import (
	"context"
	"fmt"

	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PageStore = (*PageRepo)(nil)

// PageRepo is the SQLite implementation of the PageStore port interface.
// Page rows are written only through IssueRepo.Upsert, which replaces an
// issue's full page set; this repo is the read side.
type PageRepo struct {
	db *DB
}

// NewPageRepo creates a new PageRepo backed by the given DB.
func NewPageRepo(db *DB) *PageRepo {
	return &PageRepo{db: db}
}

// EntriesForIssue returns the issue's stored entry names ordered
// lexicographically by entry name. This ordering, not the archive's
// physical order, is the canonical page order.
func (r *PageRepo) EntriesForIssue(ctx context.Context, issueID int64) ([]string, error) {
	const query = `SELECT entry_name FROM pages WHERE issue_id = ? ORDER BY entry_name`

	rows, err := r.db.Reader.QueryContext(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("query pages for issue %d: %w", issueID, err)
	}
	defer rows.Close()

	var entries []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		entries = append(entries, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}

	return entries, nil
}
