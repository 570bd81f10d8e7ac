package driven

import (
	"context"
	"time"

	"github.com/comicserve/comicserve/internal/domain/model"
)

// IssueStore defines the driven port for issue persistence and the
// read-only catalog projections built on top of it.
type IssueStore interface {
	// Upsert writes or overwrites the issue row keyed by filepath,
	// replaces the full page set for the issue with entries, and
	// refreshes the full-text row when the issue carries a raw metadata
	// document. Returns the issue's durable id.
	Upsert(ctx context.Context, issue model.Issue, entries []string) (int64, error)

	// NeedsReindex reports whether the file at filepath must be
	// (re)indexed: no row exists, or the stored modification time is
	// strictly older than modifiedAt. Store failures count as "needs
	// reindex" so new content is never silently skipped.
	NeedsReindex(ctx context.Context, filepath string, modifiedAt time.Time) bool

	All(ctx context.Context) ([]model.Issue, error)
	Recent(ctx context.Context) ([]model.Issue, error)
	Unread(ctx context.Context, userID int64) ([]model.Issue, error)
	UnreadGroupedBySeries(ctx context.Context, userID int64) ([]model.Group, error)
	ByPublisher(ctx context.Context) ([]model.Group, error)
	SeriesForPublisher(ctx context.Context, publisher string) ([]model.Group, error)
	IssuesForPublisherSeries(ctx context.Context, publisher, series string) ([]model.Issue, error)

	// Get retrieves a single issue by id. Returns nil, nil if the issue
	// does not exist.
	Get(ctx context.Context, id int64) (*model.Issue, error)

	// Search runs a full-text query over the raw metadata documents.
	Search(ctx context.Context, query string) ([]model.Issue, error)

	// Analyze refreshes the query planner's statistics. A maintenance
	// hint after a full scan pass, not a correctness requirement.
	Analyze(ctx context.Context) error
}
