package driven

import "context"

// PageStore defines the driven port for reading an issue's stored page
// entries.
type PageStore interface {
	// EntriesForIssue returns all stored entry names for the issue,
	// ordered lexicographically by entry name. This ordering is the
	// canonical page order, independent of archive physical order.
	EntriesForIssue(ctx context.Context, issueID int64) ([]string, error)
}
