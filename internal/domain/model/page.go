package model

// Page is one entry inside a comic archive, scoped to an Issue. The full
// entry listing is stored as scanned; filtering to image types happens on
// the page-read path, not at index time.
type Page struct {
	ID        int64
	IssueID   int64
	EntryName string
}
