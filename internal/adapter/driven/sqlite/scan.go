package sqlite

import (
	"fmt"
	"time"
)

// scanner abstracts over *sql.Row and *sql.Rows so each row shape needs
// only one scan function.
type scanner interface {
	Scan(dest ...any) error
}

// timeLayout is the storage format for timestamps. The fractional part is
// zero-padded to a fixed width so lexicographic comparison and MAX() in
// SQL agree with chronological order, and mtime round-trips keep full
// nanosecond precision for the strictly-older reindex check.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// dateLayout is the storage format for release dates.
const dateLayout = "2006-01-02"

// formatTime renders a timestamp for storage, normalized to UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime tries the storage layout plus the common SQLite datetime
// formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
