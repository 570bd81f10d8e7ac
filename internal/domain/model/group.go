package model

import "time"

// NoGroup is the group key used when the underlying field (series,
// publisher) is absent from an issue's metadata.
const NoGroup = "None"

// Group is one row of a grouping query: the group key (series or publisher
// name) and the most recent modification time among the group's issues.
type Group struct {
	Key       string
	UpdatedAt time.Time
}
