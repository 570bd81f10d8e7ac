package model

import "time"

// User is a reader account. Accounts are provisioned lazily on first
// authentication for an unseen username and never deleted.
type User struct {
	ID       int64
	Username string
	Salt     []byte
	Password []byte // Keyed-hash digest, never the plaintext secret.
}

// ReadMark records that a user has read an issue. Presence means "read";
// at most one mark exists per (user, issue) pair.
type ReadMark struct {
	UserID  int64
	IssueID int64
	ReadAt  time.Time
}
