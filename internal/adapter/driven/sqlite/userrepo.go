package sqlite

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// Argon2id parameters for credential digests.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserStore port interface.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// VerifyOrCreate authenticates a username/secret pair. An unknown
// username is provisioned with a fresh random salt and its new id is
// returned, so the first attempt for any username always succeeds. For a
// known username the derived digest is compared in constant time; a
// mismatch returns driven.NoUser with a nil error, keeping "wrong
// password" distinct from "store failure".
func (r *UserRepo) VerifyOrCreate(ctx context.Context, username, secret string) (int64, error) {
	const query = `SELECT id, salt, password FROM users WHERE username = ?`

	var id int64
	var salt, stored []byte
	err := r.db.Reader.QueryRowContext(ctx, query, username).Scan(&id, &salt, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return r.create(ctx, username, secret)
	}
	if err != nil {
		return driven.NoUser, fmt.Errorf("look up user %q: %w", username, err)
	}

	digest := deriveKey(secret, salt)
	if subtle.ConstantTimeCompare(digest, stored) != 1 {
		return driven.NoUser, nil
	}

	return id, nil
}

// Lookup returns the id for a username, driven.NoUser when no account
// exists. Never provisions.
func (r *UserRepo) Lookup(ctx context.Context, username string) (int64, error) {
	const query = `SELECT id FROM users WHERE username = ?`

	var id int64
	err := r.db.Reader.QueryRowContext(ctx, query, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return driven.NoUser, nil
	}
	if err != nil {
		return driven.NoUser, fmt.Errorf("look up user %q: %w", username, err)
	}

	return id, nil
}

// MarkRead records that the user has read the issue now, replacing the
// timestamp of any existing mark.
func (r *UserRepo) MarkRead(ctx context.Context, issueID, userID int64) error {
	const query = `
		INSERT INTO read_marks (user_id, issue_id, read_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, issue_id) DO UPDATE SET read_at = excluded.read_at
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, userID, issueID, formatTime(time.Now())); err != nil {
		return fmt.Errorf("mark issue %d read for user %d: %w", issueID, userID, err)
	}

	return nil
}

func (r *UserRepo) create(ctx context.Context, username, secret string) (int64, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return driven.NoUser, fmt.Errorf("generate salt: %w", err)
	}

	const query = `INSERT INTO users (username, salt, password) VALUES (?, ?, ?)`
	res, err := r.db.Writer.ExecContext(ctx, query, username, salt, deriveKey(secret, salt))
	if err != nil {
		return driven.NoUser, fmt.Errorf("create user %q: %w", username, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return driven.NoUser, fmt.Errorf("resolve id for user %q: %w", username, err)
	}

	return id, nil
}

func deriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}
