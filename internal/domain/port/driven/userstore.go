package driven

import "context"

// NoUser is the sentinel id returned by VerifyOrCreate when the username
// exists but the secret does not match. It is deliberately not an error:
// a mismatch is an expected outcome the auth boundary maps to 401, while
// an error means the store itself failed.
const NoUser int64 = 0

// UserStore defines the driven port for user accounts and read marks.
type UserStore interface {
	// VerifyOrCreate authenticates username with secret. An unknown
	// username is provisioned on the spot with a fresh random salt and
	// its new id returned, so the first attempt for any username always
	// succeeds. For a known username the derived digest is compared to
	// the stored one; NoUser is returned on mismatch.
	VerifyOrCreate(ctx context.Context, username, secret string) (int64, error)

	// Lookup returns the id of an existing username, or NoUser when no
	// such account exists. Unlike VerifyOrCreate it never provisions.
	Lookup(ctx context.Context, username string) (int64, error)

	// MarkRead records that the user has read the issue, replacing the
	// timestamp of any existing mark.
	MarkRead(ctx context.Context, issueID, userID int64) error
}
