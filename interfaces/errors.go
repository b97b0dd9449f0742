package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyLoad is returned when key material is missing, unreadable or not a key of the expected kind.
	ErrKeyLoad = errors.New("key load error")
	// ErrKeyNotFound is returned by a key source when the referenced key material does not exist.
	ErrKeyNotFound = errors.New("key material not found")
	// ErrKeySourceUnavailable is returned when a key source cannot be reached.
	ErrKeySourceUnavailable = errors.New("key source unavailable")
	// ErrInvalidLocationURI is returned when a key location URI is invalid.
	ErrInvalidLocationURI = errors.New("invalid key location URI")

	// ErrCrypto covers encryption, decryption, padding and encoding failures.
	ErrCrypto = errors.New("crypto error")

	// ErrPoolInit is returned when the connection pool cannot open or initialize a connection.
	ErrPoolInit = errors.New("connection pool initialization failed")
	// ErrStore is a generic backing-store failure, including zero rows affected
	// by a write that should have affected one row.
	ErrStore = errors.New("store error")

	ErrInvalidUserKey  = errors.New("invalid user key")
	ErrDuplicateUser   = errors.New("user already exists")
	ErrNotFound        = errors.New("not found")
	ErrEmptyCatalog    = errors.New("quiz catalog is empty")
	ErrInvalidQuizItem = errors.New("invalid quiz item")

	ErrUnknownUser   = errors.New("unknown user")
	ErrBadCredential = errors.New("bad credential")
)

// AuthError is returned by the scoring coordinator when the caller could not be authenticated.
// Err is ErrUnknownUser or ErrBadCredential for ordinary rejections, or the underlying
// crypto/store error when authentication itself failed.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Rejected reports whether the caller was rejected (unknown user or bad credential)
// as opposed to authentication failing internally.
func (e *AuthError) Rejected() bool {
	return errors.Is(e.Err, ErrUnknownUser) || errors.Is(e.Err, ErrBadCredential)
}

// GradingError is returned by the scoring coordinator when grading or the ledger update failed.
type GradingError struct {
	Err error
}

func (e *GradingError) Error() string {
	return fmt.Sprintf("grading failed: %v", e.Err)
}

func (e *GradingError) Unwrap() error {
	return e.Err
}
