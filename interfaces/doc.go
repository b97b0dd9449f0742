// Package interfaces defines core interfaces and types for the driving-tests
// quiz backend, separating interface definitions from implementations.
//
// The package provides interfaces for the key components of the system:
//
// # Key Material
//
// KeySource: Reads PEM-encoded key material from a location (file, S3, Vault, IPFS).
//
// KeyStore: Supplies the RSA key pair used to protect credentials.
//
// # Credentials and Identities
//
// CredentialVault: Encrypts credentials into recoverable hex ciphertext and verifies
// candidates by decrypt-then-compare.
//
// UserDirectory: Owns identity records (existence, registration, lookup, score ledger).
//
// # Quiz
//
// QuizEngine: Owns quiz items, random selection and grading.
//
// Leaderboard: Optional mirror of identity totals used for ranking.
//
// # Errors
//
// Error kinds are exported sentinels (ErrKeyLoad, ErrCrypto, ErrPoolInit, ErrStore,
// ErrDuplicateUser, ErrNotFound, ErrEmptyCatalog, ...) matched with errors.Is.
// The scoring coordinator wraps failures in *AuthError or *GradingError so the
// HTTP layer can pick a status code from the error kind alone.
package interfaces
