package interfaces

import "context"

// CredentialVault converts plaintext credentials to recoverable ciphertext and back.
type CredentialVault interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertextHex string) (string, error)
	// Verify decrypts stored and compares it with candidate. Decryption failures are
	// returned as errors, never reported as a mismatch.
	Verify(ctx context.Context, candidate, stored string) (bool, error)
}

// UserDirectory owns identity records.
type UserDirectory interface {
	Exists(ctx context.Context, key UserKey) (bool, error)
	Register(ctx context.Context, key UserKey, credential string) error
	FindByName(ctx context.Context, key UserKey) (Identity, error)
	VerifyCredential(ctx context.Context, key UserKey, candidate string) (bool, error)
	GetScore(ctx context.Context, key UserKey) (uint32, error)
	AddScore(ctx context.Context, key UserKey, delta uint32) error
	Remove(ctx context.Context, key UserKey) error
}

// QuizEngine owns quiz items: random selection and grading.
type QuizEngine interface {
	PickRandom(ctx context.Context) (QuizItem, error)
	Grade(ctx context.Context, itemID int64, chosen int) (GradeResult, error)
	Insert(ctx context.Context, item QuizItem) (int64, error)
}

// Leaderboard mirrors identity totals for ranking. It is never the source of truth.
type Leaderboard interface {
	Update(ctx context.Context, key UserKey, total uint32) error
	Remove(ctx context.Context, key UserKey) error
	Top(ctx context.Context, n int) ([]LeaderboardEntry, error)
	// Rank returns the identity's 1-based rank, or 0 if it is not on the leaderboard.
	Rank(ctx context.Context, key UserKey) (int, error)
}
