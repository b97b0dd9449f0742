package interfaces

import (
	"fmt"
	"strings"
)

// UserKey is the natural key of an identity: the (name, second name) pair.
type UserKey struct {
	Name       string `json:"name"`
	SecondName string `json:"second_name"`
}

// NewUserKey creates a user key, trimming surrounding whitespace from both parts.
func NewUserKey(name, secondName string) UserKey {
	return UserKey{
		Name:       strings.TrimSpace(name),
		SecondName: strings.TrimSpace(secondName),
	}
}

// Validate checks that both parts of the key are present.
func (k UserKey) Validate() error {
	if k.Name == "" || k.SecondName == "" {
		return fmt.Errorf("%w: name and second name are required", ErrInvalidUserKey)
	}
	return nil
}

// String returns the key in "name second_name" form for display and logging.
// Distinct keys may share a String form; it is not an identifier.
func (k UserKey) String() string {
	return k.Name + " " + k.SecondName
}

// Identity is a registered user record.
// Credential holds the hex-encoded ciphertext, never the plaintext.
type Identity struct {
	ID         int64
	Name       string
	SecondName string
	Credential string
	Score      uint32
}

// Key returns the natural key of the identity.
func (i Identity) Key() UserKey {
	return UserKey{Name: i.Name, SecondName: i.SecondName}
}

// Difficulty is the level of a quiz item. Stored as the item's level column.
type Difficulty int

const (
	DifficultyLow    Difficulty = 1
	DifficultyMedium Difficulty = 2
	DifficultyHigh   Difficulty = 3
)

// Score returns the number of points awarded for a correct answer at this difficulty.
// Unknown difficulties award nothing.
func (d Difficulty) Score() uint32 {
	switch d {
	case DifficultyLow:
		return 1
	case DifficultyMedium:
		return 3
	case DifficultyHigh:
		return 5
	default:
		return 0
	}
}

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	return d == DifficultyLow || d == DifficultyMedium || d == DifficultyHigh
}

// String returns the difficulty name.
func (d Difficulty) String() string {
	switch d {
	case DifficultyLow:
		return "low"
	case DifficultyMedium:
		return "medium"
	case DifficultyHigh:
		return "high"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

// ParseDifficulty accepts a difficulty name ("low", "medium", "high") or its level ("1", "2", "3").
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "1":
		return DifficultyLow, nil
	case "medium", "2":
		return DifficultyMedium, nil
	case "high", "3":
		return DifficultyHigh, nil
	default:
		return 0, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidQuizItem, s)
	}
}

// QuizItem is one multiple-choice question.
// Choices are ordered; the index of a choice is its id.
type QuizItem struct {
	ID            int64
	Difficulty    Difficulty
	Prompt        string
	Choices       []string
	CorrectChoice int
	Media         []byte
}

// Validate checks the invariants a quiz item must satisfy before it is stored.
func (q QuizItem) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidQuizItem)
	}
	if len(q.Choices) < 2 {
		return fmt.Errorf("%w: need at least 2 choices, got %d", ErrInvalidQuizItem, len(q.Choices))
	}
	if q.CorrectChoice < 0 || q.CorrectChoice >= len(q.Choices) {
		return fmt.Errorf("%w: correct choice %d out of range [0, %d)", ErrInvalidQuizItem, q.CorrectChoice, len(q.Choices))
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %d", ErrInvalidQuizItem, int(q.Difficulty))
	}
	return nil
}

// GradeResult is the outcome of grading a single answer.
type GradeResult struct {
	Correct bool
	Awarded uint32
}

// SubmissionOutcome is the canonical result of an authenticated answer submission.
type SubmissionOutcome struct {
	Correct      bool   `json:"correct"`
	AwardedScore uint32 `json:"awarded_score"`
	TotalScore   uint32 `json:"total_score"`
}

// LeaderboardEntry is one row of the score leaderboard. Rank is 1-based;
// zero means the identity is not ranked.
type LeaderboardEntry struct {
	Rank  int     `json:"rank"`
	User  UserKey `json:"user"`
	Score uint32  `json:"score"`
}
