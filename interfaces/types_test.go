package interfaces

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDifficulty(t *testing.T) {
	tests := []struct {
		input    string
		expected Difficulty
		score    uint32
	}{
		{"low", DifficultyLow, 1},
		{"1", DifficultyLow, 1},
		{" Medium ", DifficultyMedium, 3},
		{"2", DifficultyMedium, 3},
		{"HIGH", DifficultyHigh, 5},
		{"3", DifficultyHigh, 5},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDifficulty(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
			assert.Equal(t, tt.score, d.Score())
			assert.True(t, d.Valid())
		})
	}

	_, err := ParseDifficulty("extreme")
	assert.ErrorIs(t, err, ErrInvalidQuizItem)

	assert.Zero(t, Difficulty(7).Score())
	assert.False(t, Difficulty(0).Valid())
	assert.Equal(t, "difficulty(7)", Difficulty(7).String())
}

func TestQuizItem_Validate(t *testing.T) {
	valid := QuizItem{
		Difficulty:    DifficultyHigh,
		Prompt:        "Which lane is for overtaking?",
		Choices:       []string{"left", "right", "either"},
		CorrectChoice: 2,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(q *QuizItem)
	}{
		{"blank prompt", func(q *QuizItem) { q.Prompt = "  " }},
		{"one choice", func(q *QuizItem) { q.Choices = []string{"left"} }},
		{"negative correct choice", func(q *QuizItem) { q.CorrectChoice = -1 }},
		{"correct choice out of range", func(q *QuizItem) { q.CorrectChoice = 3 }},
		{"unknown difficulty", func(q *QuizItem) { q.Difficulty = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := valid
			item.Choices = append([]string(nil), valid.Choices...)
			tt.mutate(&item)
			assert.ErrorIs(t, item.Validate(), ErrInvalidQuizItem)
		})
	}
}

func TestUserKey(t *testing.T) {
	key := NewUserKey("  Alice ", "Smith\n")
	assert.Equal(t, UserKey{Name: "Alice", SecondName: "Smith"}, key)
	assert.Equal(t, "Alice Smith", key.String())
	assert.NoError(t, key.Validate())

	assert.ErrorIs(t, NewUserKey("Alice", " ").Validate(), ErrInvalidUserKey)
	assert.ErrorIs(t, NewUserKey("", "Smith").Validate(), ErrInvalidUserKey)

	identity := Identity{ID: 1, Name: "Alice", SecondName: "Smith"}
	assert.Equal(t, key, identity.Key())
}

func TestAuthError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		rejected bool
	}{
		{"unknown user", ErrUnknownUser, true},
		{"bad credential", ErrBadCredential, true},
		{"wrapped rejection", fmt.Errorf("lookup: %w", ErrBadCredential), true},
		{"crypto failure", fmt.Errorf("%w: decryption failed", ErrCrypto), false},
		{"store failure", errors.New("disk full"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error = &AuthError{Err: tt.err}

			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.rejected, authErr.Rejected())
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), "authentication failed")
		})
	}

	var err error = &GradingError{Err: ErrNotFound}
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "grading failed")
}
