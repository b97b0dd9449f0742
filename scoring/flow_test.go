package scoring

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ruteri/driving-tests-backend/cryptoutils"
	"github.com/ruteri/driving-tests-backend/database"
	"github.com/ruteri/driving-tests-backend/directory"
	"github.com/ruteri/driving-tests-backend/interfaces"
	"github.com/ruteri/driving-tests-backend/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pemSource struct{ data []byte }

func (s pemSource) Fetch(ctx context.Context) ([]byte, error) { return s.data, nil }
func (s pemSource) Available(ctx context.Context) bool       { return true }
func (s pemSource) Name() string                             { return "test" }
func (s pemSource) LocationURI() string                      { return "test:" }

type flowFixture struct {
	coordinator *Coordinator
	engine      *quiz.Engine
	directory   *directory.Directory
}

func newFlowFixture(t *testing.T) flowFixture {
	t.Helper()
	pubPEM, privPEM, err := cryptoutils.GenerateKeyPairPEM(cryptoutils.DefaultKeyBits)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool, err := database.Open(database.DefaultConfig(filepath.Join(t.TempDir(), "quiz.db")), logger)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	vault := cryptoutils.NewVault(cryptoutils.NewKeyStore(pemSource{pubPEM}, pemSource{privPEM}, logger), logger)
	dir := directory.NewDirectory(pool, vault, logger)
	engine := quiz.NewEngine(pool, logger)

	return flowFixture{
		coordinator: NewCoordinator(dir, engine, logger),
		engine:      engine,
		directory:   dir,
	}
}

func (f flowFixture) insert(t *testing.T, difficulty interfaces.Difficulty, correct int) int64 {
	t.Helper()
	id, err := f.engine.Insert(context.Background(), interfaces.QuizItem{
		Difficulty:    difficulty,
		Prompt:        "Which sign means stop?",
		Choices:       []string{"red octagon", "yellow triangle", "blue circle"},
		CorrectChoice: correct,
	})
	require.NoError(t, err)
	return id
}

func TestFlow_SubmitAnswers(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	alice := interfaces.NewUserKey("Alice", "Smith")

	medium := f.insert(t, interfaces.DifficultyMedium, 1)
	low := f.insert(t, interfaces.DifficultyLow, 0)

	profile, err := f.coordinator.SignUp(ctx, alice, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), profile.Scores)

	outcome, err := f.coordinator.SubmitAnswer(ctx, alice, "s3cret", medium, 1)
	require.NoError(t, err)
	assert.Equal(t, interfaces.SubmissionOutcome{Correct: true, AwardedScore: 3, TotalScore: 3}, outcome)

	outcome, err = f.coordinator.SubmitAnswer(ctx, alice, "s3cret", low, 2)
	require.NoError(t, err)
	assert.Equal(t, interfaces.SubmissionOutcome{Correct: false, AwardedScore: 0, TotalScore: 3}, outcome)

	profile, err = f.coordinator.SignIn(ctx, alice, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, Profile{Name: "Alice", SecondName: "Smith", Scores: 3}, profile)
}

func TestFlow_Rejections(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	alice := interfaces.NewUserKey("Alice", "Smith")
	item := f.insert(t, interfaces.DifficultyHigh, 0)

	_, err := f.coordinator.SignUp(ctx, alice, "s3cret")
	require.NoError(t, err)

	var authErr *interfaces.AuthError

	_, err = f.coordinator.SubmitAnswer(ctx, interfaces.NewUserKey("Bob", "Jones"), "s3cret", item, 0)
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, interfaces.ErrUnknownUser)

	_, err = f.coordinator.SubmitAnswer(ctx, alice, "wrong", item, 0)
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, interfaces.ErrBadCredential)

	var gradingErr *interfaces.GradingError
	_, err = f.coordinator.SubmitAnswer(ctx, alice, "s3cret", item+100, 0)
	require.ErrorAs(t, err, &gradingErr)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	score, err := f.directory.GetScore(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, score)

	_, err = f.coordinator.SignUp(ctx, alice, "other")
	assert.ErrorIs(t, err, interfaces.ErrDuplicateUser)

	require.NoError(t, f.coordinator.DeleteAccount(ctx, alice, "s3cret"))
	_, err = f.coordinator.SignIn(ctx, alice, "s3cret")
	assert.ErrorIs(t, err, interfaces.ErrUnknownUser)
}

func TestFlow_NextItem(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	_, err := f.coordinator.NextItem(ctx)
	assert.ErrorIs(t, err, interfaces.ErrEmptyCatalog)

	id := f.insert(t, interfaces.DifficultyLow, 2)
	item, err := f.coordinator.NextItem(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, item.ID)
	assert.Equal(t, 2, item.CorrectChoice)
}
