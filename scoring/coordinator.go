package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/driving-tests-backend/interfaces"
)

// Profile is the public view of an identity.
type Profile struct {
	Name       string `json:"name"`
	SecondName string `json:"second_name"`
	Scores     uint32 `json:"scores"`
}

// Coordinator runs the authenticated flows over the user directory and the quiz engine.
type Coordinator struct {
	directory   interfaces.UserDirectory
	engine      interfaces.QuizEngine
	leaderboard interfaces.Leaderboard
	log         *slog.Logger
}

// NewCoordinator creates a coordinator without a leaderboard.
func NewCoordinator(directory interfaces.UserDirectory, engine interfaces.QuizEngine, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		directory: directory,
		engine:    engine,
		log:       log,
	}
}

// WithLeaderboard creates a new Coordinator that mirrors totals into lb after every credited answer.
func (c *Coordinator) WithLeaderboard(lb interfaces.Leaderboard) *Coordinator {
	return &Coordinator{
		directory:   c.directory,
		engine:      c.engine,
		leaderboard: lb,
		log:         c.log,
	}
}

// authenticate checks that key exists and credential matches it. Every failure
// is an *AuthError; failures of the check itself keep their kind (ErrCrypto,
// ErrStore, ...) as the wrapped error.
func (c *Coordinator) authenticate(ctx context.Context, key interfaces.UserKey, credential string) error {
	if err := ctx.Err(); err != nil {
		return &interfaces.AuthError{Err: err}
	}

	exists, err := c.directory.Exists(ctx, key)
	if err != nil {
		return &interfaces.AuthError{Err: err}
	}
	if !exists {
		return &interfaces.AuthError{Err: interfaces.ErrUnknownUser}
	}

	if err := ctx.Err(); err != nil {
		return &interfaces.AuthError{Err: err}
	}

	ok, err := c.directory.VerifyCredential(ctx, key, credential)
	if errors.Is(err, interfaces.ErrNotFound) {
		// Removed between the existence check and the lookup.
		return &interfaces.AuthError{Err: interfaces.ErrUnknownUser}
	}
	if err != nil {
		return &interfaces.AuthError{Err: err}
	}
	if !ok {
		return &interfaces.AuthError{Err: interfaces.ErrBadCredential}
	}
	return nil
}

// SubmitAnswer authenticates the caller, grades the answer and credits the
// awarded score. Failures before grading are *AuthError, later ones *GradingError.
// A score already credited is not rolled back if a later step fails.
func (c *Coordinator) SubmitAnswer(ctx context.Context, key interfaces.UserKey, credential string, itemID int64, chosen int) (interfaces.SubmissionOutcome, error) {
	if err := c.authenticate(ctx, key, credential); err != nil {
		return interfaces.SubmissionOutcome{}, err
	}

	if err := ctx.Err(); err != nil {
		return interfaces.SubmissionOutcome{}, &interfaces.GradingError{Err: err}
	}

	result, err := c.engine.Grade(ctx, itemID, chosen)
	if err != nil {
		return interfaces.SubmissionOutcome{}, &interfaces.GradingError{Err: err}
	}

	if result.Correct && result.Awarded > 0 {
		if err := ctx.Err(); err != nil {
			return interfaces.SubmissionOutcome{}, &interfaces.GradingError{Err: err}
		}
		if err := c.directory.AddScore(ctx, key, result.Awarded); err != nil {
			return interfaces.SubmissionOutcome{}, &interfaces.GradingError{Err: err}
		}
	}

	total, err := c.directory.GetScore(ctx, key)
	if err != nil {
		return interfaces.SubmissionOutcome{}, &interfaces.GradingError{Err: err}
	}

	c.log.Debug("Graded submission",
		slog.String("user", key.String()),
		slog.Int64("item_id", itemID),
		slog.Bool("correct", result.Correct),
		slog.Any("awarded", result.Awarded),
		slog.Any("total", total))

	if result.Correct {
		c.mirrorTotal(ctx, key, total)
	}

	return interfaces.SubmissionOutcome{
		Correct:      result.Correct,
		AwardedScore: result.Awarded,
		TotalScore:   total,
	}, nil
}

func (c *Coordinator) mirrorTotal(ctx context.Context, key interfaces.UserKey, total uint32) {
	if c.leaderboard == nil {
		return
	}
	if err := c.leaderboard.Update(context.WithoutCancel(ctx), key, total); err != nil {
		c.log.Warn("Failed to update leaderboard", slog.String("user", key.String()), "err", err)
	}
}

// SignUp registers a new identity with a zero score.
func (c *Coordinator) SignUp(ctx context.Context, key interfaces.UserKey, credential string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	if err := c.directory.Register(ctx, key, credential); err != nil {
		return Profile{}, err
	}
	return Profile{Name: key.Name, SecondName: key.SecondName, Scores: 0}, nil
}

// SignIn authenticates the caller and returns their profile.
func (c *Coordinator) SignIn(ctx context.Context, key interfaces.UserKey, credential string) (Profile, error) {
	if err := c.authenticate(ctx, key, credential); err != nil {
		return Profile{}, err
	}

	score, err := c.directory.GetScore(ctx, key)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Name: key.Name, SecondName: key.SecondName, Scores: score}, nil
}

// DeleteAccount authenticates the caller and removes their identity.
func (c *Coordinator) DeleteAccount(ctx context.Context, key interfaces.UserKey, credential string) error {
	if err := c.authenticate(ctx, key, credential); err != nil {
		return err
	}

	if err := c.directory.Remove(ctx, key); err != nil {
		return err
	}

	if c.leaderboard != nil {
		if err := c.leaderboard.Remove(context.WithoutCancel(ctx), key); err != nil {
			c.log.Warn("Failed to remove from leaderboard", slog.String("user", key.String()), "err", err)
		}
	}
	return nil
}

// NextItem returns a random quiz item.
func (c *Coordinator) NextItem(ctx context.Context) (interfaces.QuizItem, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.QuizItem{}, err
	}
	return c.engine.PickRandom(ctx)
}

// CheckAnswer grades an answer without crediting anyone.
func (c *Coordinator) CheckAnswer(ctx context.Context, itemID int64, chosen int) (interfaces.GradeResult, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.GradeResult{}, &interfaces.GradingError{Err: err}
	}
	result, err := c.engine.Grade(ctx, itemID, chosen)
	if err != nil {
		return interfaces.GradeResult{}, &interfaces.GradingError{Err: err}
	}
	return result, nil
}

// Leaderboard returns the top n identities. Returns ErrNotFound if no leaderboard is configured.
func (c *Coordinator) Leaderboard(ctx context.Context, n int) ([]interfaces.LeaderboardEntry, error) {
	if c.leaderboard == nil {
		return nil, fmt.Errorf("%w: leaderboard not configured", interfaces.ErrNotFound)
	}
	return c.leaderboard.Top(ctx, n)
}

// Standing authenticates the caller and returns their leaderboard entry. The
// score comes from the directory; Rank is 0 if the mirror has not ranked them yet.
// Returns ErrNotFound if no leaderboard is configured.
func (c *Coordinator) Standing(ctx context.Context, key interfaces.UserKey, credential string) (interfaces.LeaderboardEntry, error) {
	if c.leaderboard == nil {
		return interfaces.LeaderboardEntry{}, fmt.Errorf("%w: leaderboard not configured", interfaces.ErrNotFound)
	}
	if err := c.authenticate(ctx, key, credential); err != nil {
		return interfaces.LeaderboardEntry{}, err
	}

	score, err := c.directory.GetScore(ctx, key)
	if err != nil {
		return interfaces.LeaderboardEntry{}, err
	}

	rank, err := c.leaderboard.Rank(ctx, key)
	if err != nil {
		return interfaces.LeaderboardEntry{}, err
	}
	return interfaces.LeaderboardEntry{Rank: rank, User: key, Score: score}, nil
}
