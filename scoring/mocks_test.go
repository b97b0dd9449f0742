package scoring

import (
	"context"

	"github.com/ruteri/driving-tests-backend/interfaces"
	"github.com/stretchr/testify/mock"
)

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Exists(ctx context.Context, key interfaces.UserKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) Register(ctx context.Context, key interfaces.UserKey, credential string) error {
	args := m.Called(ctx, key, credential)
	return args.Error(0)
}

func (m *MockDirectory) FindByName(ctx context.Context, key interfaces.UserKey) (interfaces.Identity, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(interfaces.Identity), args.Error(1)
}

func (m *MockDirectory) VerifyCredential(ctx context.Context, key interfaces.UserKey, candidate string) (bool, error) {
	args := m.Called(ctx, key, candidate)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) GetScore(ctx context.Context, key interfaces.UserKey) (uint32, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *MockDirectory) AddScore(ctx context.Context, key interfaces.UserKey, delta uint32) error {
	args := m.Called(ctx, key, delta)
	return args.Error(0)
}

func (m *MockDirectory) Remove(ctx context.Context, key interfaces.UserKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) PickRandom(ctx context.Context) (interfaces.QuizItem, error) {
	args := m.Called(ctx)
	return args.Get(0).(interfaces.QuizItem), args.Error(1)
}

func (m *MockEngine) Grade(ctx context.Context, itemID int64, chosen int) (interfaces.GradeResult, error) {
	args := m.Called(ctx, itemID, chosen)
	return args.Get(0).(interfaces.GradeResult), args.Error(1)
}

func (m *MockEngine) Insert(ctx context.Context, item interfaces.QuizItem) (int64, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(int64), args.Error(1)
}

type MockLeaderboard struct {
	mock.Mock
}

func (m *MockLeaderboard) Update(ctx context.Context, key interfaces.UserKey, total uint32) error {
	args := m.Called(ctx, key, total)
	return args.Error(0)
}

func (m *MockLeaderboard) Remove(ctx context.Context, key interfaces.UserKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockLeaderboard) Top(ctx context.Context, n int) ([]interfaces.LeaderboardEntry, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.LeaderboardEntry), args.Error(1)
}

func (m *MockLeaderboard) Rank(ctx context.Context, key interfaces.UserKey) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}
