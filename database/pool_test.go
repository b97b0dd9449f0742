package database

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruteri/driving-tests-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "quiz.db")
	}
	pool, err := Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestConfig_DSN(t *testing.T) {
	dsn := DefaultConfig("/var/lib/quiz/quiz.db").DSN()
	assert.Contains(t, dsn, "file:/var/lib/quiz/quiz.db?")
	assert.Contains(t, dsn, "busy_timeout%285000%29")
	assert.Contains(t, dsn, "journal_mode%28WAL%29")
	assert.Contains(t, dsn, "foreign_keys%281%29")

	cfg := DefaultConfig("x.db")
	cfg.EnableWAL = false
	cfg.EnableForeignKeys = false
	dsn = cfg.DSN()
	assert.NotContains(t, dsn, "journal_mode")
	assert.NotContains(t, dsn, "foreign_keys")
}

func TestOpen_AppliesPragmas(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "quiz.db"))
	cfg.BusyTimeout = 2500 * time.Millisecond
	pool := openTestPool(t, cfg)

	// Each handle is a distinct connection; the pragmas must hold on all of them.
	conns := make([]*Conn, 0, 3)
	for i := 0; i < 3; i++ {
		conn, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		conns = append(conns, conn)
	}

	for _, conn := range conns {
		var mode string
		require.NoError(t, conn.DB().Raw("PRAGMA journal_mode").Scan(&mode).Error)
		assert.Equal(t, "wal", mode)

		var fk int
		require.NoError(t, conn.DB().Raw("PRAGMA foreign_keys").Scan(&fk).Error)
		assert.Equal(t, 1, fk)

		var timeout int64
		require.NoError(t, conn.DB().Raw("PRAGMA busy_timeout").Scan(&timeout).Error)
		assert.Equal(t, int64(2500), timeout)
	}

	for _, conn := range conns {
		conn.Release()
	}
}

func TestOpen_Errors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := Open(Config{}, logger)
	assert.ErrorIs(t, err, interfaces.ErrPoolInit)

	_, err = Open(DefaultConfig(filepath.Join(t.TempDir(), "missing-dir", "quiz.db")), logger)
	assert.ErrorIs(t, err, interfaces.ErrPoolInit)
}

func TestOpen_MigratesSchema(t *testing.T) {
	pool := openTestPool(t, Config{})

	err := pool.WithConn(context.Background(), func(db *gorm.DB) error {
		assert.True(t, db.Migrator().HasTable("users"))
		assert.True(t, db.Migrator().HasTable("tests"))
		assert.True(t, db.Migrator().HasIndex(&UserRecord{}, "idx_users_name_second_name"))
		return nil
	})
	require.NoError(t, err)
}

func TestAcquire_BlocksAtCapacity(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "quiz.db"))
	cfg.MaxConns = 2
	pool := openTestPool(t, cfg)

	first, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	second, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, pool.Stats().InUse)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan *Conn)
	go func() {
		conn, err := pool.Acquire(context.Background())
		if err == nil {
			acquired <- conn
		}
	}()

	first.Release()
	first.Release() // idempotent

	select {
	case conn := <-acquired:
		conn.Release()
	case <-time.After(5 * time.Second):
		t.Fatal("waiting acquirer was not handed the released connection")
	}

	second.Release()
}

func TestAcquire_CancelledContext(t *testing.T) {
	pool := openTestPool(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	called := false
	err = pool.WithConn(ctx, func(db *gorm.DB) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestConn_StatementsSurviveCancellation(t *testing.T) {
	pool := openTestPool(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	cancel()

	rec := UserRecord{Name: "Alice", SecondName: "Smith", Password: "00"}
	require.NoError(t, conn.DB().Create(&rec).Error)
	assert.NotZero(t, rec.ID)
}

func TestOpen_RoutesStatementErrorsToLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	pool, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "quiz.db")), log)
	require.NoError(t, err)
	defer pool.Close()

	err = pool.WithConn(context.Background(), func(db *gorm.DB) error {
		var n int
		return db.Raw("SELECT count(*) FROM missing_table").Scan(&n).Error
	})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "no such table")
	assert.Contains(t, out, "component=gorm")
	assert.Contains(t, out, "level=WARN")

	// Missing rows are expected lookups, not log noise.
	buf.Reset()
	err = pool.WithConn(context.Background(), func(db *gorm.DB) error {
		var rec UserRecord
		return db.Where("name = ?", "nobody").First(&rec).Error
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NotContains(t, buf.String(), "record not found")
}

func TestIsUniqueViolation(t *testing.T) {
	pool := openTestPool(t, Config{})

	err := pool.WithConn(context.Background(), func(db *gorm.DB) error {
		require.NoError(t, db.Create(&UserRecord{Name: "Alice", SecondName: "Smith", Password: "aa"}).Error)
		return db.Create(&UserRecord{Name: "Alice", SecondName: "Smith", Password: "bb"}).Error
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound))
}

func TestTestRecord_RoundTrip(t *testing.T) {
	pool := openTestPool(t, Config{})

	item := interfaces.QuizItem{
		Difficulty:    interfaces.DifficultyHigh,
		Prompt:        "Which sign means stop?",
		Choices:       []string{"Red octagon", "Yellow triangle", "Blue circle"},
		CorrectChoice: 0,
		Media:         []byte{0x89, 0x50, 0x4e, 0x47},
	}

	var stored TestRecord
	err := pool.WithConn(context.Background(), func(db *gorm.DB) error {
		rec := TestRecordFrom(item)
		if err := db.Create(&rec).Error; err != nil {
			return err
		}
		return db.First(&stored, rec.ID).Error
	})
	require.NoError(t, err)

	got := stored.QuizItem()
	item.ID = stored.ID
	assert.Equal(t, item, got)
}
