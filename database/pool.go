package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/ruteri/driving-tests-backend/interfaces"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DefaultMaxConns    = 16
	DefaultBusyTimeout = 5 * time.Second
)

// Config describes the backing store and pool limits.
type Config struct {
	// Path of the SQLite database file.
	Path string
	// MaxConns bounds concurrently acquired handles.
	MaxConns int
	// BusyTimeout is how long a statement waits behind a writer before failing.
	BusyTimeout time.Duration
	// EnableWAL switches the store to write-ahead logging.
	EnableWAL bool
	// EnableForeignKeys turns on foreign-key constraint enforcement.
	EnableForeignKeys bool
}

// DefaultConfig returns the production defaults for the store at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:              path,
		MaxConns:          DefaultMaxConns,
		BusyTimeout:       DefaultBusyTimeout,
		EnableWAL:         true,
		EnableForeignKeys: true,
	}
}

// DSN returns the driver connection string. Pragmas are part of the DSN so
// that every connection the driver opens applies them, not only the first.
func (c Config) DSN() string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.EnableWAL {
		params.Add("_pragma", "journal_mode(WAL)")
		params.Add("_pragma", "synchronous(NORMAL)")
	}
	if c.EnableForeignKeys {
		params.Add("_pragma", "foreign_keys(1)")
	}
	return "file:" + c.Path + "?" + params.Encode()
}

// Pool is a bounded set of connections to the quiz store.
type Pool struct {
	cfg   Config
	db    *gorm.DB
	sqlDB *sql.DB
	log   *slog.Logger
}

// Open opens the store, applies and verifies the connection pragmas and
// migrates the schema. Every failure wraps interfaces.ErrPoolInit.
func Open(cfg Config, log *slog.Logger) (*Pool, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty database path", interfaces.ErrPoolInit)
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultMaxConns
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultBusyTimeout
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(slog.NewLogLogger(log.With("component", "gorm").Handler(), slog.LevelWarn), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrPoolInit, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrPoolInit, err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MaxConns)

	pool := &Pool{
		cfg:   cfg,
		db:    db,
		sqlDB: sqlDB,
		log:   log,
	}

	if err := pool.verifyPragmas(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}

	if err := db.AutoMigrate(&UserRecord{}, &TestRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: migration failed: %v", interfaces.ErrPoolInit, err)
	}

	log.Info("Database pool ready",
		slog.String("path", cfg.Path),
		slog.Int("max_conns", cfg.MaxConns),
		slog.Duration("busy_timeout", cfg.BusyTimeout),
		slog.Bool("wal", cfg.EnableWAL),
		slog.Bool("foreign_keys", cfg.EnableForeignKeys))

	return pool, nil
}

func (p *Pool) verifyPragmas(ctx context.Context) error {
	return p.WithConn(ctx, func(db *gorm.DB) error {
		if p.cfg.EnableWAL {
			var mode string
			if err := db.Raw("PRAGMA journal_mode").Scan(&mode).Error; err != nil {
				return fmt.Errorf("%w: reading journal_mode: %v", interfaces.ErrPoolInit, err)
			}
			if !strings.EqualFold(mode, "wal") {
				return fmt.Errorf("%w: journal_mode is %q, expected wal", interfaces.ErrPoolInit, mode)
			}
		}

		if p.cfg.EnableForeignKeys {
			var fk int
			if err := db.Raw("PRAGMA foreign_keys").Scan(&fk).Error; err != nil {
				return fmt.Errorf("%w: reading foreign_keys: %v", interfaces.ErrPoolInit, err)
			}
			if fk != 1 {
				return fmt.Errorf("%w: foreign keys not enabled", interfaces.ErrPoolInit)
			}
		}

		var timeout int64
		if err := db.Raw("PRAGMA busy_timeout").Scan(&timeout).Error; err != nil {
			return fmt.Errorf("%w: reading busy_timeout: %v", interfaces.ErrPoolInit, err)
		}
		if timeout != p.cfg.BusyTimeout.Milliseconds() {
			return fmt.Errorf("%w: busy_timeout is %dms, expected %dms", interfaces.ErrPoolInit, timeout, p.cfg.BusyTimeout.Milliseconds())
		}
		return nil
	})
}

// Conn is a handle checked out of the pool. It must be released exactly once;
// further Release calls are no-ops.
type Conn struct {
	conn    *sql.Conn
	db      *gorm.DB
	release sync.Once
}

// Acquire checks out a handle, blocking while all MaxConns handles are in use.
// It returns ctx.Err() if ctx is done before a handle becomes available.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := p.sqlDB.Conn(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: acquiring connection: %v", interfaces.ErrPoolInit, err)
	}

	// Statements issued through the handle must not be interrupted once started.
	db := p.db.Session(&gorm.Session{NewDB: true, Context: context.WithoutCancel(ctx)})
	db.Statement.ConnPool = conn

	return &Conn{conn: conn, db: db}, nil
}

// DB returns a gorm handle bound to this connection.
func (c *Conn) DB() *gorm.DB {
	return c.db
}

// Release returns the handle to the pool.
func (c *Conn) Release() {
	c.release.Do(func() {
		c.conn.Close()
	})
}

// WithConn acquires a handle, runs fn with it and releases it.
func (p *Pool) WithConn(ctx context.Context, fn func(db *gorm.DB) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return fn(conn.DB())
}

// Stats reports pool occupancy.
func (p *Pool) Stats() sql.DBStats {
	return p.sqlDB.Stats()
}

// Close closes all connections. Handles still checked out are closed when released.
func (p *Pool) Close() error {
	return p.sqlDB.Close()
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
