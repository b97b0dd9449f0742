package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/ruteri/driving-tests-backend/database"
	"github.com/ruteri/driving-tests-backend/interfaces"
	"gorm.io/gorm"
)

// RandSource returns a uniformly distributed integer in [0, n). n is always positive.
type RandSource func(n int64) int64

// Engine implements interfaces.QuizEngine over the tests table.
type Engine struct {
	pool *database.Pool
	rand RandSource
	log  *slog.Logger
}

var _ interfaces.QuizEngine = (*Engine)(nil)

// NewEngine creates a quiz engine drawing items with math/rand/v2.
func NewEngine(pool *database.Pool, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		pool: pool,
		rand: rand.Int64N,
		log:  log,
	}
}

// WithRandSource creates a new Engine that draws items using source.
func (e *Engine) WithRandSource(source RandSource) *Engine {
	return &Engine{
		pool: e.pool,
		rand: source,
		log:  e.log,
	}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", interfaces.ErrStore, op, err)
}

// PickRandom returns a uniformly chosen item. The item is selected by its
// ordinal position in id order rather than by id value, so gaps left by
// deleted items never cause a miss.
func (e *Engine) PickRandom(ctx context.Context) (interfaces.QuizItem, error) {
	var record database.TestRecord
	err := e.pool.WithConn(ctx, func(db *gorm.DB) error {
		// Count and fetch share a read transaction so the offset stays in range.
		return db.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&database.TestRecord{}).Count(&count).Error; err != nil {
				return storeError("count items", err)
			}
			if count == 0 {
				return interfaces.ErrEmptyCatalog
			}

			ordinal := e.rand(count) + 1
			if ordinal < 1 || ordinal > count {
				return fmt.Errorf("%w: random ordinal %d outside [1, %d]", interfaces.ErrStore, ordinal, count)
			}

			err := tx.Order("id ASC").Offset(int(ordinal - 1)).Limit(1).Take(&record).Error
			if err != nil {
				return storeError("fetch item", err)
			}
			return nil
		})
	})
	if err != nil {
		return interfaces.QuizItem{}, err
	}
	return record.QuizItem(), nil
}

// Grade checks chosen against the item's correct choice. A correct answer is
// awarded the item's difficulty score; a wrong one, including an out-of-range
// index, is awarded nothing.
func (e *Engine) Grade(ctx context.Context, itemID int64, chosen int) (interfaces.GradeResult, error) {
	item, err := e.Get(ctx, itemID)
	if err != nil {
		return interfaces.GradeResult{}, err
	}

	if chosen != item.CorrectChoice {
		return interfaces.GradeResult{Correct: false, Awarded: 0}, nil
	}
	return interfaces.GradeResult{Correct: true, Awarded: item.Difficulty.Score()}, nil
}

// Get returns the item with the given id.
func (e *Engine) Get(ctx context.Context, itemID int64) (interfaces.QuizItem, error) {
	var record database.TestRecord
	err := e.pool.WithConn(ctx, func(db *gorm.DB) error {
		err := db.Where("id = ?", itemID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return interfaces.ErrNotFound
		}
		if err != nil {
			return storeError("get item", err)
		}
		return nil
	})
	if err != nil {
		return interfaces.QuizItem{}, err
	}
	return record.QuizItem(), nil
}

// Insert validates and stores item, returning its assigned id.
func (e *Engine) Insert(ctx context.Context, item interfaces.QuizItem) (int64, error) {
	if err := item.Validate(); err != nil {
		return 0, err
	}

	record := database.TestRecordFrom(item)
	err := e.pool.WithConn(ctx, func(db *gorm.DB) error {
		return insertRecord(db, &record)
	})
	if err != nil {
		return 0, err
	}

	e.log.Debug("Inserted quiz item", slog.Int64("id", record.ID), slog.String("difficulty", item.Difficulty.String()))
	return record.ID, nil
}

// InsertBatch validates every item and stores them all in one transaction.
// Nothing is stored if any item is invalid or any insert fails.
func (e *Engine) InsertBatch(ctx context.Context, items []interfaces.QuizItem) ([]int64, error) {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	ids := make([]int64, 0, len(items))
	err := e.pool.WithConn(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			for _, item := range items {
				record := database.TestRecordFrom(item)
				if err := insertRecord(tx, &record); err != nil {
					return err
				}
				ids = append(ids, record.ID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("Inserted quiz items", slog.Int("count", len(ids)))
	return ids, nil
}

func insertRecord(db *gorm.DB, record *database.TestRecord) error {
	res := db.Create(record)
	if res.Error != nil {
		return storeError("insert item", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: insert item: no rows inserted", interfaces.ErrStore)
	}
	return nil
}

// Count returns the number of items in the catalog.
func (e *Engine) Count(ctx context.Context) (int64, error) {
	var count int64
	err := e.pool.WithConn(ctx, func(db *gorm.DB) error {
		if err := db.Model(&database.TestRecord{}).Count(&count).Error; err != nil {
			return storeError("count items", err)
		}
		return nil
	})
	return count, err
}

// Delete removes the item with the given id. Returns ErrNotFound if there is no such item.
func (e *Engine) Delete(ctx context.Context, itemID int64) error {
	return e.pool.WithConn(ctx, func(db *gorm.DB) error {
		res := db.Delete(&database.TestRecord{}, itemID)
		if res.Error != nil {
			return storeError("delete item", res.Error)
		}
		if res.RowsAffected == 0 {
			return interfaces.ErrNotFound
		}
		return nil
	})
}
