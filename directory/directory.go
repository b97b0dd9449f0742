package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/ruteri/driving-tests-backend/database"
	"github.com/ruteri/driving-tests-backend/interfaces"
	"gorm.io/gorm"
)

// Directory implements interfaces.UserDirectory over the users table.
type Directory struct {
	pool  *database.Pool
	vault interfaces.CredentialVault
	log   *slog.Logger
}

var _ interfaces.UserDirectory = (*Directory)(nil)

// NewDirectory creates a user directory storing credentials encrypted by vault.
func NewDirectory(pool *database.Pool, vault interfaces.CredentialVault, log *slog.Logger) *Directory {
	if log == nil {
		log = slog.Default()
	}
	return &Directory{
		pool:  pool,
		vault: vault,
		log:   log,
	}
}

func byKey(db *gorm.DB, key interfaces.UserKey) *gorm.DB {
	return db.Model(&database.UserRecord{}).Where("name = ? AND second_name = ?", key.Name, key.SecondName)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", interfaces.ErrStore, op, err)
}

// Exists reports whether an identity with the given key is registered.
func (d *Directory) Exists(ctx context.Context, key interfaces.UserKey) (bool, error) {
	var count int64
	err := d.pool.WithConn(ctx, func(db *gorm.DB) error {
		if err := byKey(db, key).Count(&count).Error; err != nil {
			return storeError("exists", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Register creates an identity with score 0 and the credential encrypted by the vault.
// Returns ErrDuplicateUser if the key is taken, including when a concurrent
// registration wins the race between the existence check and the insert.
func (d *Directory) Register(ctx context.Context, key interfaces.UserKey, credential string) error {
	if err := key.Validate(); err != nil {
		return err
	}

	exists, err := d.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return interfaces.ErrDuplicateUser
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	ciphertext, err := d.vault.Encrypt(ctx, credential)
	if err != nil {
		return err
	}

	record := database.UserRecord{
		Name:       key.Name,
		SecondName: key.SecondName,
		Password:   ciphertext,
	}

	err = d.pool.WithConn(ctx, func(db *gorm.DB) error {
		res := db.Create(&record)
		if res.Error != nil {
			if database.IsUniqueViolation(res.Error) {
				return interfaces.ErrDuplicateUser
			}
			return storeError("register", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: register: no rows inserted", interfaces.ErrStore)
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.log.Info("Registered identity", slog.String("user", key.String()), slog.Int64("id", record.ID))
	return nil
}

// FindByName returns the oldest identity with the given key.
func (d *Directory) FindByName(ctx context.Context, key interfaces.UserKey) (interfaces.Identity, error) {
	var record database.UserRecord
	err := d.pool.WithConn(ctx, func(db *gorm.DB) error {
		err := byKey(db, key).Order("id ASC").Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return interfaces.ErrNotFound
		}
		if err != nil {
			return storeError("find", err)
		}
		return nil
	})
	if err != nil {
		return interfaces.Identity{}, err
	}
	return record.Identity(), nil
}

// VerifyCredential reports whether candidate matches the identity's stored credential.
// A stored credential that cannot be decrypted is returned as an error.
func (d *Directory) VerifyCredential(ctx context.Context, key interfaces.UserKey, candidate string) (bool, error) {
	identity, err := d.FindByName(ctx, key)
	if err != nil {
		return false, err
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	ok, err := d.vault.Verify(ctx, candidate, identity.Credential)
	if err != nil {
		d.log.Error("Credential verification failed",
			slog.String("user", key.String()),
			slog.Int64("id", identity.ID),
			"err", err)
		return false, err
	}
	return ok, nil
}

// GetScore returns the identity's accumulated score.
func (d *Directory) GetScore(ctx context.Context, key interfaces.UserKey) (uint32, error) {
	identity, err := d.FindByName(ctx, key)
	if err != nil {
		return 0, err
	}
	return identity.Score, nil
}

// AddScore increments the oldest matching identity's score by delta in a
// single statement, so concurrent increments never lose updates. The total
// saturates at math.MaxUint32.
func (d *Directory) AddScore(ctx context.Context, key interfaces.UserKey, delta uint32) error {
	return d.pool.WithConn(ctx, func(db *gorm.DB) error {
		oldest := byKey(db, key).Select("id").Order("id ASC").Limit(1)
		res := db.Model(&database.UserRecord{}).
			Where("id = (?)", oldest).
			UpdateColumn("scores", gorm.Expr("MIN(scores + ?, ?)", delta, int64(math.MaxUint32)))
		if res.Error != nil {
			return storeError("add score", res.Error)
		}
		if res.RowsAffected == 0 {
			return interfaces.ErrNotFound
		}
		return nil
	})
}

// Remove deletes every identity with the given key. Removing a missing identity is not an error.
func (d *Directory) Remove(ctx context.Context, key interfaces.UserKey) error {
	return d.pool.WithConn(ctx, func(db *gorm.DB) error {
		res := db.Where("name = ? AND second_name = ?", key.Name, key.SecondName).Delete(&database.UserRecord{})
		if res.Error != nil {
			return storeError("remove", res.Error)
		}
		if res.RowsAffected > 0 {
			d.log.Info("Removed identity", slog.String("user", key.String()))
		}
		return nil
	})
}

// Count returns the number of registered identities.
func (d *Directory) Count(ctx context.Context) (int64, error) {
	var count int64
	err := d.pool.WithConn(ctx, func(db *gorm.DB) error {
		if err := db.Model(&database.UserRecord{}).Count(&count).Error; err != nil {
			return storeError("count", err)
		}
		return nil
	})
	return count, err
}
