package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/supp-dex/instance-api/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the flag table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schema.Flag{}); err != nil {
		return fmt.Errorf("failed to migrate flag table: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// flagUpsert makes inserts overwrite the secret and timestamp on id conflict
var flagUpsert = clause.OnConflict{
	Columns:   []clause.Column{{Name: "id"}},
	DoUpdates: clause.AssignmentColumns([]string{"flag", "created_at"}),
}

// GetFlag retrieves the secret for an id
func (s *pgStore) GetFlag(ctx context.Context, id string) (string, bool, error) {
	var flag schema.Flag
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&flag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get flag: %w", err)
	}
	return flag.Flag, true, nil
}

// PutFlag upserts one flag, resetting its creation time
func (s *pgStore) PutFlag(ctx context.Context, id string, flag string) error {
	record := schema.Flag{ID: id, Flag: flag, CreatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Clauses(flagUpsert).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to upsert flag: %w", err)
	}
	return nil
}

// PutFlags upserts a batch of flags in a single transaction so a concurrent
// reader can never observe the batch half-applied
func (s *pgStore) PutFlags(ctx context.Context, flags []schema.Flag) error {
	if len(flags) == 0 {
		return nil
	}

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range flags {
			record := flags[i]
			if record.CreatedAt.IsZero() {
				record.CreatedAt = now
			}
			if err := tx.Clauses(flagUpsert).Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert flag batch: %w", err)
	}
	return nil
}

// DeleteFlag removes a flag by id
func (s *pgStore) DeleteFlag(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&schema.Flag{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete flag: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountFlags returns the number of stored flags
func (s *pgStore) CountFlags(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&schema.Flag{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count flags: %w", err)
	}
	return count, nil
}

// ListFlags returns all flags ordered by creation time ascending, id as
// tiebreak so batches written in one transaction list deterministically
func (s *pgStore) ListFlags(ctx context.Context) ([]schema.Flag, error) {
	var flags []schema.Flag
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&flags).Error; err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	return flags, nil
}
