package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type AwardRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Identity  string `gorm:"index;not null"`
	Amount    int    `gorm:"not null"`
	CreatedAt time.Time
}

func (AwardRecord) TableName() string { return "xp_awards" }

type TotalRecord struct {
	Identity  string `gorm:"primaryKey"`
	Total     int    `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (TotalRecord) TableName() string { return "xp_totals" }

// OpenPostgres opens a gorm connection with gorm's own logging silenced.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// GormLedger appends every award and keeps a running total per identity.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Migrate() error {
	return l.db.AutoMigrate(&AwardRecord{}, &TotalRecord{})
}

func (l *GormLedger) AwardExperience(ctx context.Context, identity string, amount int) error {
	if identity == "" || amount <= 0 {
		return ErrInvalidAward
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&AwardRecord{Identity: identity, Amount: amount}).Error; err != nil {
			return fmt.Errorf("insert award: %w", err)
		}

		total := TotalRecord{Identity: identity, Total: amount, UpdatedAt: time.Now()}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total":      gorm.Expr("xp_totals.total + ?", amount),
				"updated_at": total.UpdatedAt,
			}),
		}).Create(&total).Error
		if err != nil {
			return fmt.Errorf("upsert total: %w", err)
		}
		return nil
	})
}
