package prompt

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"gorm.io/gorm"
)

type Record struct {
	ID         uint   `gorm:"primaryKey"`
	Text       string `gorm:"not null"`
	Source     string
	Difficulty string `gorm:"index"`
}

func (Record) TableName() string { return "prompts" }

// Store draws prompts from the prompts table.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Record{})
}

// Seed inserts prompts when the table is empty.
func (s *Store) Seed(ctx context.Context, prompts []Prompt) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Record{}).Count(&n).Error; err != nil {
		return fmt.Errorf("count prompts: %w", err)
	}
	if n > 0 || len(prompts) == 0 {
		return nil
	}

	records := make([]Record, 0, len(prompts))
	for _, p := range prompts {
		if utf8.RuneCountInString(p.Text) < MinLength {
			continue
		}
		records = append(records, Record{Text: p.Text, Source: p.Source, Difficulty: p.Difficulty})
	}
	if len(records) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("seed prompts: %w", err)
	}
	return nil
}

func (s *Store) RandomPrompt(ctx context.Context, difficulty string) (Prompt, error) {
	q := s.db.WithContext(ctx).Model(&Record{}).Where("char_length(text) >= ?", MinLength)
	if difficulty != "" {
		q = q.Where("difficulty = ?", difficulty)
	}

	var rec Record
	err := q.Order("RANDOM()").Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Prompt{}, ErrNoPrompts
	}
	if err != nil {
		return Prompt{}, fmt.Errorf("query prompt: %w", err)
	}
	return Prompt{Text: rec.Text, Source: rec.Source, Difficulty: rec.Difficulty}, nil
}
