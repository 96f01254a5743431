package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoundRepository struct {
	db *gorm.DB
}

func NewRoundRepository(db *gorm.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

func (r *RoundRepository) Create(ctx context.Context, round *Round) error {
	return r.db.WithContext(ctx).Create(round).Error
}

func (r *RoundRepository) ListByGame(ctx context.Context, gameID uuid.UUID) ([]Round, error) {
	var rounds []Round
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("round_number").
		Find(&rounds).Error
	return rounds, err
}

func (r *RoundRepository) CountByGame(ctx context.Context, gameID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Round{}).
		Where("game_id = ?", gameID).
		Count(&count).Error
	return int(count), err
}

// Migrate creates or updates the games and rounds tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Game{}, &Round{})
}
