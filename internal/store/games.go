package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type GameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) Create(ctx context.Context, game *Game) error {
	if game.ID == uuid.Nil {
		game.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(game).Error
}

func (r *GameRepository) GetByID(ctx context.Context, id uuid.UUID) (*Game, error) {
	var game Game
	err := r.db.WithContext(ctx).First(&game, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// ListByUser returns games the user owns or occupies a seat in, most recent
// first. Seat membership lives in a JSON column, so candidates are filtered
// here rather than in SQL.
func (r *GameRepository) ListByUser(ctx context.Context, userID string) ([]Game, error) {
	var games []Game
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&games).Error
	if err != nil {
		return nil, err
	}

	out := make([]Game, 0, len(games))
	for _, g := range games {
		if g.OwnerID != nil && *g.OwnerID == userID {
			out = append(out, g)
			continue
		}
		for _, pid := range g.PlayerUserIDs {
			if pid != nil && *pid == userID {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}

func (r *GameRepository) Update(ctx context.Context, game *Game) error {
	return r.db.WithContext(ctx).Save(game).Error
}

func (r *GameRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("game_id = ?", id).Delete(&Round{})
	if res.Error != nil {
		return res.Error
	}
	res = r.db.WithContext(ctx).Delete(&Game{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
