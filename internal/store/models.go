// Package store persists games and committed rounds with gorm. The live
// session layer only touches it through the narrow session.Store interface;
// the HTTP API uses the repositories directly.
package store

import (
	"time"

	"github.com/google/uuid"
)

type Game struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"type:text"`
	Players       []string  `gorm:"serializer:json;not null"`
	PlayerUserIDs []*string `gorm:"serializer:json"`
	OwnerID       *string   `gorm:"type:text;index"`
	Scores        []int     `gorm:"serializer:json;not null"`
	CurrentRound  int       `gorm:"not null;default:1"`
	Status        string    `gorm:"type:text;not null;default:active"`
	ShareCode     *string   `gorm:"uniqueIndex"`
	Rounds        []Round   `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Round struct {
	ID          uint      `gorm:"primaryKey"`
	GameID      uuid.UUID `gorm:"type:uuid;index;not null"`
	RoundNumber int       `gorm:"not null"`
	Bids        []int     `gorm:"serializer:json;not null"`
	Tricks      []int     `gorm:"serializer:json;not null"`
	Scores      []int     `gorm:"serializer:json;not null"`
	RoundMode   string    `gorm:"type:text;not null"`
	TrumpSuit   *string   `gorm:"type:text"`
	CreatedBy   *string   `gorm:"type:text"`
	CreatedAt   time.Time
}
