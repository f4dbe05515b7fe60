package models

import (
	"time"

	"tablesafe/backend/internal/consent"
)

// GameStatus defines the lifecycle state of a game.
type GameStatus string

const (
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
	GameStatusArchived  GameStatus = "archived"
)

// Valid reports whether s is a known game status.
func (s GameStatus) Valid() bool {
	switch s {
	case GameStatusActive, GameStatusCompleted, GameStatusArchived:
		return true
	}
	return false
}

// Game represents a campaign run by a DM. Players join it with GameCode.
type Game struct {
	ID          uint   `gorm:"primaryKey"`
	DMUserID    uint   `gorm:"not null;index"`
	Name        string `gorm:"size:255;not null"`
	Description string
	// GameCode is unique and immutable after creation.
	GameCode       string     `gorm:"size:13;uniqueIndex;not null;<-:create"`
	Status         GameStatus `gorm:"size:20;not null;default:'active'"`
	MinimumPlayers int        `gorm:"not null;default:1"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`

	DM      User         `gorm:"foreignKey:DMUserID;constraint:OnDelete:CASCADE;"`
	Players []GamePlayer `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE;"`
}

// GamePlayer is a roster entry: one per (game, player).
// ConsentFormID points at a form owned by the same player, or is nil.
type GamePlayer struct {
	ID            uint                     `gorm:"primaryKey"`
	GameID        uint                     `gorm:"not null;index;uniqueIndex:idx_game_players_game_user"`
	UserID        uint                     `gorm:"not null;index;uniqueIndex:idx_game_players_game_user"`
	ConsentFormID *uint                    `gorm:"index"`
	JoinedAt      time.Time                `gorm:"not null"`
	Status        consent.MembershipStatus `gorm:"size:20;not null;default:'joined'"`
	CreatedAt     time.Time                `gorm:"not null"`
	UpdatedAt     time.Time                `gorm:"not null"`

	User        User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
	ConsentForm *ConsentForm `gorm:"foreignKey:ConsentFormID;constraint:OnDelete:SET NULL;"`
}

// ToConsent converts the row into the engine's roster entry.
func (p GamePlayer) ToConsent() consent.RosterEntry {
	return consent.RosterEntry{
		PlayerID:     p.UserID,
		Status:       p.Status,
		SharedFormID: p.ConsentFormID,
	}
}
