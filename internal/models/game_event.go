package models

import (
	"time"

	"gorm.io/datatypes"
)

type GameEventType string

const (
	EventPlayerJoined  GameEventType = "player_joined"
	EventPlayerInvited GameEventType = "player_invited"
	EventPlayerLeft    GameEventType = "player_left"
	EventFormShared    GameEventType = "form_shared"
	EventFormUnshared  GameEventType = "form_unshared"
	EventGameUpdated   GameEventType = "game_updated"
)

// GameEvent is an audit record of roster activity. Payloads carry share progress only,
// never ratings.
type GameEvent struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    uint           `gorm:"index;not null"`
	UserID    *uint          `gorm:"index"`
	Type      GameEventType  `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`

	Game Game `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE;"`
}
