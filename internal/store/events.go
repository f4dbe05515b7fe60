package store

import (
	"context"
	"encoding/json"

	"tablesafe/backend/internal/consent"
	"tablesafe/backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RosterChange describes a committed roster mutation. Changed is false when the call was
// a no-op (for example joining a game twice).
type RosterChange struct {
	GameID   uint
	Event    models.GameEventType
	Progress consent.Progress
	Changed  bool
}

type eventPayload struct {
	Progress consent.Progress `json:"progress"`
}

// progress recounts the roster of gameID inside tx.
func progress(tx *gorm.DB, gameID uint) (consent.Progress, error) {
	var game models.Game
	if err := tx.Select("id", "minimum_players").First(&game, gameID).Error; err != nil {
		return consent.Progress{}, notFound(err)
	}
	var players []models.GamePlayer
	if err := tx.Select("user_id", "status", "consent_form_id").Where("game_id = ?", gameID).Find(&players).Error; err != nil {
		return consent.Progress{}, err
	}
	roster := make([]consent.RosterEntry, 0, len(players))
	for _, p := range players {
		roster = append(roster, p.ToConsent())
	}
	return consent.ShareProgress(roster, game.MinimumPlayers), nil
}

// recordChange stores an audit event with the current share progress and returns the
// matching RosterChange.
func recordChange(tx *gorm.DB, gameID uint, userID *uint, eventType models.GameEventType) (*RosterChange, error) {
	p, err := progress(tx, gameID)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(eventPayload{Progress: p})
	if err != nil {
		return nil, err
	}
	event := models.GameEvent{
		GameID:  gameID,
		UserID:  userID,
		Type:    eventType,
		Payload: datatypes.JSON(data),
	}
	if err := tx.Omit("Game").Create(&event).Error; err != nil {
		return nil, err
	}
	return &RosterChange{GameID: gameID, Event: eventType, Progress: p, Changed: true}, nil
}

// unchanged reports the current progress for a call that changed nothing. No event is
// recorded.
func unchanged(tx *gorm.DB, gameID uint, eventType models.GameEventType) (*RosterChange, error) {
	p, err := progress(tx, gameID)
	if err != nil {
		return nil, err
	}
	return &RosterChange{GameID: gameID, Event: eventType, Progress: p}, nil
}

// ListEvents returns one page of a game's audit log, newest first.
func (s *Store) ListEvents(ctx context.Context, gameID uint, page, limit int) ([]models.GameEvent, int64, error) {
	query := s.conn(ctx).Where("game_id = ?", gameID).Order("created_at DESC, id DESC")
	return paginate[models.GameEvent](query, page, limit)
}
