package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tablesafe/backend/internal/consent"
	"tablesafe/backend/internal/models"

	"gorm.io/gorm"
)

// GameInput holds the DM-editable fields of a game.
type GameInput struct {
	Name           string
	Description    string
	Status         models.GameStatus
	MinimumPlayers int
}

// DMGame is a game run by the caller, with its joined player count.
type DMGame struct {
	models.Game
	PlayerCount int64
}

// CreateGame creates a game owned by dmID with a fresh unique game code.
func (s *Store) CreateGame(ctx context.Context, dmID uint, in GameInput) (*models.Game, error) {
	for attempt := 0; attempt < gameCodeAttempts; attempt++ {
		code, err := newGameCode()
		if err != nil {
			return nil, err
		}
		game := models.Game{
			DMUserID:       dmID,
			Name:           in.Name,
			Description:    in.Description,
			GameCode:       code,
			Status:         models.GameStatusActive,
			MinimumPlayers: in.MinimumPlayers,
		}
		err = s.conn(ctx).Omit("DM", "Players").Create(&game).Error
		if err == nil {
			return &game, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("generate game code: %w", ErrConflict)
}

// GetGame loads a game by id.
func (s *Store) GetGame(ctx context.Context, gameID uint) (*models.Game, error) {
	var game models.Game
	if err := s.conn(ctx).First(&game, gameID).Error; err != nil {
		return nil, notFound(err)
	}
	return &game, nil
}

// ListGamesAsDM returns the games dmID runs, newest first.
func (s *Store) ListGamesAsDM(ctx context.Context, dmID uint) ([]DMGame, error) {
	var games []models.Game
	if err := s.conn(ctx).Where("dm_user_id = ?", dmID).Order("created_at DESC, id DESC").Find(&games).Error; err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return []DMGame{}, nil
	}

	ids := make([]uint, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	var rows []struct {
		GameID uint
		Count  int64
	}
	err := s.conn(ctx).Model(&models.GamePlayer{}).
		Select("game_id, COUNT(*) AS count").
		Where("game_id IN ? AND status = ?", ids, consent.MembershipJoined).
		Group("game_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.GameID] = r.Count
	}

	out := make([]DMGame, 0, len(games))
	for _, g := range games {
		out = append(out, DMGame{Game: g, PlayerCount: counts[g.ID]})
	}
	return out, nil
}

// ListMemberships returns the caller's roster entries with their games, newest first.
func (s *Store) ListMemberships(ctx context.Context, userID uint) ([]models.GamePlayer, error) {
	var entries []models.GamePlayer
	err := s.conn(ctx).
		Preload("ConsentForm").
		Where("user_id = ?", userID).
		Order("joined_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GamesByID loads games keyed by id.
func (s *Store) GamesByID(ctx context.Context, ids []uint) (map[uint]models.Game, error) {
	out := make(map[uint]models.Game, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var games []models.Game
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&games).Error; err != nil {
		return nil, err
	}
	for _, g := range games {
		out[g.ID] = g
	}
	return out, nil
}

// UpdateGame changes a game's editable fields. Only the DM may call it.
func (s *Store) UpdateGame(ctx context.Context, dmID, gameID uint, in GameInput) (*RosterChange, *models.Game, error) {
	var game models.Game
	var change *RosterChange
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&game, gameID).Error; err != nil {
			return notFound(err)
		}
		if game.DMUserID != dmID {
			return ErrForbidden
		}
		err := tx.Model(&game).
			Select("Name", "Description", "Status", "MinimumPlayers").
			Updates(models.Game{
				Name:           in.Name,
				Description:    in.Description,
				Status:         in.Status,
				MinimumPlayers: in.MinimumPlayers,
			}).Error
		if err != nil {
			return err
		}
		if err := tx.First(&game, game.ID).Error; err != nil {
			return err
		}
		change, err = recordChange(tx, game.ID, &dmID, models.EventGameUpdated)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return change, &game, nil
}

// DeleteGame removes a game with its roster and audit log. Only the DM may call it.
func (s *Store) DeleteGame(ctx context.Context, dmID, gameID uint) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var game models.Game
		if err := tx.First(&game, gameID).Error; err != nil {
			return notFound(err)
		}
		if game.DMUserID != dmID {
			return ErrForbidden
		}
		if err := tx.Where("game_id = ?", game.ID).Delete(&models.GameEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", game.ID).Delete(&models.GamePlayer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&game).Error
	})
}

// Roster returns a game's roster entries with their users, in join order.
func (s *Store) Roster(ctx context.Context, gameID uint) ([]models.GamePlayer, error) {
	var entries []models.GamePlayer
	if err := s.conn(ctx).Preload("User").Where("game_id = ?", gameID).Order("joined_at, id").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Membership returns the caller's roster entry in a game.
func (s *Store) Membership(ctx context.Context, gameID, userID uint) (*models.GamePlayer, error) {
	var entry models.GamePlayer
	if err := s.conn(ctx).Where("game_id = ? AND user_id = ?", gameID, userID).First(&entry).Error; err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

// JoinGame redeems a game code for userID. Joining a game twice is a no-op; an invited or
// departed player becomes joined again.
func (s *Store) JoinGame(ctx context.Context, userID uint, code string) (*models.Game, *RosterChange, error) {
	var game models.Game
	var change *RosterChange
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_code = ?", NormalizeGameCode(code)).First(&game).Error; err != nil {
			return notFound(err)
		}
		if game.DMUserID == userID {
			return ErrOwnGame
		}

		var entry models.GamePlayer
		err := tx.Where("game_id = ? AND user_id = ?", game.ID, userID).First(&entry).Error
		switch {
		case err == nil && entry.Status == consent.MembershipJoined:
			change, err = unchanged(tx, game.ID, models.EventPlayerJoined)
			return err
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if game.Status != models.GameStatusActive {
			return ErrGameClosed
		}

		now := time.Now()
		if err == nil {
			err = tx.Model(&entry).Updates(map[string]any{
				"status":          consent.MembershipJoined,
				"joined_at":       now,
				"consent_form_id": nil,
			}).Error
		} else {
			entry = models.GamePlayer{
				GameID:   game.ID,
				UserID:   userID,
				Status:   consent.MembershipJoined,
				JoinedAt: now,
			}
			err = tx.Omit("User", "ConsentForm").Create(&entry).Error
		}
		if err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}

		change, err = recordChange(tx, game.ID, &userID, models.EventPlayerJoined)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &game, change, nil
}

// InvitePlayer adds username to a game's roster as invited. Only the DM may call it.
func (s *Store) InvitePlayer(ctx context.Context, dmID, gameID uint, username string) (*RosterChange, error) {
	invitee, err := s.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	var change *RosterChange
	err = s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var game models.Game
		if err := tx.First(&game, gameID).Error; err != nil {
			return notFound(err)
		}
		if game.DMUserID != dmID {
			return ErrForbidden
		}
		if invitee.ID == dmID {
			return ErrOwnGame
		}

		var count int64
		if err := tx.Model(&models.GamePlayer{}).Where("game_id = ? AND user_id = ?", gameID, invitee.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			change, err = unchanged(tx, gameID, models.EventPlayerInvited)
			return err
		}

		entry := models.GamePlayer{
			GameID:   gameID,
			UserID:   invitee.ID,
			Status:   consent.MembershipInvited,
			JoinedAt: time.Now(),
		}
		if err := tx.Omit("User", "ConsentForm").Create(&entry).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		change, err = recordChange(tx, gameID, &invitee.ID, models.EventPlayerInvited)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// ShareForm points the caller's roster entry at one of the caller's own forms.
func (s *Store) ShareForm(ctx context.Context, userID, gameID, formID uint) (*RosterChange, error) {
	var change *RosterChange
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := joinedEntry(tx, gameID, userID)
		if err != nil {
			return err
		}

		var form models.ConsentForm
		if err := tx.Select("id", "user_id").First(&form, formID).Error; err != nil {
			return notFound(err)
		}
		if form.UserID != userID {
			return ErrForbidden
		}

		if err := tx.Model(entry).Update("consent_form_id", form.ID).Error; err != nil {
			return err
		}
		change, err = recordChange(tx, gameID, &userID, models.EventFormShared)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// UnshareForm clears the caller's shared form for a game.
func (s *Store) UnshareForm(ctx context.Context, userID, gameID uint) (*RosterChange, error) {
	var change *RosterChange
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.GamePlayer
		if err := tx.Where("game_id = ? AND user_id = ?", gameID, userID).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotMember
			}
			return err
		}
		var err error
		if entry.ConsentFormID == nil {
			change, err = unchanged(tx, gameID, models.EventFormUnshared)
			return err
		}

		if err := tx.Model(&entry).Update("consent_form_id", nil).Error; err != nil {
			return err
		}
		change, err = recordChange(tx, gameID, &userID, models.EventFormUnshared)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// LeaveGame marks the caller as left and withdraws any shared form.
func (s *Store) LeaveGame(ctx context.Context, userID, gameID uint) (*RosterChange, error) {
	var change *RosterChange
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := joinedEntry(tx, gameID, userID)
		if err != nil {
			return err
		}
		err = tx.Model(entry).Updates(map[string]any{
			"status":          consent.MembershipLeft,
			"consent_form_id": nil,
		}).Error
		if err != nil {
			return err
		}
		change, err = recordChange(tx, gameID, &userID, models.EventPlayerLeft)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func joinedEntry(tx *gorm.DB, gameID, userID uint) (*models.GamePlayer, error) {
	var entry models.GamePlayer
	err := tx.Where("game_id = ? AND user_id = ? AND status = ?", gameID, userID, consent.MembershipJoined).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return &entry, nil
}
