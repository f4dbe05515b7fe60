package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"tablesafe/backend/internal/consent"
	"tablesafe/backend/internal/models"

	"gorm.io/gorm"
)

// LoadSnapshot reads a game, its roster, and the responses of every shared form in one
// transaction, so the gate and the report see the same state.
//
// A roster entry that points at a missing form, or at a form owned by someone else, is
// logged and treated as unshared.
func (s *Store) LoadSnapshot(ctx context.Context, gameID uint) (*models.Game, consent.Snapshot, error) {
	var game models.Game
	var snap consent.Snapshot

	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&game, gameID).Error; err != nil {
			return notFound(err)
		}

		var players []models.GamePlayer
		if err := tx.Where("game_id = ?", gameID).Order("id").Find(&players).Error; err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		roster := make([]consent.RosterEntry, 0, len(players))
		for _, p := range players {
			roster = append(roster, p.ToConsent())
		}

		owners, err := formOwners(tx, consent.SharedFormIDs(roster))
		if err != nil {
			return fmt.Errorf("load shared forms: %w", err)
		}
		for i := range roster {
			entry := &roster[i]
			if entry.Status != consent.MembershipJoined || !entry.HasShared() {
				continue
			}
			owner, ok := owners[*entry.SharedFormID]
			if !ok || owner != entry.PlayerID {
				log.Printf("game %d: player %d references form %d they do not own, treating as unshared",
					gameID, entry.PlayerID, *entry.SharedFormID)
				entry.SharedFormID = nil
			}
		}

		responses, err := formResponses(tx, consent.SharedFormIDs(roster))
		if err != nil {
			return fmt.Errorf("load responses: %w", err)
		}

		snap = consent.Snapshot{
			MinimumPlayers: game.MinimumPlayers,
			Roster:         roster,
			Responses:      responses,
		}
		return nil
	}, s.snapshotOpts()...)
	if err != nil {
		return nil, consent.Snapshot{}, err
	}
	return &game, snap, nil
}

// snapshotOpts asks Postgres for a repeatable-read snapshot. SQLite transactions
// are serializable already.
func (s *Store) snapshotOpts() []*sql.TxOptions {
	if s.db.Dialector.Name() != "postgres" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

func formOwners(tx *gorm.DB, ids []uint) (map[uint]uint, error) {
	owners := make(map[uint]uint, len(ids))
	if len(ids) == 0 {
		return owners, nil
	}
	var forms []models.ConsentForm
	if err := tx.Select("id", "user_id").Where("id IN ?", ids).Find(&forms).Error; err != nil {
		return nil, err
	}
	for _, f := range forms {
		owners[f.ID] = f.UserID
	}
	return owners, nil
}

func formResponses(tx *gorm.DB, ids []uint) (map[uint][]consent.Response, error) {
	out := make(map[uint][]consent.Response, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ConsentResponse
	if err := tx.Where("consent_form_id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ConsentFormID] = append(out[r.ConsentFormID], r.ToConsent())
	}
	return out, nil
}
