package store

import (
	"context"
	"fmt"

	"tablesafe/backend/internal/consent"
	"tablesafe/backend/internal/models"

	"gorm.io/gorm"
)

// FormInput is the full content of a consent form. Responses replace whatever the form
// held before.
type FormInput struct {
	Name             string
	IsPublic         bool
	MovieRating      *string
	MovieRatingOther *string
	FollowUpResponse *string
	Responses        []consent.Response
}

// FormSummary is a form row plus its response count.
type FormSummary struct {
	models.ConsentForm
	ResponsesCount int64
}

func (in FormInput) validate() error {
	seen := make(map[consent.TopicKey]bool, len(in.Responses))
	for _, r := range in.Responses {
		key := consent.TopicKey{Category: r.Category, TopicName: r.TopicName}
		if seen[key] {
			return fmt.Errorf("%w: %s / %s", ErrDuplicateTopic, r.Category, r.TopicName)
		}
		seen[key] = true
	}
	return nil
}

func responseRows(formID uint, responses []consent.Response) []models.ConsentResponse {
	rows := make([]models.ConsentResponse, 0, len(responses))
	for _, r := range responses {
		rows = append(rows, models.ConsentResponse{
			ConsentFormID: formID,
			TopicCategory: r.Category,
			TopicName:     r.TopicName,
			ComfortLevel:  r.Rating,
			IsCustom:      r.IsCustom,
		})
	}
	return rows
}

// ListForms returns one page of the owner's forms, newest first.
func (s *Store) ListForms(ctx context.Context, ownerID uint, page, limit int) ([]FormSummary, int64, error) {
	query := s.conn(ctx).Where("user_id = ?", ownerID).Order("created_at DESC, id DESC")
	forms, total, err := paginate[models.ConsentForm](query, page, limit)
	if err != nil {
		return nil, 0, err
	}

	counts, err := s.responseCounts(ctx, forms)
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]FormSummary, 0, len(forms))
	for _, f := range forms {
		summaries = append(summaries, FormSummary{ConsentForm: f, ResponsesCount: counts[f.ID]})
	}
	return summaries, total, nil
}

func (s *Store) responseCounts(ctx context.Context, forms []models.ConsentForm) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(forms))
	if len(forms) == 0 {
		return counts, nil
	}
	ids := make([]uint, 0, len(forms))
	for _, f := range forms {
		ids = append(ids, f.ID)
	}

	var rows []struct {
		ConsentFormID uint
		Count         int64
	}
	err := s.conn(ctx).Model(&models.ConsentResponse{}).
		Select("consent_form_id, COUNT(*) AS count").
		Where("consent_form_id IN ?", ids).
		Group("consent_form_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ConsentFormID] = r.Count
	}
	return counts, nil
}

// GetOwnedForm loads a form with its responses, checking that ownerID owns it.
func (s *Store) GetOwnedForm(ctx context.Context, ownerID, formID uint) (*models.ConsentForm, error) {
	var form models.ConsentForm
	if err := s.conn(ctx).Preload("Responses", orderResponses).First(&form, formID).Error; err != nil {
		return nil, notFound(err)
	}
	if form.UserID != ownerID {
		return nil, ErrForbidden
	}
	return &form, nil
}

func orderResponses(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

// CreateForm stores a new form and its responses in one transaction.
func (s *Store) CreateForm(ctx context.Context, ownerID uint, in FormInput) (*models.ConsentForm, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	form := models.ConsentForm{
		UserID:           ownerID,
		Name:             in.Name,
		IsPublic:         in.IsPublic,
		MovieRating:      in.MovieRating,
		MovieRatingOther: in.MovieRatingOther,
		FollowUpResponse: in.FollowUpResponse,
		ShareToken:       newShareToken(),
	}
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Responses", "User").Create(&form).Error; err != nil {
			return err
		}
		rows := responseRows(form.ID, in.Responses)
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		form.Responses = rows
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTopic
		}
		return nil, err
	}
	return &form, nil
}

// UpdateForm replaces a form's fields and all of its responses.
func (s *Store) UpdateForm(ctx context.Context, ownerID, formID uint, in FormInput) (*models.ConsentForm, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var form models.ConsentForm
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&form, formID).Error; err != nil {
			return notFound(err)
		}
		if form.UserID != ownerID {
			return ErrForbidden
		}

		err := tx.Model(&form).
			Select("Name", "IsPublic", "MovieRating", "MovieRatingOther", "FollowUpResponse").
			Updates(models.ConsentForm{
				Name:             in.Name,
				IsPublic:         in.IsPublic,
				MovieRating:      in.MovieRating,
				MovieRatingOther: in.MovieRatingOther,
				FollowUpResponse: in.FollowUpResponse,
			}).Error
		if err != nil {
			return err
		}

		if err := tx.Where("consent_form_id = ?", form.ID).Delete(&models.ConsentResponse{}).Error; err != nil {
			return err
		}
		rows := responseRows(form.ID, in.Responses)
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return tx.Preload("Responses", orderResponses).First(&form, form.ID).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTopic
		}
		return nil, err
	}
	return &form, nil
}

// DeleteForm removes a form and its responses. Roster entries that shared it fall back to
// unshared; one RosterChange is returned per affected game.
func (s *Store) DeleteForm(ctx context.Context, ownerID, formID uint) ([]RosterChange, error) {
	var changes []RosterChange
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var form models.ConsentForm
		if err := tx.First(&form, formID).Error; err != nil {
			return notFound(err)
		}
		if form.UserID != ownerID {
			return ErrForbidden
		}

		var entries []models.GamePlayer
		if err := tx.Where("consent_form_id = ?", form.ID).Find(&entries).Error; err != nil {
			return err
		}
		if len(entries) > 0 {
			err := tx.Model(&models.GamePlayer{}).
				Where("consent_form_id = ?", form.ID).
				Update("consent_form_id", nil).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Where("consent_form_id = ?", form.ID).Delete(&models.ConsentResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&form).Error; err != nil {
			return err
		}

		for _, entry := range entries {
			change, err := recordChange(tx, entry.GameID, &entry.UserID, models.EventFormUnshared)
			if err != nil {
				return err
			}
			changes = append(changes, *change)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// PublicForms lists a user's public forms with responses, newest first.
func (s *Store) PublicForms(ctx context.Context, username string) (*models.User, []models.ConsentForm, error) {
	user, err := s.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	var forms []models.ConsentForm
	err = s.conn(ctx).
		Preload("Responses", orderResponses).
		Where("user_id = ? AND is_public = ?", user.ID, true).
		Order("created_at DESC, id DESC").
		Find(&forms).Error
	if err != nil {
		return nil, nil, err
	}
	return user, forms, nil
}

// PublicForm loads one public form that belongs to username.
func (s *Store) PublicForm(ctx context.Context, username string, formID uint) (*models.User, *models.ConsentForm, error) {
	user, err := s.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	var form models.ConsentForm
	err = s.conn(ctx).
		Preload("Responses", orderResponses).
		Where("id = ? AND user_id = ? AND is_public = ?", formID, user.ID, true).
		First(&form).Error
	if err != nil {
		return nil, nil, notFound(err)
	}
	return user, &form, nil
}

// FormByShareToken loads a form by its share token. Holding the token is the authorization.
func (s *Store) FormByShareToken(ctx context.Context, token string) (*models.ConsentForm, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var form models.ConsentForm
	err := s.conn(ctx).
		Preload("User").
		Preload("Responses", orderResponses).
		Where("share_token = ?", token).
		First(&form).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &form, nil
}
