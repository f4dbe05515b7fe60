package models

import (
	"time"

	"tablesafe/backend/internal/consent"
)

// ConsentForm is a named, reusable set of topic ratings owned by one player.
// A form is never shared by itself; sharing is recorded on a GamePlayer row.
type ConsentForm struct {
	ID               uint    `gorm:"primaryKey"`
	UserID           uint    `gorm:"not null;index"`
	Name             string  `gorm:"size:255;not null"`
	IsPublic         bool    `gorm:"not null;default:false;index"`
	MovieRating      *string `gorm:"size:10"`
	MovieRatingOther *string `gorm:"size:255"`
	FollowUpResponse *string
	// ShareToken is generated once on create and never changes.
	ShareToken string    `gorm:"size:64;uniqueIndex;not null;<-:create"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`

	User      User              `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
	Responses []ConsentResponse `gorm:"foreignKey:ConsentFormID;constraint:OnDelete:CASCADE;"`
}

// ConsentResponse is one (category, topic, rating) entry of a form.
// (ConsentFormID, TopicCategory, TopicName) is unique.
type ConsentResponse struct {
	ID            uint           `gorm:"primaryKey"`
	ConsentFormID uint           `gorm:"not null;index;uniqueIndex:idx_consent_responses_unique"`
	TopicCategory string         `gorm:"size:255;not null;uniqueIndex:idx_consent_responses_unique"`
	TopicName     string         `gorm:"size:255;not null;uniqueIndex:idx_consent_responses_unique"`
	ComfortLevel  consent.Rating `gorm:"size:10;not null"`
	IsCustom      bool           `gorm:"not null;default:false;index"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

// ToConsent converts the row into the engine's response type.
func (r ConsentResponse) ToConsent() consent.Response {
	return consent.Response{
		Category:  r.TopicCategory,
		TopicName: r.TopicName,
		Rating:    r.ComfortLevel,
		IsCustom:  r.IsCustom,
	}
}
