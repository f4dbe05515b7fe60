package models

import "gorm.io/gorm"

// User represents an account. The same user can be a DM of some games and a player in others.
type User struct {
	gorm.Model
	Username     string `gorm:"size:30;unique;not null"`
	Email        string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`
}
