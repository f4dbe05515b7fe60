package store

import (
	"context"
	"strings"

	"tablesafe/backend/internal/models"
)

// CreateUser inserts a new account. Username and email must be unique.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	user := models.User{
		Username:     strings.ToLower(username),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
	}
	if err := s.conn(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByLogin looks a user up by username or email, case-insensitively.
func (s *Store) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	var user models.User
	err := s.conn(ctx).
		Where("username = ? OR email = ?", login, login).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindUserByUsername looks a user up by username, case-insensitively.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("username = ?", strings.ToLower(username)).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}
