// Package store is the persistence boundary for accounts, consent forms, games and rosters.
// Every method takes the acting user explicitly; nothing here reads ambient identity.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("already exists")
	ErrOwnGame        = errors.New("cannot join your own game")
	ErrGameClosed     = errors.New("game is not accepting players")
	ErrNotMember      = errors.New("not a member of this game")
	ErrDuplicateTopic = errors.New("duplicate topic in form")
)

// Store wraps a GORM handle.
type Store struct {
	db *gorm.DB
}

// New creates a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// paginate counts and fetches one page of query. The query is wrapped in a session so the
// count and the fetch do not share clauses.
func paginate[T any](query *gorm.DB, page, limit int) ([]T, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Model(new(T)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []T
	offset := (page - 1) * limit
	if err := query.Offset(offset).Limit(limit).Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
