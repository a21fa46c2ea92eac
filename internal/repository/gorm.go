package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relinkhq/url-shortener/internal/model"
)

// ErrDuplicateCode signals a short_code unique-index violation.
var ErrDuplicateCode = errors.New("short code already exists")

// GormStore implements Store over GORM/Postgres. The gorm.DB must be
// opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Insert(ctx context.Context, u *model.URL) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateCode
	}
	return err
}

func (s *GormStore) GetByCode(ctx context.Context, code string) (*model.URL, error) {
	var u model.URL
	err := s.db.WithContext(ctx).Where("short_code = ?", code).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.URL{}).Where("short_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) Claim(ctx context.Context, token string, userID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.URL{}).
		Where("claim_token = ? AND user_id IS NULL", token).
		Updates(map[string]any{"user_id": userID, "claim_token": nil})
	return res.RowsAffected, res.Error
}

func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&model.URL{}, "id = ?", id).Error
}

func (s *GormStore) ListByOwner(ctx context.Context, userID uuid.UUID, skip, limit int) ([]model.URL, error) {
	var urls []model.URL
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&urls).Error
	return urls, err
}
