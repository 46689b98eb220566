package store

import (
	"context"
	"errors"

	"mypalette/internal/domain/users"

	"gorm.io/gorm"
)

type Profiles struct {
	db *gorm.DB
}

func NewProfiles(db *gorm.DB) *Profiles { return &Profiles{db: db} }

func (s *Profiles) Create(ctx context.Context, p *users.Profile) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Profiles) ByEmail(ctx context.Context, email string) (users.Profile, error) {
	var p users.Profile
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *Profiles) ByID(ctx context.Context, id uint) (users.Profile, error) {
	var p users.Profile
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *Profiles) List(ctx context.Context) ([]users.Profile, error) {
	var out []users.Profile
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *Profiles) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.db.WithContext(ctx).Model(&users.Profile{}).Where("id = ?", id).Update("password", hash).Error
}

func (s *Profiles) SetRole(ctx context.Context, id uint, role users.Role) error {
	res := s.db.WithContext(ctx).Model(&users.Profile{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
