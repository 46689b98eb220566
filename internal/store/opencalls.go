package store

import (
	"context"
	"errors"

	"mypalette/internal/domain/opencalls"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OpenCalls struct {
	db *gorm.DB
}

func NewOpenCalls(db *gorm.DB) *OpenCalls { return &OpenCalls{db: db} }

func (s *OpenCalls) Get(ctx context.Context, id uint) (opencalls.OpenCall, error) {
	var call opencalls.OpenCall
	err := s.db.WithContext(ctx).First(&call, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return call, ErrNotFound
	}
	return call, err
}

// ListLive returns live calls, featured first, then by nearest deadline.
func (s *OpenCalls) ListLive(ctx context.Context) ([]opencalls.OpenCall, error) {
	var out []opencalls.OpenCall
	err := s.db.WithContext(ctx).
		Where("status = ?", opencalls.StatusLive).
		Order("is_featured DESC, deadline ASC").
		Find(&out).Error
	return out, err
}

func (s *OpenCalls) ListAll(ctx context.Context) ([]opencalls.OpenCall, error) {
	var out []opencalls.OpenCall
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *OpenCalls) Create(ctx context.Context, call *opencalls.OpenCall) error {
	call.Status = opencalls.StatusPending
	return s.db.WithContext(ctx).Create(call).Error
}

// Transition applies a lifecycle move under a row lock.
func (s *OpenCalls) Transition(ctx context.Context, id uint, to opencalls.Status) (opencalls.OpenCall, error) {
	var call opencalls.OpenCall
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&call, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !opencalls.CanTransition(call.Status, to) {
			return opencalls.ErrInvalidTransition
		}
		if err := tx.Model(&opencalls.OpenCall{}).Where("id = ?", id).Update("status", to).Error; err != nil {
			return err
		}
		call.Status = to
		return nil
	})
	return call, err
}

func (s *OpenCalls) SetFeatured(ctx context.Context, id uint, featured bool) error {
	res := s.db.WithContext(ctx).Model(&opencalls.OpenCall{}).Where("id = ?", id).Update("is_featured", featured)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
