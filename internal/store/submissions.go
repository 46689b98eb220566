package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"mypalette/internal/domain/opencalls"
	"mypalette/internal/domain/submissions"
	"mypalette/internal/domain/users"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Submissions owns the submissions table: one row per submission attempt.
type Submissions struct {
	db *gorm.DB
}

func NewSubmissions(db *gorm.DB) *Submissions { return &Submissions{db: db} }

// artistCallQuery selects the rows that hold one of the artist's slots on a
// call. Rows whose payment failed asynchronously give their slot back.
func artistCallQuery(db *gorm.DB, artistID, openCallID uint) *gorm.DB {
	return db.Model(&submissions.Submission{}).
		Where("artist_id = ? AND open_call_id = ? AND payment_status <> ?", artistID, openCallID, submissions.PaymentFailed)
}

// HasPriorPaidSubmission is platform-wide: any free or paid row means the
// artist's free submission is used up.
func (s *Submissions) HasPriorPaidSubmission(ctx context.Context, artistID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&submissions.Submission{}).
		Where("artist_id = ? AND payment_status IN ?", artistID, submissions.FreeSlotConsumed).
		Count(&n).Error
	return n > 0, err
}

func (s *Submissions) CountForCall(ctx context.Context, artistID, openCallID uint) (int, error) {
	var n int64
	if err := artistCallQuery(s.db.WithContext(ctx), artistID, openCallID).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// CreateWithinCap locks the open call row, re-counts the artist's rows for the
// call and inserts only while under limit. Concurrent submits for the same call
// serialize on the row lock. A free row additionally locks the artist's profile
// and re-checks the platform-wide free slot, so two calls cannot both be free.
func (s *Submissions) CreateWithinCap(ctx context.Context, sub *submissions.Submission, limit int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var call opencalls.OpenCall
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&call, "id = ?", sub.OpenCallID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !call.AcceptingSubmissions(sub.SubmittedAt) {
			return ErrCallClosed
		}

		var n int64
		if err := artistCallQuery(tx, sub.ArtistID, sub.OpenCallID).Count(&n).Error; err != nil {
			return err
		}
		if int(n) >= limit {
			return ErrCapReached
		}

		if sub.PaymentStatus == submissions.PaymentFree {
			var locked []users.Profile
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", sub.ArtistID).
				Find(&locked).Error; err != nil {
				return err
			}
			var used int64
			if err := tx.Model(&submissions.Submission{}).
				Where("artist_id = ? AND payment_status IN ?", sub.ArtistID, submissions.FreeSlotConsumed).
				Count(&used).Error; err != nil {
				return err
			}
			if used > 0 {
				return ErrFreeSlotTaken
			}
		}

		return tx.Create(sub).Error
	})
}

// Delete is idempotent: a missing row is not an error.
func (s *Submissions) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&submissions.Submission{}, "id = ?", id).Error
}

// DeletePending removes an unpaid pending row owned by artistID. Reports
// whether a row was removed.
func (s *Submissions) DeletePending(ctx context.Context, id, artistID uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&submissions.Submission{},
		"id = ? AND artist_id = ? AND payment_status = ?", id, artistID, submissions.PaymentPending)
	return res.RowsAffected > 0, res.Error
}

func (s *Submissions) Get(ctx context.Context, id uint) (submissions.Submission, error) {
	var sub submissions.Submission
	err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sub, ErrNotFound
	}
	return sub, err
}

func (s *Submissions) SetPaymentIntent(ctx context.Context, id uint, intentID string) error {
	return s.db.WithContext(ctx).
		Model(&submissions.Submission{}).
		Where("id = ?", id).
		Update("payment_intent_id", intentID).Error
}

// ListForCall returns the call's submissions newest first, with artists loaded.
func (s *Submissions) ListForCall(ctx context.Context, openCallID uint) ([]submissions.Submission, error) {
	var out []submissions.Submission
	err := s.db.WithContext(ctx).
		Preload("Artist").
		Where("open_call_id = ?", openCallID).
		Order("submitted_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (s *Submissions) ListForArtist(ctx context.Context, artistID uint) ([]submissions.Submission, error) {
	var out []submissions.Submission
	err := s.db.WithContext(ctx).
		Where("artist_id = ?", artistID).
		Order("submitted_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ApplyCuration overwrites is_selected and curator_notes for every submission
// of the call in one UPDATE, so rows dropped from the selection are cleared.
func (s *Submissions) ApplyCuration(ctx context.Context, openCallID uint, selected []uint, notes map[uint]string) error {
	updates := map[string]interface{}{
		"is_selected":   false,
		"curator_notes": "",
	}
	if len(selected) > 0 {
		updates["is_selected"] = gorm.Expr("id IN ?", selected)
	}
	if len(notes) > 0 {
		ids := make([]uint, 0, len(notes))
		for id := range notes {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		var sql strings.Builder
		args := make([]interface{}, 0, 2*len(ids))
		sql.WriteString("CASE id")
		for _, id := range ids {
			sql.WriteString(" WHEN ? THEN ?")
			args = append(args, id, notes[id])
		}
		sql.WriteString(" ELSE '' END")
		updates["curator_notes"] = gorm.Expr(sql.String(), args...)
	}
	return s.db.WithContext(ctx).
		Model(&submissions.Submission{}).
		Where("open_call_id = ?", openCallID).
		Updates(updates).Error
}

// AdvancePayment moves the row found by intent id (or by submissionID when the
// intent was never recorded) to status, if the transition is allowed.
// Replayed events return (false, nil).
func (s *Submissions) AdvancePayment(ctx context.Context, intentID string, submissionID uint, to submissions.PaymentStatus) (bool, error) {
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub submissions.Submission
		err := gorm.ErrRecordNotFound
		if intentID != "" {
			err = lockedFirst(tx, &sub, "payment_intent_id = ?", intentID)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) && submissionID != 0 {
			err = lockedFirst(tx, &sub, "id = ?", submissionID)
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if sub.PaymentStatus == to {
			return nil
		}
		if !submissions.CanAdvance(sub.PaymentStatus, to) {
			return ErrStaleUpdate
		}

		updates := map[string]interface{}{"payment_status": to}
		if intentID != "" && sub.PaymentIntentID == nil {
			updates["payment_intent_id"] = intentID
		}
		if err := tx.Model(&submissions.Submission{}).Where("id = ?", sub.ID).Updates(updates).Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

func lockedFirst(tx *gorm.DB, dest interface{}, query string, args ...interface{}) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(query, args...).First(dest).Error
}

type ArtistSummary struct {
	Total   int64 `json:"total"`
	Paid    int64 `json:"paid"`
	Free    int64 `json:"free"`
	Pending int64 `json:"pending"`
}

func (s *Submissions) SummaryForArtist(ctx context.Context, artistID uint) (ArtistSummary, error) {
	type row struct {
		PaymentStatus submissions.PaymentStatus
		Count         int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&submissions.Submission{}).
		Select("payment_status, COUNT(id) as count").
		Where("artist_id = ?", artistID).
		Group("payment_status").
		Scan(&rows).Error
	if err != nil {
		return ArtistSummary{}, err
	}

	var out ArtistSummary
	for _, r := range rows {
		out.Total += r.Count
		switch r.PaymentStatus {
		case submissions.PaymentPaid:
			out.Paid = r.Count
		case submissions.PaymentFree:
			out.Free = r.Count
		case submissions.PaymentPending:
			out.Pending = r.Count
		}
	}
	return out, nil
}

// FreeSubmissionAvailable reports whether the artist's next submission is free.
func (a ArtistSummary) FreeSubmissionAvailable() bool {
	return a.Free+a.Paid == 0
}

type PlatformStats struct {
	TotalSubmissions int64            `json:"total_submissions"`
	ByStatus         map[string]int64 `json:"by_status"`
	RevenueMinor     int64            `json:"revenue_minor"`
	RecentRevenue    int64            `json:"recent_revenue_minor"`
}

// Stats sums paid submission revenue overall and since the given time.
// Amounts of different currencies are added together.
func (s *Submissions) Stats(ctx context.Context, since time.Time) (PlatformStats, error) {
	db := s.db.WithContext(ctx)
	out := PlatformStats{ByStatus: map[string]int64{}}

	type row struct {
		PaymentStatus string
		Count         int64
	}
	var rows []row
	if err := db.Model(&submissions.Submission{}).
		Select("payment_status, COUNT(id) as count").
		Group("payment_status").
		Scan(&rows).Error; err != nil {
		return out, err
	}
	for _, r := range rows {
		out.ByStatus[r.PaymentStatus] = r.Count
		out.TotalSubmissions += r.Count
	}

	if err := db.Model(&submissions.Submission{}).
		Where("payment_status = ?", submissions.PaymentPaid).
		Select("COALESCE(SUM(amount_minor), 0)").
		Scan(&out.RevenueMinor).Error; err != nil {
		return out, err
	}
	err := db.Model(&submissions.Submission{}).
		Where("payment_status = ? AND submitted_at >= ?", submissions.PaymentPaid, since).
		Select("COALESCE(SUM(amount_minor), 0)").
		Scan(&out.RecentRevenue).Error
	return out, err
}
