package submissions

import (
	"time"

	"mypalette/internal/domain/users"

	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentFree     PaymentStatus = "free"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Submission struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	OpenCallID uint `gorm:"not null;index:idx_submissions_artist_call,priority:2;index" json:"open_call_id"`
	ArtistID   uint `gorm:"not null;index:idx_submissions_artist_call,priority:1" json:"artist_id"`

	Artist *users.Profile `gorm:"foreignKey:ArtistID;constraint:OnDelete:CASCADE;" json:"-"`

	Data datatypes.JSONType[Data] `gorm:"column:submission_data;type:jsonb;not null" json:"submission_data"`

	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	AmountMinor     int64         `gorm:"not null;default:0" json:"amount_minor"`
	Currency        string        `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	PaymentIntentID *string       `gorm:"uniqueIndex:idx_submissions_payment_intent" json:"-"`

	IsSelected   bool   `gorm:"not null;default:false" json:"is_selected"`
	CuratorNotes string `gorm:"type:text" json:"curator_notes,omitempty"`

	SubmittedAt time.Time `gorm:"not null;index" json:"submitted_at"`
}

// Counted statuses for "has the artist used their free submission".
var FreeSlotConsumed = []PaymentStatus{PaymentFree, PaymentPaid}

// CanAdvance lists the payment transitions driven by the payment provider.
func CanAdvance(from, to PaymentStatus) bool {
	switch from {
	case PaymentPending:
		return to == PaymentPaid || to == PaymentFailed
	case PaymentPaid:
		return to == PaymentRefunded
	default:
		return false
	}
}
