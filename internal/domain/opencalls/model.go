package opencalls

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusLive    Status = "live"
	StatusClosed  Status = "closed"
)

type OpenCall struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	HostID *uint `gorm:"index" json:"host_id,omitempty"`

	Title        string    `gorm:"not null" json:"title"`
	Description  string    `json:"description"`
	Organization string    `json:"organization"`
	Deadline     time.Time `gorm:"not null;index" json:"deadline"`

	// SubmissionFee is the advertised fee in minor units; see pricing.Policy.BaseFee
	// for what is actually charged.
	SubmissionFee  int64  `gorm:"not null;default:0" json:"submission_fee"`
	Currency       string `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	MaxSubmissions int    `gorm:"not null;default:0" json:"max_submissions"`
	NumWinners     int    `gorm:"not null;default:1" json:"num_winners"`

	Status     Status `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	IsFeatured bool   `gorm:"not null;default:false" json:"is_featured"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
