package users

import "time"

// Role is stored on the profile; nothing in code grants roles by identity.
type Role string

const (
	RoleArtist Role = "artist"
	RoleHost   Role = "host"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) Role {
	switch Role(s) {
	case RoleHost, RoleAdmin:
		return Role(s)
	default:
		return RoleArtist
	}
}

type Profile struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Name     string  `json:"name"`
	Lastname string  `json:"lastname"`
	Username *string `gorm:"uniqueIndex:idx_profiles_username" json:"username,omitempty"`
	Email    string  `gorm:"not null;uniqueIndex:idx_profiles_email" json:"email"`
	Password *string `json:"-"`
	Role     Role    `gorm:"type:varchar(20);not null;default:'artist'" json:"role"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName falls back to the username, then the email.
func (p Profile) DisplayName() string {
	full := p.Name
	if p.Lastname != "" {
		if full != "" {
			full += " "
		}
		full += p.Lastname
	}
	if full != "" {
		return full
	}
	if p.Username != nil && *p.Username != "" {
		return *p.Username
	}
	return p.Email
}

// ContactHandle is "@username" when a username exists, else the email.
func (p Profile) ContactHandle() string {
	if p.Username != nil && *p.Username != "" {
		return "@" + *p.Username
	}
	return p.Email
}
