package access

import "mypalette/internal/domain/users"

// Session is the caller identity handed to the workflows.
type Session interface {
	CurrentUserID() (uint, bool)
	Role() users.Role
}

// ClaimsSession is built from verified token claims.
type ClaimsSession struct {
	UserID   uint
	UserRole users.Role
}

func (s ClaimsSession) CurrentUserID() (uint, bool) {
	return s.UserID, s.UserID != 0
}

func (s ClaimsSession) Role() users.Role {
	if s.UserRole == "" {
		return users.RoleArtist
	}
	return s.UserRole
}

// Anonymous has no user.
var Anonymous Session = ClaimsSession{}

func IsAdmin(s Session) bool {
	return s != nil && s.Role() == users.RoleAdmin
}

// CanHost reports whether the session may create open calls.
func CanHost(s Session) bool {
	if s == nil {
		return false
	}
	r := s.Role()
	return r == users.RoleHost || r == users.RoleAdmin
}
