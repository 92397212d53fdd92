// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the account entity. PasswordHash and RefreshToken never leave the
// service layer; use Public for anything crossing the system boundary.
type User struct {
	ID           string
	UserName     string
	Email        string
	FullName     string
	PasswordHash string
	// RefreshToken is the single active session reference. Empty means no
	// active session. Overwritten on login, compare-and-swapped on refresh,
	// cleared on logout.
	RefreshToken string
	AvatarKey    string
	AvatarURL    string
	CoverKey     string
	CoverURL     string
	CreatedAt    time.Time
}

// PublicUser is the projection of User that is safe to return to clients:
// no password hash, no refresh token.
type PublicUser struct {
	ID        string `json:"id"`
	UserName  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
	CoverURL  string `json:"coverImage"`
}

// Public returns the client-safe projection of the user.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		CoverURL:  u.CoverURL,
	}
}
