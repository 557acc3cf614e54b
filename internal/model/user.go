package model

import "time"

// User represents an application user record as stored in the
// `users` table.  It is the authenticated principal resolved from an
// access token on every protected request.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – display name chosen at signup.
//	Email        – unique email address; also the token subject.
//	PasswordHash – bcrypt hashed password.
//	Confirmed    – set once the email verification link was followed.
//	RefreshToken – the only refresh token currently accepted (nullable).
//	Avatar       – avatar image URL (Gravatar until an upload replaces it).
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    `json:"id"`         // users.id
	Username     string    `json:"username"`   // users.username
	Email        string    `json:"email"`      // users.email
	PasswordHash string    `json:"-"`          // users.password_hash
	Confirmed    bool      `json:"confirmed"`  // users.confirmed
	RefreshToken *string   `json:"-"`          // users.refresh_token (nullable)
	Avatar       string    `json:"avatar"`     // users.avatar
	CreatedAt    time.Time `json:"created_at"` // users.created_at
}

// HasRefreshToken reports whether token is the refresh token currently
// stored for the user.  An empty or missing stored value never matches.
func (u *User) HasRefreshToken(token string) bool {
	return u.RefreshToken != nil && *u.RefreshToken != "" && *u.RefreshToken == token
}
