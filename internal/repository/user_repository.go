package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/contacts-api/internal/model"
)

const userColumns = "id, username, email, password_hash, confirmed, refresh_token, avatar, created_at"

// UserRepo persists accounts in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u       model.User
		refresh sql.NullString
		avatar  sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Confirmed, &refresh, &avatar, &u.CreatedAt); err != nil {
		return nil, err
	}
	if refresh.Valid {
		u.RefreshToken = &refresh.String
	}
	u.Avatar = avatar.String
	return &u, nil
}

// FindByEmail returns the user with the given email, or nil when absent.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// Create inserts u and fills its ID and CreatedAt.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, avatar) VALUES (?,?,?,?)",
		u.Username, u.Email, u.PasswordHash, u.Avatar)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return r.DB.QueryRowContext(ctx, "SELECT created_at FROM users WHERE id=?", u.ID).Scan(&u.CreatedAt)
}

// UpdateRefreshToken overwrites the stored refresh token. A nil token
// clears it. ErrUserNotFound means nothing was stored.
func (r *UserRepo) UpdateRefreshToken(ctx context.Context, userID uint64, token *string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET refresh_token=? WHERE id=?", token, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Confirm marks the email as verified.
func (r *UserRepo) Confirm(ctx context.Context, email string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET confirmed=TRUE WHERE email=?", email)
	return err
}

// UpdateAvatar sets the avatar URL and returns the updated user, or nil if
// the user no longer exists.
func (r *UserRepo) UpdateAvatar(ctx context.Context, email, url string) (*model.User, error) {
	if _, err := r.DB.ExecContext(ctx, "UPDATE users SET avatar=? WHERE email=?", url, email); err != nil {
		return nil, err
	}
	return r.FindByEmail(ctx, email)
}
