package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/contacts-api/internal/model"
)

// UserStore is the persistence the auth flows need. UpdateRefreshToken
// fails when no row matched the id, so a token is never handed out unstored.
type UserStore interface {
	UserFinder
	Create(ctx context.Context, u *model.User) error
	UpdateRefreshToken(ctx context.Context, userID uint64, token *string) error
	Confirm(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, email, url string) (*model.User, error)
}

// AvatarProvider derives a default avatar URL from an email address.
type AvatarProvider interface {
	ImageURL(email string) string
}

// AvatarStore persists uploaded avatar images and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// EmailConfirmation is handed to a Notifier after signup and on
// re-request.  Token is an email-scoped token for Email.
type EmailConfirmation struct {
	Email    string
	Username string
	Token    string
}

// Notifier delivers confirmation emails, directly or through a queue.
type Notifier interface {
	NotifyEmailConfirmation(ctx context.Context, msg EmailConfirmation) error
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// SignupInput carries validated signup data.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Service implements signup, login, refresh-token rotation and email
// confirmation on top of a Codec, a Hasher and a UserStore.
type Service struct {
	users    UserStore
	codec    *Codec
	hasher   Hasher
	avatars  AvatarProvider
	storage  AvatarStore
	notifier Notifier
	log      logrus.FieldLogger
}

// Deps groups the collaborators of a Service.  Storage may be nil, in which
// case avatar uploads fail with ErrStorageDisabled.
type Deps struct {
	Users    UserStore
	Codec    *Codec
	Hasher   Hasher
	Avatars  AvatarProvider
	Storage  AvatarStore
	Notifier Notifier
	Log      logrus.FieldLogger
}

func NewService(d Deps) *Service {
	if d.Users == nil || d.Codec == nil || d.Avatars == nil || d.Notifier == nil {
		panic("nil dependency passed to auth.NewService")
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &Service{
		users:    d.Users,
		codec:    d.Codec,
		hasher:   d.Hasher,
		avatars:  d.Avatars,
		storage:  d.Storage,
		notifier: d.Notifier,
		log:      d.Log,
	}
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an unconfirmed user with a Gravatar avatar and sends the
// confirmation email.  A failing notification is logged, not returned: the
// user can ask for the email again.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	email := NormalizeEmail(in.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        email,
		PasswordHash: hash,
		Avatar:       s.avatars.ImageURL(email),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.sendConfirmation(ctx, u)
	return u, nil
}

// Login checks credentials and rotates the stored refresh token.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return TokenPair{}, err
	}
	if u == nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !u.Confirmed {
		return TokenPair{}, ErrEmailNotConfirmed
	}
	return s.issuePair(ctx, u)
}

// Refresh exchanges the user's current refresh token for a new pair.  Any
// token that is not the one stored on the user (expired, forged, of another
// scope or already rotated away) is rejected with ErrUnauthorized.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	email, err := s.codec.Decode(refreshToken, ScopeRefresh)
	if err != nil {
		return TokenPair{}, ErrUnauthorized
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, err
	}
	if u == nil || !u.HasRefreshToken(refreshToken) {
		return TokenPair{}, ErrUnauthorized
	}
	return s.issuePair(ctx, u)
}

// ConfirmEmail marks the token's user as confirmed.  Confirming twice is
// not an error; the second call reports alreadyConfirmed.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (alreadyConfirmed bool, err error) {
	email, err := s.codec.DecodeEmailToken(token)
	if err != nil {
		return false, err
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, ErrVerificationFailed
	}
	if u.Confirmed {
		return true, nil
	}
	if err := s.users.Confirm(ctx, email); err != nil {
		return false, err
	}
	return false, nil
}

// RequestEmail re-sends the confirmation email for an unconfirmed account.
// It reports alreadyConfirmed for confirmed accounts and does nothing for
// unknown addresses, so callers can answer uniformly.
func (s *Service) RequestEmail(ctx context.Context, email string) (alreadyConfirmed bool, err error) {
	u, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, nil
	}
	if u.Confirmed {
		return true, nil
	}
	s.sendConfirmation(ctx, u)
	return false, nil
}

// AvatarUpload describes an uploaded avatar image.
type AvatarUpload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdateAvatar stores the image and points the user's avatar at it.
func (s *Service) UpdateAvatar(ctx context.Context, u *model.User, img AvatarUpload) (*model.User, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	key := fmt.Sprintf("avatars/%d", u.ID)
	url, err := s.storage.Upload(ctx, key, img.ContentType, img.Body, img.Size)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	updated, err := s.users.UpdateAvatar(ctx, u.Email, url)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrUnauthorized
	}
	return updated, nil
}

// issuePair mints access and refresh tokens and stores the refresh token.
// Tokens are only handed out once the overwrite is committed.
func (s *Service) issuePair(ctx context.Context, u *model.User) (TokenPair, error) {
	access, err := s.codec.AccessToken(u.Email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.RefreshToken(u.Email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.users.UpdateRefreshToken(ctx, u.ID, &refresh); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	u.RefreshToken = &refresh
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *Service) sendConfirmation(ctx context.Context, u *model.User) {
	log := s.log.WithField("email", u.Email)
	token, err := s.codec.EmailToken(u.Email)
	if err != nil {
		log.WithError(err).Error("issue email token failed")
		return
	}
	err = s.notifier.NotifyEmailConfirmation(ctx, EmailConfirmation{
		Email:    u.Email,
		Username: u.Username,
		Token:    token,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Warn("confirmation email not sent")
	}
}
