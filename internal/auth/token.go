package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes.  Access and refresh lifetimes can be changed
// through configuration; email tokens always live EmailTokenTTL.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	EmailTokenTTL     = 7 * 24 * time.Hour
)

// Scope tags what a token may be used for.  All scopes share one claim
// structure and one signing key.
type Scope uint8

const (
	ScopeAccess Scope = iota + 1
	ScopeRefresh
	ScopeEmail
)

var scopeNames = map[Scope]string{
	ScopeAccess:  "access_token",
	ScopeRefresh: "refresh_token",
	ScopeEmail:   "email_token",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scope(%d)", uint8(s))
}

func (s Scope) MarshalText() ([]byte, error) {
	name, ok := scopeNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown token scope %d", uint8(s))
	}
	return []byte(name), nil
}

func (s *Scope) UnmarshalText(b []byte) error {
	for scope, name := range scopeNames {
		if name == string(b) {
			*s = scope
			return nil
		}
	}
	return fmt.Errorf("unknown token scope %q", b)
}

// Claims is the signed payload of every token.  Subject carries the user
// email; ID is a random jti so two tokens minted in the same second differ.
type Claims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens with a single HMAC secret.
type Codec struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithTTLs overrides the access and refresh lifetimes.  Non-positive values
// keep the defaults.
func WithTTLs(access, refresh time.Duration) CodecOption {
	return func(c *Codec) {
		if access > 0 {
			c.accessTTL = access
		}
		if refresh > 0 {
			c.refreshTTL = refresh
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a Codec for the named HMAC algorithm (HS256, HS384 or
// HS512).
func NewCodec(secret, algorithm string, opts ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}
	c := &Codec{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token of the given scope for subject.  ttl is used as is;
// a zero ttl produces a token that is already expired.
func (c *Codec) Issue(scope Scope, subject string, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// AccessToken issues an access token with the configured lifetime.
func (c *Codec) AccessToken(subject string) (string, error) {
	return c.Issue(ScopeAccess, subject, c.accessTTL)
}

// RefreshToken issues a refresh token with the configured lifetime.
func (c *Codec) RefreshToken(subject string) (string, error) {
	return c.Issue(ScopeRefresh, subject, c.refreshTTL)
}

// EmailToken issues an email verification token.  Its lifetime is fixed.
func (c *Codec) EmailToken(subject string) (string, error) {
	return c.Issue(ScopeEmail, subject, EmailTokenTTL)
}

// Decode verifies signature, algorithm and expiry and returns the subject.
// It fails with ErrInvalidToken when the token cannot be trusted and with
// ErrWrongScope when it is valid but minted for another purpose.
func (c *Codec) Decode(token string, expected Scope) (string, error) {
	claims, err := c.parse(token)
	if err != nil {
		return "", err
	}
	if claims.Scope != expected {
		return "", ErrWrongScope
	}
	return claims.Subject, nil
}

// DecodeEmailToken is Decode for ScopeEmail with the verification error
// class: untrusted tokens yield ErrEmailTokenInvalid instead of
// ErrInvalidToken.  A trusted token of another scope still yields
// ErrWrongScope.
func (c *Codec) DecodeEmailToken(token string) (string, error) {
	sub, err := c.Decode(token, ScopeEmail)
	if errors.Is(err, ErrInvalidToken) {
		return "", fmt.Errorf("%w: %w", ErrEmailTokenInvalid, err)
	}
	return sub, err
}

func (c *Codec) parse(token string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
