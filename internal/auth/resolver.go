package auth

import (
	"context"

	"github.com/iliyamo/contacts-api/internal/model"
)

// UserFinder looks a user up by email.  It returns nil, nil when no such
// user exists.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Resolver turns a bearer access token into the current user.
type Resolver struct {
	codec *Codec
	users UserFinder
}

func NewResolver(codec *Codec, users UserFinder) *Resolver {
	return &Resolver{codec: codec, users: users}
}

// Resolve returns the user owning an access token.  Bad signatures, expired
// tokens, wrong scopes and unknown subjects all yield ErrUnauthorized so
// callers cannot tell them apart.  Storage errors are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, token string) (*model.User, error) {
	email, err := r.codec.Decode(token, ScopeAccess)
	if err != nil {
		return nil, ErrUnauthorized
	}
	u, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnauthorized
	}
	return u, nil
}
