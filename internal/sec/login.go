package sec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/castellan/castellan/internal/storage"
)

// LoginService authenticates credentials against the user store and issues
// bearer tokens. It only reads from the store; account creation and role
// changes happen elsewhere.
type LoginService struct {
	users storage.Users
	codec *TokenCodec
}

// NewLoginService creates a login service over the given store and codec.
func NewLoginService(users storage.Users, codec *TokenCodec) *LoginService {
	return &LoginService{users: users, codec: codec}
}

// Codec returns the token codec used for issued tokens.
func (s *LoginService) Codec() *TokenCodec { return s.codec }

// Login authenticates the username/password pair and returns a signed bearer
// token. An unknown username and a wrong password both surface as
// [ErrInvalidCredentials]; a disabled account as [ErrAccountDisabled]; a
// store failure as [ErrStoreUnavailable]. Nothing is persisted on success,
// the design is stateless.
func (s *LoginService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetUserByName(ctx, username)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "", ErrInvalidCredentials
	case err != nil:
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !user.Enabled {
		return "", ErrAccountDisabled
	}
	if err := ComparePassword(password, user.PasswordHash); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.codec.Issue(user.Name, user.Authorities, time.Now())
}
