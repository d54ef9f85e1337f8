package sec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/castellan/castellan/internal/storage"
	"github.com/castellan/castellan/internal/storage/db"
)

// fakeUsers is an in-memory credential store for login tests. A non-nil err
// simulates an unreachable store.
type fakeUsers struct {
	users map[string]db.User
	err   error
}

func (f *fakeUsers) GetUserByName(_ context.Context, name string) (db.User, error) {
	if f.err != nil {
		return db.User{}, f.err
	}
	user, ok := f.users[name]
	if !ok {
		return db.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetUser(context.Context, uint64) (db.User, error) {
	return db.User{}, storage.ErrNotFound
}

func (f *fakeUsers) ListUsers(context.Context, string, int32) ([]db.User, error) {
	return nil, nil
}

func (f *fakeUsers) UpsertUser(context.Context, db.User) error { return nil }

func (f *fakeUsers) DeleteUser(context.Context, uint64) error { return nil }

var _ storage.Users = (*fakeUsers)(nil)

func testStore(t *testing.T) *fakeUsers {
	t.Helper()
	hash, err := HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)
	return &fakeUsers{users: map[string]db.User{
		"alice": {ID: 1, Name: "alice", PasswordHash: hash, Enabled: true, Authorities: []string{"ADMIN"}},
		"carol": {ID: 2, Name: "carol", PasswordHash: hash, Enabled: false, Authorities: []string{"USER"}},
	}}
}

func TestLoginService_Login(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec(testSecret, time.Hour)
	service := NewLoginService(testStore(t), codec)

	t.Run("issued token validates to the subject", func(t *testing.T) {
		t.Parallel()
		token, err := service.Login(t.Context(), "alice", "secret")
		require.NoError(t, err)

		id, err := codec.Validate(token, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "alice", id.Subject)
		assert.Equal(t, []string{"ADMIN"}, id.Roles)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		_, err := service.Login(t.Context(), "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user is indistinguishable from wrong password", func(t *testing.T) {
		t.Parallel()
		_, err := service.Login(t.Context(), "mallory", "secret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		t.Parallel()
		_, err := service.Login(t.Context(), "carol", "secret")
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestLoginService_StoreUnavailable(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec(testSecret, time.Hour)
	service := NewLoginService(&fakeUsers{err: Error("connection refused")}, codec)

	_, err := service.Login(t.Context(), "alice", "secret")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
