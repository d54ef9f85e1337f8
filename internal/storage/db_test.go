package storage

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellan/castellan/internal/storage/db"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	store, err := NewDB(t.Context(), filepath.Join(t.TempDir(), "db.sqlite"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDB(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)

	const userID = 123
	const userName = "test"
	err := store.UpsertUser(t.Context(), db.User{
		ID:           userID,
		Name:         userName,
		PasswordHash: []byte("hash"),
		Enabled:      true,
		Authorities:  []string{"USER"},
	})
	require.NoError(t, err)

	t.Run("GetUserByName", func(t *testing.T) {
		t.Parallel()

		user, err := store.GetUserByName(t.Context(), userName)
		require.NoError(t, err)
		assert.Equal(t, uint64(userID), user.ID)
		assert.Equal(t, userName, user.Name)
		assert.Equal(t, []byte("hash"), user.PasswordHash)
		assert.True(t, user.Enabled)
		assert.Equal(t, []string{"USER"}, user.Authorities)

		_, err = store.GetUserByName(t.Context(), "nosuchuser")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("GetUser", func(t *testing.T) {
		t.Parallel()

		user, err := store.GetUser(t.Context(), userID)
		require.NoError(t, err)
		assert.Equal(t, userName, user.Name)

		_, err = store.GetUser(t.Context(), 999999)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("generates IDs", func(t *testing.T) {
		t.Parallel()

		name := "generated_id_user"
		err := store.UpsertUser(t.Context(), db.User{
			Name:         name,
			PasswordHash: []byte("hash"),
			Enabled:      true,
		})
		require.NoError(t, err)

		user, err := store.GetUserByName(t.Context(), name)
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
	})
}

func TestDB_UpsertUser(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)

	t.Run("replaces the authority set", func(t *testing.T) {
		t.Parallel()

		user := db.User{
			ID:           1,
			Name:         "roleswap",
			PasswordHash: []byte("hash"),
			Enabled:      true,
			Authorities:  []string{"USER"},
		}
		require.NoError(t, store.UpsertUser(t.Context(), user))

		user.Authorities = []string{"ADMIN", "AUDITOR"}
		require.NoError(t, store.UpsertUser(t.Context(), user))

		actual, err := store.GetUser(t.Context(), 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"ADMIN", "AUDITOR"}, actual.Authorities)
	})

	t.Run("updates by name without an ID", func(t *testing.T) {
		t.Parallel()

		user := db.User{
			Name:         "rehash",
			PasswordHash: []byte("old"),
			Enabled:      true,
		}
		require.NoError(t, store.UpsertUser(t.Context(), user))

		before, err := store.GetUserByName(t.Context(), "rehash")
		require.NoError(t, err)

		user.PasswordHash = []byte("new")
		require.NoError(t, store.UpsertUser(t.Context(), user))

		after, err := store.GetUserByName(t.Context(), "rehash")
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, []byte("new"), after.PasswordHash)
	})

	t.Run("rejects a taken username", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, store.UpsertUser(t.Context(), db.User{
			ID: 10, Name: "taken", PasswordHash: []byte("hash"), Enabled: true,
		}))
		err := store.UpsertUser(t.Context(), db.User{
			ID: 11, Name: "taken", PasswordHash: []byte("hash"), Enabled: true,
		})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("rejects invalid usernames", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{"", "ab", "has space", "semi;colon"} {
			err := store.UpsertUser(t.Context(), db.User{Name: name, PasswordHash: []byte("hash")})
			assert.ErrorIsf(t, err, ErrInvalidUsername, "username %q accepted", name)
		}
	})

	t.Run("rejects invalid authorities", func(t *testing.T) {
		t.Parallel()

		err := store.UpsertUser(t.Context(), db.User{
			Name:         "badrole",
			PasswordHash: []byte("hash"),
			Authorities:  []string{"admin"},
		})
		assert.ErrorIs(t, err, ErrInvalidAuthority)
	})
}

func TestDB_DeleteUser(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)

	require.NoError(t, store.UpsertUser(t.Context(), db.User{
		ID: 42, Name: "doomed", PasswordHash: []byte("hash"), Authorities: []string{"USER"},
	}))
	require.NoError(t, store.DeleteUser(t.Context(), 42))

	_, err := store.GetUser(t.Context(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDB_ListUsers(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)

	for _, name := range []string{"alpha", "bravo", "charlie"} {
		require.NoError(t, store.UpsertUser(t.Context(), db.User{
			Name: name, PasswordHash: []byte("hash"), Enabled: true,
		}))
	}

	users, err := store.ListUsers(t.Context(), "", 10)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "alpha", users[0].Name)

	// Pagination resumes after the given name.
	users, err = store.ListUsers(t.Context(), "alpha", 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bravo", users[0].Name)
}
