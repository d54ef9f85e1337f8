package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math/rand/v2"
	"regexp"

	"github.com/influxdata/influxdb/pkg/snowflake"

	"github.com/castellan/castellan/internal/storage/db"
)

// Username and authority validation constraints.
const (
	minUsernameLen  = 3
	maxUsernameLen  = 64
	maxAuthorityLen = 64
)

var (
	usernameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	authorityRegex = regexp.MustCompile(`^[A-Z0-9_]+$`)
)

// validateUsername validates that a username meets the requirements:
// 3-64 characters, alphanumeric and underscores only.
func validateUsername(name string) bool {
	return len(name) >= minUsernameLen &&
		len(name) <= maxUsernameLen &&
		usernameRegex.MatchString(name)
}

// validateAuthority validates that a granted authority meets the
// requirements: 1-64 characters, uppercase alphanumeric and underscores only.
func validateAuthority(authority string) bool {
	return len(authority) >= 1 &&
		len(authority) <= maxAuthorityLen &&
		authorityRegex.MatchString(authority)
}

// DB is a [Store] backed by a SQLite database.
type DB struct {
	ids     *snowflake.Generator
	db      *sql.DB
	queries *db.Queries
}

// NewDB initializes a DB at the given path with the given logger.
func NewDB(ctx context.Context, dbPath string, logger *slog.Logger) (*DB, error) {
	handle, err := db.Open(ctx, logger, dbPath)
	if err != nil {
		return nil, err
	}
	return &DB{
		ids:     snowflake.New(rand.IntN(1023)), //nolint:gosec,mnd // this isn't for crypto
		db:      handle,
		queries: db.New(handle),
	}, nil
}

// Close satisfies the [Store] interface.
func (d *DB) Close() error {
	return d.db.Close()
}

// ListUsers satisfies the [Users] interface.
func (d *DB) ListUsers(ctx context.Context, afterName string, limit int32) ([]db.User, error) {
	return d.queries.GetUsers(ctx, afterName, int64(limit))
}

// GetUser satisfies the [Users] interface.
func (d *DB) GetUser(ctx context.Context, userID uint64) (db.User, error) {
	user, err := d.queries.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return user, ErrNotFound
	}
	return user, err
}

// GetUserByName satisfies the [Users] interface.
func (d *DB) GetUserByName(ctx context.Context, name string) (db.User, error) {
	user, err := d.queries.GetUserByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return user, ErrNotFound
	}
	return user, err
}

// UpsertUser satisfies the [Users] interface.
func (d *DB) UpsertUser(ctx context.Context, user db.User) error {
	if !validateUsername(user.Name) {
		return ErrInvalidUsername
	}
	for _, authority := range user.Authorities {
		if !validateAuthority(authority) {
			return ErrInvalidAuthority
		}
	}
	existing, err := d.queries.GetUserByName(ctx, user.Name)
	switch {
	case err == nil && user.ID != 0 && existing.ID != user.ID:
		return ErrAlreadyExists
	case err == nil && user.ID == 0:
		user.ID = existing.ID
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return err
	}
	if user.ID == 0 {
		user.ID = d.ids.Next()
	}
	return d.queries.UpsertUser(ctx, user)
}

// DeleteUser satisfies the [Users] interface.
func (d *DB) DeleteUser(ctx context.Context, userID uint64) error {
	return d.queries.DeleteUser(ctx, userID)
}

var _ Store = (*DB)(nil)
