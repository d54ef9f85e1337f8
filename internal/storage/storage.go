// Package storage provides the persistent credential store.
package storage

import (
	"context"

	"github.com/castellan/castellan/internal/storage/db"
)

const (
	// ErrNotFound is returned when a user cannot be found.
	ErrNotFound Error = "not found"
	// ErrAlreadyExists is returned if the username is taken by another user.
	ErrAlreadyExists Error = "already exists"
	// ErrInvalidUsername is returned when a username fails validation.
	ErrInvalidUsername Error = "username must be 3-64 characters, alphanumeric and underscores only"
	// ErrInvalidAuthority is returned when a granted authority fails validation.
	ErrInvalidAuthority Error = "authority must be 1-64 characters, uppercase alphanumeric and underscores only"
)

// Error is an error type returned by the storage implementation.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }

// Users are the methods on a storage implementation that are responsible for
// accessing and modifying user credentials. Authentication only ever calls
// GetUserByName; the mutating methods serve the CLI and registration.
type Users interface {
	// ListUsers returns the users in a list, paginated by the given name (if
	// provided) up to the given limit of records.
	ListUsers(ctx context.Context, afterName string, limit int32) ([]db.User, error)
	// GetUser returns a single user with the specified ID. An [ErrNotFound] is
	// returned if the user ID does not exist.
	GetUser(ctx context.Context, userID uint64) (db.User, error)
	// GetUserByName returns a single user with the specified name, including
	// all granted authorities. An [ErrNotFound] is returned if the user name
	// does not exist.
	GetUserByName(ctx context.Context, name string) (db.User, error)
	// UpsertUser creates or updates the user and replaces its authority set.
	// This is a full PUT-style upsert. An [ErrAlreadyExists] error is returned
	// if the username belongs to a different user.
	UpsertUser(ctx context.Context, user db.User) error
	// DeleteUser removes a user and all granted authorities. Note that this
	// is a hard delete; data is not recoverable.
	DeleteUser(ctx context.Context, userID uint64) error
}

// Store is the [Users] interface plus lifecycle management.
type Store interface {
	Users
	// Close releases any resources held by the store. An error is returned if
	// the store cannot be cleanly closed.
	Close() error
}
