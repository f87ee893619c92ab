// Package storage persists the mapping from Google subject id to refresh
// token and profile metadata. Two backends exist: Firestore for production
// and an in-memory store for tests and local development. Only single-key
// atomicity is assumed; concurrent upserts for the same key are
// last-write-wins.
package storage

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when no record exists for a subject id
var ErrUserNotFound = errors.New("user not found")

// UserStore defines the persistence operations the protocol engine needs
type UserStore interface {
	// Get returns the stored user for a subject id, or ErrUserNotFound.
	Get(ctx context.Context, id string) (*GoogleUser, error)

	// Upsert creates or overwrites the record keyed by user.ID.
	Upsert(ctx context.Context, user *GoogleUser) error

	// ListUsers returns all stored users.
	ListUsers(ctx context.Context) ([]*GoogleUser, error)

	// Close releases backend resources.
	Close() error
}
