// Package store persists session state between server runs.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no state was saved for a session
var ErrNotFound = errors.New("session not found")

// Repository loads and saves encoded session state keyed by session id
type Repository interface {
	Load(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, data []byte) error
	List(ctx context.Context) ([]string, error)
	Close() error
}
