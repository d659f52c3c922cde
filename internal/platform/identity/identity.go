// Package identity abstracts the authentication backend: principal lookup,
// credential re-verification, and irreversible principal removal.
package identity

import (
	"context"
	"errors"
	"time"
)

type Principal struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

var (
	ErrNotFound       = errors.New("principal not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("credentials do not match")
)

type Provider interface {
	// Principal returns the principal by id, or ErrNotFound.
	Principal(ctx context.Context, id string) (*Principal, error)
	// PrincipalByEmail returns the principal by email, or ErrNotFound.
	PrincipalByEmail(ctx context.Context, email string) (*Principal, error)
	// Create registers a new principal with a bcrypt-hashed secret.
	Create(ctx context.Context, email, displayName, secret string) (*Principal, error)
	// Reverify re-derives the credential from email and secret and checks it
	// against the stored one. A mismatch or unknown email returns false.
	Reverify(ctx context.Context, email, secret string) (bool, error)
	// Delete permanently removes the principal. Deleting an already-deleted
	// principal is a no-op.
	Delete(ctx context.Context, id string) error
}
