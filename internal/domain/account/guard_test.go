package account

import (
	"context"
	"errors"
	"testing"

	"lessonmanager/internal/platform/identity"
)

func TestGuardRejectsMissingSecret(t *testing.T) {
	guard := NewGuard(identity.NewMemory())

	err := guard.Verify(context.Background(), "u1", "")
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
}

func TestGuardRejectsWrongSecret(t *testing.T) {
	provider := identity.NewMemory()
	provider.CreateWithID("u1", "a@x.com", "Alice", "correct-horse")
	guard := NewGuard(provider)

	err := guard.Verify(context.Background(), "u1", "wrong-horse")
	if !errors.Is(err, ErrReauthFailed) {
		t.Fatalf("expected ErrReauthFailed, got %v", err)
	}
}

func TestGuardRejectsUnknownPrincipal(t *testing.T) {
	guard := NewGuard(identity.NewMemory())

	err := guard.Verify(context.Background(), "ghost", "secret")
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGuardAcceptsMatchingSecret(t *testing.T) {
	provider := identity.NewMemory()
	provider.CreateWithID("u1", "a@x.com", "Alice", "correct-horse")
	guard := NewGuard(provider)

	if err := guard.Verify(context.Background(), "u1", "correct-horse"); err != nil {
		t.Fatalf("expected verification to pass, got %v", err)
	}
}
