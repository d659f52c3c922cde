package account

import (
	"context"
	"fmt"

	"lessonmanager/internal/platform/identity"
)

// Guard gates destructive operations behind credential re-verification.
// A missing secret is a caller error, never an implicit pass.
type Guard struct {
	identity identity.Provider
}

func NewGuard(provider identity.Provider) *Guard {
	return &Guard{identity: provider}
}

// Verify confirms the caller still controls the credential for userID.
// It must run, and fail closed, before any anonymization write.
func (g *Guard) Verify(ctx context.Context, userID, secret string) error {
	if secret == "" {
		return ErrReauthRequired
	}

	principal, err := g.identity.Principal(ctx, userID)
	if err != nil {
		return fmt.Errorf("load principal %s: %w", userID, err)
	}

	ok, err := g.identity.Reverify(ctx, principal.Email, secret)
	if err != nil {
		return fmt.Errorf("reverify credential for %s: %w", userID, err)
	}
	if !ok {
		return ErrReauthFailed
	}
	return nil
}
