package account

import "errors"

var (
	// ErrReauthRequired is returned when a destructive operation is invoked
	// without a credential secret. There is no unauthenticated deletion path.
	ErrReauthRequired = errors.New("re-authentication secret required")
	// ErrReauthFailed is returned when the supplied secret no longer matches
	// the live credential.
	ErrReauthFailed = errors.New("re-authentication failed")
	// ErrNotScheduled is returned by the expiry path when no deletion record
	// exists for the user.
	ErrNotScheduled = errors.New("no deletion is scheduled for this account")
	// ErrNotExpired is returned by the expiry path when the grace period has
	// not elapsed yet.
	ErrNotExpired = errors.New("deletion grace period has not elapsed")
)
