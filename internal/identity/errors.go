// Package identity defines the error taxonomy shared by the provider
// gateway, the local user store, and the auth service. Callers match with
// errors.Is; the HTTP layer maps each kind to a status code.
package identity

import "errors"

var (
	// ErrConfiguration means required startup configuration is missing or
	// invalid. Fatal: no request can succeed until it is fixed.
	ErrConfiguration = errors.New("identity: invalid configuration")

	// Provider-reported conditions, mapped 1:1 from provider error codes.
	ErrDuplicateAccount   = errors.New("identity: account already exists")
	ErrAccountNotFound    = errors.New("identity: account not found")
	ErrAccountUnconfirmed = errors.New("identity: account not confirmed")
	ErrInvalidCredential  = errors.New("identity: invalid credentials")
	ErrInvalidCode        = errors.New("identity: invalid confirmation code")
	ErrCodeExpired        = errors.New("identity: confirmation code expired")
	ErrWeakCredential     = errors.New("identity: password does not meet requirements")
	ErrTokenExpired       = errors.New("identity: token expired")
	ErrInvalidToken       = errors.New("identity: invalid token")

	// ErrTransport covers network and timeout failures reaching the
	// provider. Retryable, but never retried here.
	ErrTransport = errors.New("identity: provider unreachable")

	// ErrPersistence is a local store failure during create/find/remove.
	ErrPersistence = errors.New("identity: persistence failure")

	// ErrUserNotFound is a local lookup miss (delete-by-id path).
	ErrUserNotFound = errors.New("identity: user not found")
)
