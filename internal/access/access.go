// Package access implements the ownership-scoped data accessors: every
// read of a user-owned entity is filtered by the caller's user id, and
// every mutation re-checks ownership before touching the store.
package access

import (
	"context"
	"errors"

	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// Access failures surfaced to the HTTP layer.
var (
	// ErrUnauthorized indicates the request carries no valid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller does not own the record.
	ErrForbidden = errors.New("forbidden")
)

// owns reports whether the identity owns a record by its user_id field.
func owns(identity *auth.Identity, record storeclient.Record) bool {
	return identity != nil && record.GetString("user_id") == identity.UserID
}

// requireIdentity rejects anonymous callers.
func requireIdentity(identity *auth.Identity) error {
	if identity == nil || identity.Client == nil {
		return ErrUnauthorized
	}
	return nil
}

// fetchOwnedSession loads a session and verifies the caller owns it.
// Used directly and for transitive ownership of rounds and technique
// links.
func fetchOwnedSession(ctx context.Context, identity *auth.Identity, sessionID string) (storeclient.Record, error) {
	record, errGet := identity.Client.Collection("sessions").Get(ctx, sessionID, "")
	if errGet != nil {
		return nil, errGet
	}
	if !owns(identity, record) {
		return nil, ErrForbidden
	}
	return record, nil
}
