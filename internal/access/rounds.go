package access

import (
	"context"

	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// roundsPerPage bounds the rounds fetched for one session.
const roundsPerPage = 200

// ListRounds returns the sparring rounds of one of the caller's
// sessions, oldest first.
func ListRounds(ctx context.Context, identity *auth.Identity, sessionID string) ([]storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	if _, errOwned := fetchOwnedSession(ctx, identity, sessionID); errOwned != nil {
		return nil, errOwned
	}
	return roundsForSession(ctx, identity, sessionID)
}

func roundsForSession(ctx context.Context, identity *auth.Identity, sessionID string) ([]storeclient.Record, error) {
	result, errList := identity.Client.Collection("rolling_rounds").List(ctx, 1, roundsPerPage, storeclient.ListOptions{
		Filter: storeclient.Filter(`session_id = {:session}`, map[string]any{"session": sessionID}),
		Sort:   "created",
	})
	if errList != nil {
		return nil, errList
	}
	return result.Items, nil
}

// CreateRound logs a sparring round on one of the caller's sessions.
// Ownership is transitive through the parent session.
func CreateRound(ctx context.Context, identity *auth.Identity, sessionID string, input map[string]any) (storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	if _, errOwned := fetchOwnedSession(ctx, identity, sessionID); errOwned != nil {
		return nil, errOwned
	}

	body := map[string]any{"session_id": sessionID}
	if value, ok := input["partner_name"]; ok {
		body["partner_name"] = optString(value)
	}
	if value, ok := input["partner_belt"]; ok {
		body["partner_belt"] = optString(value)
	}
	if value, ok := input["partner_stripe"]; ok {
		// Partner stripes keep an explicit zero.
		body["partner_stripe"] = optNumber(value)
	}
	if value, ok := input["outcome"]; ok {
		body["outcome"] = optString(value)
	}
	if value, ok := input["duration_seconds"]; ok {
		body["duration_seconds"] = optNumber(value)
	}
	if value, ok := input["notes"]; ok {
		body["notes"] = optString(value)
	}
	return identity.Client.Collection("rolling_rounds").Create(ctx, body)
}
