package access

import (
	"context"

	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// GetProfile returns the caller's profile with the gym expanded, or nil
// when none exists yet.
func GetProfile(ctx context.Context, identity *auth.Identity) (storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	profile, errFirst := identity.Client.Collection("profiles").First(ctx, storeclient.ListOptions{
		Filter: storeclient.Filter(`user_id = {:user}`, map[string]any{"user": identity.UserID}),
		Expand: "gym_id",
	})
	if storeclient.IsNotFound(errFirst) {
		return nil, nil
	}
	if errFirst != nil {
		return nil, errFirst
	}
	return profile, nil
}

// SaveProfile upserts the caller's profile: update the existing record
// when one exists, otherwise create it. The store's unique index on
// user_id keeps a concurrent double-submit from creating two rows.
func SaveProfile(ctx context.Context, identity *auth.Identity, input map[string]any) (storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}

	body := map[string]any{}
	if value, ok := input["belt"]; ok {
		body["belt"] = optString(value)
	}
	if value, ok := input["stripes"]; ok {
		// Profile stripes keep an explicit zero.
		body["stripes"] = optNumber(value)
	}
	if value, ok := input["gym_id"]; ok {
		body["gym_id"] = optString(value)
	}
	if value, ok := input["display_name"]; ok {
		body["display_name"] = optString(value)
	}

	profiles := identity.Client.Collection("profiles")
	existing, errFirst := profiles.First(ctx, storeclient.ListOptions{
		Filter: storeclient.Filter(`user_id = {:user}`, map[string]any{"user": identity.UserID}),
	})
	if errFirst != nil {
		if !storeclient.IsNotFound(errFirst) {
			return nil, errFirst
		}
		body["user_id"] = identity.UserID
		return profiles.Create(ctx, body)
	}
	return profiles.Update(ctx, existing.ID(), body)
}
