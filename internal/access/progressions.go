package access

import (
	"context"

	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// progressionsPerPage bounds the promotion history fetched at once.
const progressionsPerPage = 100

// ListProgressions returns the caller's belt promotions in
// chronological order with the gym expanded.
func ListProgressions(ctx context.Context, identity *auth.Identity) ([]storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	result, errList := identity.Client.Collection("belt_progressions").List(ctx, 1, progressionsPerPage, storeclient.ListOptions{
		Filter: storeclient.Filter(`user_id = {:user}`, map[string]any{"user": identity.UserID}),
		Sort:   "promoted_on",
		Expand: "gym_id",
	})
	if errList != nil {
		return nil, errList
	}
	return result.Items, nil
}

// CreateProgression records a promotion for the caller. A stripe count
// of zero is persisted as null; a date-only promoted_on becomes a
// midnight UTC datetime.
func CreateProgression(ctx context.Context, identity *auth.Identity, input map[string]any) (storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}

	body := map[string]any{"user_id": identity.UserID}
	if value, ok := input["belt"]; ok {
		body["belt"] = value
	}
	if value, ok := input["stripes"]; ok {
		body["stripes"] = stripesOrNull(value)
	}
	if value, ok := input["promoted_on"]; ok {
		if str, isStr := value.(string); isStr {
			body["promoted_on"] = expandDate(str)
		} else {
			body["promoted_on"] = value
		}
	}
	if value, ok := input["gym_id"]; ok {
		body["gym_id"] = optString(value)
	}
	if value, ok := input["notes"]; ok {
		body["notes"] = optString(value)
	}
	return identity.Client.Collection("belt_progressions").Create(ctx, body)
}

// DeleteProgression removes one of the caller's promotions. Records
// owned by someone else are left untouched.
func DeleteProgression(ctx context.Context, identity *auth.Identity, id string) error {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return errAuth
	}
	record, errGet := identity.Client.Collection("belt_progressions").Get(ctx, id, "")
	if errGet != nil {
		return errGet
	}
	if !owns(identity, record) {
		return ErrForbidden
	}
	return identity.Client.Collection("belt_progressions").Delete(ctx, id)
}
