package access

import (
	"context"

	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// ListTechniques returns the shared technique library, grouped by
// category. The library is public reference data, so this takes a bare
// client instead of an identity.
func ListTechniques(ctx context.Context, client *storeclient.Client) ([]storeclient.Record, error) {
	return client.Collection("techniques").FullList(ctx, storeclient.ListOptions{
		Sort: "category,name",
	})
}

// ListSessionTechniques returns the technique links of one of the
// caller's sessions with the technique expanded.
func ListSessionTechniques(ctx context.Context, identity *auth.Identity, sessionID string) ([]storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	if _, errOwned := fetchOwnedSession(ctx, identity, sessionID); errOwned != nil {
		return nil, errOwned
	}
	return techniqueLinksForSession(ctx, identity, sessionID)
}

func techniqueLinksForSession(ctx context.Context, identity *auth.Identity, sessionID string) ([]storeclient.Record, error) {
	return identity.Client.Collection("session_techniques").FullList(ctx, storeclient.ListOptions{
		Filter: storeclient.Filter(`session_id = {:session}`, map[string]any{"session": sessionID}),
		Sort:   "created",
		Expand: "technique_id",
	})
}

// LogTechniques links techniques to a session, skipping ids already
// linked. Only the newly created links are returned, so re-submitting
// the same list is a no-op.
func LogTechniques(ctx context.Context, identity *auth.Identity, sessionID string, techniqueIDs []string) ([]storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	if _, errOwned := fetchOwnedSession(ctx, identity, sessionID); errOwned != nil {
		return nil, errOwned
	}

	existing, errLinks := techniqueLinksForSession(ctx, identity, sessionID)
	if errLinks != nil {
		return nil, errLinks
	}
	linked := make(map[string]struct{}, len(existing))
	for _, link := range existing {
		linked[link.GetString("technique_id")] = struct{}{}
	}

	created := []storeclient.Record{}
	links := identity.Client.Collection("session_techniques")
	for _, techniqueID := range techniqueIDs {
		if techniqueID == "" {
			continue
		}
		if _, already := linked[techniqueID]; already {
			continue
		}
		link, errCreate := links.Create(ctx, map[string]any{
			"session_id":   sessionID,
			"technique_id": techniqueID,
		})
		if errCreate != nil {
			return nil, errCreate
		}
		linked[techniqueID] = struct{}{}
		created = append(created, link)
	}
	return created, nil
}

// UnlinkTechnique removes a technique link if the caller owns the
// parent session.
func UnlinkTechnique(ctx context.Context, identity *auth.Identity, sessionID, linkID string) error {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return errAuth
	}
	if _, errOwned := fetchOwnedSession(ctx, identity, sessionID); errOwned != nil {
		return errOwned
	}
	link, errGet := identity.Client.Collection("session_techniques").Get(ctx, linkID, "")
	if errGet != nil {
		return errGet
	}
	if link.GetString("session_id") != sessionID {
		return ErrForbidden
	}
	return identity.Client.Collection("session_techniques").Delete(ctx, linkID)
}
