package access

import (
	"context"

	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// ListGyms returns every gym sorted by name. Gyms are reference data
// shared between all signed-in users.
func ListGyms(ctx context.Context, identity *auth.Identity) ([]storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	return identity.Client.Collection("gyms").FullList(ctx, storeclient.ListOptions{
		Sort: "name",
	})
}
