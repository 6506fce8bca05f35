package access

import (
	"context"

	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// sessionsPerPage is the list page size.
const sessionsPerPage = 20

// SessionDetail is a session with its sparring rounds and technique
// links inlined.
type SessionDetail struct {
	Session    storeclient.Record   `json:"session"`
	Rounds     []storeclient.Record `json:"rounds"`
	Techniques []storeclient.Record `json:"techniques"`
}

// ListSessions returns one page of the caller's sessions, newest first,
// with the gym expanded.
func ListSessions(ctx context.Context, identity *auth.Identity, page int) (*storeclient.ListResult, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	if page < 1 {
		page = 1
	}
	return identity.Client.Collection("sessions").List(ctx, page, sessionsPerPage, storeclient.ListOptions{
		Filter: storeclient.Filter(`user_id = {:user}`, map[string]any{"user": identity.UserID}),
		Sort:   "-date",
		Expand: "gym_id",
	})
}

// GetSession returns one of the caller's sessions with rounds and
// technique links.
func GetSession(ctx context.Context, identity *auth.Identity, id string) (*SessionDetail, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	session, errGet := identity.Client.Collection("sessions").Get(ctx, id, "gym_id")
	if errGet != nil {
		return nil, errGet
	}
	if !owns(identity, session) {
		return nil, ErrForbidden
	}

	rounds, errRounds := roundsForSession(ctx, identity, id)
	if errRounds != nil {
		return nil, errRounds
	}
	links, errLinks := techniqueLinksForSession(ctx, identity, id)
	if errLinks != nil {
		return nil, errLinks
	}
	return &SessionDetail{Session: session, Rounds: rounds, Techniques: links}, nil
}

// CreateSession records a new training session for the caller. The
// owner is always the authenticated user, whatever the input says.
func CreateSession(ctx context.Context, identity *auth.Identity, input map[string]any) (storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	body := sessionBody(input)
	body["user_id"] = identity.UserID
	return identity.Client.Collection("sessions").Create(ctx, body)
}

// UpdateSession patches one of the caller's sessions.
func UpdateSession(ctx context.Context, identity *auth.Identity, id string, input map[string]any) (storeclient.Record, error) {
	if errAuth := requireIdentity(identity); errAuth != nil {
		return nil, errAuth
	}
	if _, errOwned := fetchOwnedSession(ctx, identity, id); errOwned != nil {
		return nil, errOwned
	}
	body := sessionBody(input)
	return identity.Client.Collection("sessions").Update(ctx, id, body)
}

// sessionBody coerces the writable session fields that are present in
// the input. user_id is deliberately absent here.
func sessionBody(input map[string]any) map[string]any {
	body := map[string]any{}
	if value, ok := input["date"]; ok {
		if str, isStr := value.(string); isStr {
			body["date"] = expandDate(str)
		} else {
			body["date"] = value
		}
	}
	if value, ok := input["session_type"]; ok {
		body["session_type"] = value
	}
	if value, ok := input["gym_id"]; ok {
		body["gym_id"] = optString(value)
	}
	if value, ok := input["duration_minutes"]; ok {
		body["duration_minutes"] = optNumber(value)
	}
	if value, ok := input["coach"]; ok {
		body["coach"] = optString(value)
	}
	if value, ok := input["notes"]; ok {
		body["notes"] = optString(value)
	}
	return body
}
