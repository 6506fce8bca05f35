package recordstore

import (
	"encoding/json"
	"fmt"

	"github.com/jitsdiary/jitsdiary/internal/models"
)

// Schema describes one collection exposed by the record store: how to
// build its model values and which fields the API may touch.
type Schema struct {
	Name     string
	Auth     bool // Auth collections only accept the dedicated auth endpoints.
	New      func() any
	NewSlice func() any

	// Fields is the filter/sort whitelist, keyed by wire (JSON) name.
	Fields map[string]struct{}
	// Writable lists fields accepted on create/update.
	Writable map[string]struct{}
	// Required lists fields that must be present and non-empty on create.
	Required []string
	// Enums restricts string fields to a fixed value set.
	Enums map[string][]string
	// Relations maps relation fields to their target collection for expand.
	Relations map[string]string
	// Check runs collection-specific validation over coerced input.
	Check func(data map[string]any) error
	// PublicRead allows unauthenticated list/get.
	PublicRead bool
}

// Belt ranks shared by profiles, progressions and partner belts.
var beltValues = []string{"white", "blue", "purple", "brown", "black"}

func fieldSet(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, name := range names {
		out[name] = struct{}{}
	}
	return out
}

// collections is the registry of every collection served over the API.
var collections = map[string]*Schema{
	"users": {
		Name:     "users",
		Auth:     true,
		New:      func() any { return &models.User{} },
		NewSlice: func() any { return &[]models.User{} },
		Fields:   fieldSet("id", "email", "name", "verified", "created", "updated"),
	},
	"profiles": {
		Name:      "profiles",
		New:       func() any { return &models.Profile{} },
		NewSlice:  func() any { return &[]models.Profile{} },
		Fields:    fieldSet("id", "user_id", "belt", "stripes", "gym_id", "display_name", "created", "updated"),
		Writable:  fieldSet("user_id", "belt", "stripes", "gym_id", "display_name"),
		Required:  []string{"user_id"},
		Enums:     map[string][]string{"belt": beltValues},
		Relations: map[string]string{"gym_id": "gyms", "user_id": "users"},
		Check:     checkStripesRange("stripes", 0),
	},
	"gyms": {
		Name:     "gyms",
		New:      func() any { return &models.Gym{} },
		NewSlice: func() any { return &[]models.Gym{} },
		Fields:   fieldSet("id", "name", "location", "created", "updated"),
		Writable: fieldSet("name", "location"),
		Required: []string{"name"},
	},
	"sessions": {
		Name:     "sessions",
		New:      func() any { return &models.Session{} },
		NewSlice: func() any { return &[]models.Session{} },
		Fields: fieldSet("id", "user_id", "date", "session_type", "gym_id",
			"duration_minutes", "coach", "notes", "created", "updated"),
		Writable: fieldSet("user_id", "date", "session_type", "gym_id",
			"duration_minutes", "coach", "notes"),
		Required:  []string{"user_id", "date", "session_type"},
		Enums:     map[string][]string{"session_type": {"gi", "no_gi", "open_mat"}},
		Relations: map[string]string{"gym_id": "gyms", "user_id": "users"},
	},
	"rolling_rounds": {
		Name:     "rolling_rounds",
		New:      func() any { return &models.RollingRound{} },
		NewSlice: func() any { return &[]models.RollingRound{} },
		Fields: fieldSet("id", "session_id", "partner_name", "partner_belt",
			"partner_stripe", "outcome", "duration_seconds", "notes", "created", "updated"),
		Writable: fieldSet("session_id", "partner_name", "partner_belt",
			"partner_stripe", "outcome", "duration_seconds", "notes"),
		Required: []string{"session_id"},
		Enums: map[string][]string{
			"partner_belt": beltValues,
			"outcome":      {"won", "lost", "draw"},
		},
		Relations: map[string]string{"session_id": "sessions"},
		Check:     checkStripesRange("partner_stripe", 0),
	},
	"techniques": {
		Name:       "techniques",
		New:        func() any { return &models.Technique{} },
		NewSlice:   func() any { return &[]models.Technique{} },
		Fields:     fieldSet("id", "name", "category", "created", "updated"),
		Writable:   fieldSet("name", "category"),
		Required:   []string{"name", "category"},
		Enums:      map[string][]string{"category": {"guard", "mount", "takedown", "submission", "escape", "transition"}},
		PublicRead: true,
	},
	"session_techniques": {
		Name:     "session_techniques",
		New:      func() any { return &models.SessionTechnique{} },
		NewSlice: func() any { return &[]models.SessionTechnique{} },
		Fields: fieldSet("id", "session_id", "technique_id", "notes",
			"drill_count", "created", "updated"),
		Writable:  fieldSet("session_id", "technique_id", "notes", "drill_count"),
		Required:  []string{"session_id", "technique_id"},
		Relations: map[string]string{"session_id": "sessions", "technique_id": "techniques"},
	},
	"belt_progressions": {
		Name:     "belt_progressions",
		New:      func() any { return &models.BeltProgression{} },
		NewSlice: func() any { return &[]models.BeltProgression{} },
		Fields: fieldSet("id", "user_id", "belt", "stripes", "promoted_on",
			"gym_id", "notes", "created", "updated"),
		Writable:  fieldSet("user_id", "belt", "stripes", "promoted_on", "gym_id", "notes"),
		Required:  []string{"user_id", "belt", "promoted_on"},
		Enums:     map[string][]string{"belt": beltValues},
		Relations: map[string]string{"gym_id": "gyms", "user_id": "users"},
		// The stripes field is a required-numeric column: zero must be
		// submitted as null, never the literal 0.
		Check: checkStripesRange("stripes", 1),
	},
}

// SchemaFor returns the schema for a collection name.
func SchemaFor(name string) (*Schema, bool) {
	schema, ok := collections[name]
	return schema, ok
}

// checkStripesRange validates an optional stripe-count field. Fields with
// min 1 reject an explicit zero.
func checkStripesRange(field string, min int) func(map[string]any) error {
	return func(data map[string]any) error {
		raw, ok := data[field]
		if !ok || raw == nil {
			return nil
		}
		num, ok := numberValue(raw)
		if !ok {
			return fmt.Errorf("%s must be a number", field)
		}
		n := int(num)
		if float64(n) != num {
			return fmt.Errorf("%s must be an integer", field)
		}
		if n < min || n > 4 {
			return fmt.Errorf("%s must be between %d and 4", field, min)
		}
		return nil
	}
}

// numberValue normalizes the numeric types a Record can carry. JSON
// bodies decode to float64; in-process callers hand over Go ints.
func numberValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, errParse := v.Float64()
		if errParse != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// fieldColumn maps a wire field name to its database column.
func fieldColumn(field string) string {
	switch field {
	case "created":
		return "created_at"
	case "updated":
		return "updated_at"
	default:
		return field
	}
}
