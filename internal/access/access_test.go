package access

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/db"
	"github.com/jitsdiary/jitsdiary/internal/recordstore"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

func newTestStore(t *testing.T) *storeclient.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	router := gin.New()
	recordstore.RegisterRoutes(router, recordstore.NewService(conn, "test-secret", time.Hour))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return storeclient.New(server.URL)
}

func newIdentity(t *testing.T, store *storeclient.Client, email string) *auth.Identity {
	t.Helper()
	ctx := context.Background()
	if _, errSignUp := store.SignUp(ctx, email, "hunter2hunter2", "Tester"); errSignUp != nil {
		t.Fatalf("sign up: %v", errSignUp)
	}
	result, errAuth := store.AuthWithPassword(ctx, email, "hunter2hunter2", "")
	if errAuth != nil {
		t.Fatalf("auth: %v", errAuth)
	}
	return &auth.Identity{
		UserID: result.Record.ID(),
		Email:  email,
		Client: store.WithToken(result.Token),
	}
}

func TestSessionLifecycleScopedToOwner(t *testing.T) {
	store := newTestStore(t)
	alice := newIdentity(t, store, "alice@example.com")
	bob := newIdentity(t, store, "bob@example.com")
	ctx := context.Background()

	created, errCreate := CreateSession(ctx, alice, map[string]any{
		"date":             "2024-01-01",
		"session_type":     "gi",
		"duration_minutes": "60",
		"coach":            "",
		"user_id":          "spoofed",
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if created.GetString("user_id") != alice.UserID {
		t.Fatalf("owner = %q, want %q", created.GetString("user_id"), alice.UserID)
	}
	if created.GetInt("duration_minutes") != 60 {
		t.Fatalf("duration = %v", created["duration_minutes"])
	}
	if created.Has("coach") {
		t.Fatalf("blank coach should be null, got %v", created["coach"])
	}
	if created.GetString("date") != "2024-01-01T00:00:00.000Z" {
		t.Fatalf("date = %q", created.GetString("date"))
	}

	listed, errList := ListSessions(ctx, alice, 1)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if listed.TotalItems != 1 || listed.Items[0].ID() != created.ID() {
		t.Fatalf("list = %+v", listed)
	}

	empty, errEmpty := ListSessions(ctx, bob, 1)
	if errEmpty != nil {
		t.Fatalf("list bob: %v", errEmpty)
	}
	if empty.TotalItems != 0 {
		t.Fatalf("bob should see no sessions, got %d", empty.TotalItems)
	}

	if _, errForbidden := GetSession(ctx, bob, created.ID()); !errors.Is(errForbidden, ErrForbidden) {
		t.Fatalf("bob reading alice's session should be forbidden, got %v", errForbidden)
	}
	if _, errForbidden := UpdateSession(ctx, bob, created.ID(), map[string]any{"notes": "hacked"}); !errors.Is(errForbidden, ErrForbidden) {
		t.Fatalf("bob updating alice's session should be forbidden, got %v", errForbidden)
	}

	detail, errGet := GetSession(ctx, alice, created.ID())
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if detail.Session.Has("notes") {
		t.Fatalf("forbidden update went through: %v", detail.Session["notes"])
	}

	if _, errAnon := ListSessions(ctx, nil, 1); !errors.Is(errAnon, ErrUnauthorized) {
		t.Fatalf("anonymous list should be unauthorized, got %v", errAnon)
	}
}

func TestRoundsTransitiveOwnership(t *testing.T) {
	store := newTestStore(t)
	alice := newIdentity(t, store, "alice@example.com")
	bob := newIdentity(t, store, "bob@example.com")
	ctx := context.Background()

	session, errCreate := CreateSession(ctx, alice, map[string]any{"date": "2024-01-01", "session_type": "no_gi"})
	if errCreate != nil {
		t.Fatalf("create session: %v", errCreate)
	}

	round, errRound := CreateRound(ctx, alice, session.ID(), map[string]any{
		"partner_name":     "Marcelo",
		"partner_belt":     "black",
		"partner_stripe":   "0",
		"outcome":          "lost",
		"duration_seconds": "300",
	})
	if errRound != nil {
		t.Fatalf("create round: %v", errRound)
	}
	if round.GetInt("partner_stripe") != 0 || !round.Has("partner_stripe") {
		t.Fatalf("partner stripe should keep zero, got %v", round["partner_stripe"])
	}

	if _, errForbidden := CreateRound(ctx, bob, session.ID(), map[string]any{"outcome": "won"}); !errors.Is(errForbidden, ErrForbidden) {
		t.Fatalf("bob logging on alice's session should be forbidden, got %v", errForbidden)
	}

	rounds, errList := ListRounds(ctx, alice, session.ID())
	if errList != nil {
		t.Fatalf("list rounds: %v", errList)
	}
	if len(rounds) != 1 || rounds[0].GetString("partner_name") != "Marcelo" {
		t.Fatalf("rounds = %v", rounds)
	}

	detail, errGet := GetSession(ctx, alice, session.ID())
	if errGet != nil {
		t.Fatalf("get session: %v", errGet)
	}
	if len(detail.Rounds) != 1 {
		t.Fatalf("detail rounds = %v", detail.Rounds)
	}
}

func TestLogTechniquesIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	alice := newIdentity(t, store, "alice@example.com")
	ctx := context.Background()

	var techniqueIDs []string
	for _, name := range []string{"Armbar", "Triangle", "Kimura"} {
		record, errCreate := alice.Client.Collection("techniques").Create(ctx, map[string]any{
			"name": name, "category": "submission",
		})
		if errCreate != nil {
			t.Fatalf("create technique: %v", errCreate)
		}
		techniqueIDs = append(techniqueIDs, record.ID())
	}
	session, errSession := CreateSession(ctx, alice, map[string]any{"date": "2024-01-01", "session_type": "gi"})
	if errSession != nil {
		t.Fatalf("create session: %v", errSession)
	}

	first, errFirst := LogTechniques(ctx, alice, session.ID(), techniqueIDs[:2])
	if errFirst != nil {
		t.Fatalf("log: %v", errFirst)
	}
	if len(first) != 2 {
		t.Fatalf("first log created %d links", len(first))
	}

	second, errSecond := LogTechniques(ctx, alice, session.ID(), techniqueIDs)
	if errSecond != nil {
		t.Fatalf("log again: %v", errSecond)
	}
	if len(second) != 1 || second[0].GetString("technique_id") != techniqueIDs[2] {
		t.Fatalf("second log = %v", second)
	}

	third, errThird := LogTechniques(ctx, alice, session.ID(), techniqueIDs)
	if errThird != nil {
		t.Fatalf("log third: %v", errThird)
	}
	if len(third) != 0 {
		t.Fatalf("re-submitting should create nothing, got %v", third)
	}

	links, errLinks := ListSessionTechniques(ctx, alice, session.ID())
	if errLinks != nil {
		t.Fatalf("list links: %v", errLinks)
	}
	if len(links) != 3 {
		t.Fatalf("links = %d, want 3", len(links))
	}
	if _, ok := links[0].Expand("technique_id"); !ok {
		t.Fatalf("technique not expanded: %v", links[0])
	}

	if errUnlink := UnlinkTechnique(ctx, alice, session.ID(), links[0].ID()); errUnlink != nil {
		t.Fatalf("unlink: %v", errUnlink)
	}
	remaining, _ := ListSessionTechniques(ctx, alice, session.ID())
	if len(remaining) != 2 {
		t.Fatalf("after unlink = %d links", len(remaining))
	}
}

func TestProgressionStripesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	alice := newIdentity(t, store, "alice@example.com")
	bob := newIdentity(t, store, "bob@example.com")
	ctx := context.Background()

	created, errCreate := CreateProgression(ctx, alice, map[string]any{
		"belt":        "blue",
		"stripes":     "0",
		"promoted_on": "2024-03-01",
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if created.Has("stripes") {
		t.Fatalf("zero stripes should persist as null, got %v", created["stripes"])
	}
	if created.GetString("promoted_on") != "2024-03-01T00:00:00.000Z" {
		t.Fatalf("promoted_on = %q", created.GetString("promoted_on"))
	}

	striped, errStriped := CreateProgression(ctx, alice, map[string]any{
		"belt":        "blue",
		"stripes":     "2",
		"promoted_on": "2024-09-01T10:00:00.000Z",
	})
	if errStriped != nil {
		t.Fatalf("create striped: %v", errStriped)
	}
	if striped.GetInt("stripes") != 2 {
		t.Fatalf("stripes = %v", striped["stripes"])
	}
	if striped.GetString("promoted_on") != "2024-09-01T10:00:00.000Z" {
		t.Fatalf("full datetime should pass through, got %q", striped.GetString("promoted_on"))
	}

	if errForbidden := DeleteProgression(ctx, bob, created.ID()); !errors.Is(errForbidden, ErrForbidden) {
		t.Fatalf("bob deleting alice's progression should be forbidden, got %v", errForbidden)
	}

	list, errList := ListProgressions(ctx, alice)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(list) != 2 {
		t.Fatalf("progression should survive forbidden delete, got %d", len(list))
	}
	if list[0].ID() != created.ID() {
		t.Fatalf("list should sort by promoted_on ascending: %v", list)
	}

	if errDelete := DeleteProgression(ctx, alice, created.ID()); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	list, _ = ListProgressions(ctx, alice)
	if len(list) != 1 {
		t.Fatalf("after delete = %d", len(list))
	}
}

func TestProfileUpsert(t *testing.T) {
	store := newTestStore(t)
	alice := newIdentity(t, store, "alice@example.com")
	ctx := context.Background()

	missing, errGet := GetProfile(ctx, alice)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if missing != nil {
		t.Fatalf("fresh user should have no profile, got %v", missing)
	}

	first, errFirst := SaveProfile(ctx, alice, map[string]any{
		"belt": "purple", "stripes": "0", "display_name": "Ali",
	})
	if errFirst != nil {
		t.Fatalf("save: %v", errFirst)
	}
	if first.GetInt("stripes") != 0 || !first.Has("stripes") {
		t.Fatalf("profile stripes should keep zero, got %v", first["stripes"])
	}

	second, errSecond := SaveProfile(ctx, alice, map[string]any{
		"belt": "brown", "stripes": "1", "display_name": "Ali",
	})
	if errSecond != nil {
		t.Fatalf("save again: %v", errSecond)
	}
	if second.ID() != first.ID() {
		t.Fatalf("upsert created a second row: %q vs %q", second.ID(), first.ID())
	}
	if second.GetString("belt") != "brown" {
		t.Fatalf("belt = %q", second.GetString("belt"))
	}

	profile, errProfile := GetProfile(ctx, alice)
	if errProfile != nil {
		t.Fatalf("get: %v", errProfile)
	}
	if profile.GetString("belt") != "brown" || profile.GetInt("stripes") != 1 {
		t.Fatalf("profile = %v", profile)
	}
}

func TestGymsVisibleToAllAuthedUsers(t *testing.T) {
	store := newTestStore(t)
	alice := newIdentity(t, store, "alice@example.com")
	bob := newIdentity(t, store, "bob@example.com")
	ctx := context.Background()

	for _, name := range []string{"Zenith", "Alliance"} {
		if _, errCreate := alice.Client.Collection("gyms").Create(ctx, map[string]any{"name": name}); errCreate != nil {
			t.Fatalf("create gym: %v", errCreate)
		}
	}

	gyms, errList := ListGyms(ctx, bob)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(gyms) != 2 || gyms[0].GetString("name") != "Alliance" {
		t.Fatalf("gyms = %v", gyms)
	}

	if _, errAnon := ListGyms(ctx, nil); !errors.Is(errAnon, ErrUnauthorized) {
		t.Fatalf("anonymous gyms list should be unauthorized, got %v", errAnon)
	}
}
