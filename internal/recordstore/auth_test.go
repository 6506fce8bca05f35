package recordstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
)

func TestRegisterAndAuthWithPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	record, errRegister := svc.RegisterUser(ctx, Record{
		"email":           "Roller@Example.com",
		"password":        "hunter2hunter2",
		"passwordConfirm": "hunter2hunter2",
		"name":            "Roller",
	})
	if errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}
	if record["email"] != "roller@example.com" {
		t.Fatalf("email not normalized: %v", record["email"])
	}
	if _, leaked := record["PasswordHash"]; leaked {
		t.Fatalf("password hash leaked: %v", record)
	}

	result, errAuth := svc.AuthWithPassword(ctx, "roller@example.com", "hunter2hunter2", "")
	if errAuth != nil {
		t.Fatalf("auth: %v", errAuth)
	}
	if result.Token == "" || result.Record["id"] != record["id"] {
		t.Fatalf("auth result = %+v", result)
	}

	_, errWrong := svc.AuthWithPassword(ctx, "roller@example.com", "wrong-password", "")
	if storeStatus(t, errWrong) != http.StatusUnauthorized {
		t.Fatalf("wrong password should be 401")
	}
	_, errUnknown := svc.AuthWithPassword(ctx, "nobody@example.com", "hunter2hunter2", "")
	if storeStatus(t, errUnknown) != http.StatusUnauthorized {
		t.Fatalf("unknown user should be 401")
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatalf("credential failures must be indistinct: %q vs %q", errWrong, errUnknown)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []Record{
		{"email": "not-an-email", "password": "hunter2hunter2"},
		{"email": "a@b.c", "password": "short"},
		{"email": "a@b.c", "password": "hunter2hunter2", "passwordConfirm": "different9"},
	}
	for _, input := range cases {
		if _, errRegister := svc.RegisterUser(ctx, input); storeStatus(t, errRegister) != http.StatusBadRequest {
			t.Fatalf("register %v should be 400", input)
		}
	}

	if _, errFirst := svc.RegisterUser(ctx, Record{"email": "a@b.c", "password": "hunter2hunter2"}); errFirst != nil {
		t.Fatalf("register: %v", errFirst)
	}
	if _, errDup := svc.RegisterUser(ctx, Record{"email": "a@b.c", "password": "hunter2hunter2"}); storeStatus(t, errDup) != http.StatusBadRequest {
		t.Fatalf("duplicate email should be 400")
	}
}

func TestAuthRefresh(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, errRegister := svc.RegisterUser(ctx, Record{"email": "a@b.c", "password": "hunter2hunter2"}); errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}
	result, errAuth := svc.AuthWithPassword(ctx, "a@b.c", "hunter2hunter2", "")
	if errAuth != nil {
		t.Fatalf("auth: %v", errAuth)
	}

	refreshed, errRefresh := svc.AuthRefresh(ctx, result.Token)
	if errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}
	if refreshed.Token == "" || refreshed.Record["email"] != "a@b.c" {
		t.Fatalf("refresh result = %+v", refreshed)
	}

	if _, errBad := svc.AuthRefresh(ctx, "not-a-token"); storeStatus(t, errBad) != http.StatusUnauthorized {
		t.Fatalf("garbage token should be 401")
	}
}

func TestTOTPLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	record, errRegister := svc.RegisterUser(ctx, Record{"email": "a@b.c", "password": "hunter2hunter2"})
	if errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}
	userID := record["id"].(string)

	setup, errPrepare := svc.PrepareTOTP(ctx, userID)
	if errPrepare != nil {
		t.Fatalf("prepare: %v", errPrepare)
	}
	if setup.Secret == "" || !strings.HasPrefix(setup.OTPAuthURL, "otpauth://") {
		t.Fatalf("setup = %+v", setup)
	}
	if !strings.HasPrefix(setup.QRImage, "data:image/png;base64,") {
		t.Fatalf("qr image = %q", setup.QRImage)
	}

	if errBad := svc.ConfirmTOTP(ctx, userID, "000000"); storeStatus(t, errBad) != http.StatusUnauthorized {
		t.Fatalf("bogus code should be 401")
	}

	code, errCode := totp.GenerateCode(setup.Secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	if errConfirm := svc.ConfirmTOTP(ctx, userID, code); errConfirm != nil {
		t.Fatalf("confirm: %v", errConfirm)
	}

	// Password alone no longer signs in.
	if _, errAuth := svc.AuthWithPassword(ctx, "a@b.c", "hunter2hunter2", ""); storeStatus(t, errAuth) != http.StatusUnauthorized {
		t.Fatalf("totp user without code should be 401")
	}
	code, errCode = totp.GenerateCode(setup.Secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	if _, errAuth := svc.AuthWithPassword(ctx, "a@b.c", "hunter2hunter2", code); errAuth != nil {
		t.Fatalf("auth with code: %v", errAuth)
	}

	if errDisable := svc.DisableTOTP(ctx, userID); errDisable != nil {
		t.Fatalf("disable: %v", errDisable)
	}
	if _, errAuth := svc.AuthWithPassword(ctx, "a@b.c", "hunter2hunter2", ""); errAuth != nil {
		t.Fatalf("auth after disable: %v", errAuth)
	}
}

func TestAuthWithOAuth2(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	identity := OAuth2Identity{
		Provider:   "google",
		ProviderID: "sub-123",
		Email:      "grappler@example.com",
		Name:       "Grappler",
		Payload:    []byte(`{"sub":"sub-123"}`),
	}

	first, errFirst := svc.AuthWithOAuth2(ctx, identity)
	if errFirst != nil {
		t.Fatalf("oauth2 first: %v", errFirst)
	}
	if first.Record["email"] != "grappler@example.com" || first.Record["verified"] != true {
		t.Fatalf("created user = %v", first.Record)
	}

	second, errSecond := svc.AuthWithOAuth2(ctx, identity)
	if errSecond != nil {
		t.Fatalf("oauth2 second: %v", errSecond)
	}
	if second.Record["id"] != first.Record["id"] {
		t.Fatalf("repeat sign-in created a new user")
	}

	// A fresh provider identity attaches to the existing email account.
	record, errRegister := svc.RegisterUser(ctx, Record{"email": "linked@example.com", "password": "hunter2hunter2"})
	if errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}
	linked, errLinked := svc.AuthWithOAuth2(ctx, OAuth2Identity{
		Provider:   "github",
		ProviderID: "gh-9",
		Email:      "linked@example.com",
	})
	if errLinked != nil {
		t.Fatalf("oauth2 link: %v", errLinked)
	}
	if linked.Record["id"] != record["id"] {
		t.Fatalf("identity should link to existing account")
	}

	if _, errNoEmail := svc.AuthWithOAuth2(ctx, OAuth2Identity{Provider: "github", ProviderID: "gh-10"}); storeStatus(t, errNoEmail) != http.StatusUnauthorized {
		t.Fatalf("identity without email should be 401")
	}
}

func newTestServer(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newTestService(t)
	router := gin.New()
	RegisterRoutes(router, svc)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return svc, server
}

func TestRoutesAuthGuards(t *testing.T) {
	svc, server := newTestServer(t)
	ctx := context.Background()

	mustCreate(t, svc, "techniques", Record{"name": "Armbar", "category": "submission"})

	// Techniques are readable without a token.
	resp, errGet := http.Get(server.URL + "/api/collections/techniques/records")
	if errGet != nil {
		t.Fatalf("get techniques: %v", errGet)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public techniques list = %d", resp.StatusCode)
	}

	// Sessions are not.
	resp, errGet = http.Get(server.URL + "/api/collections/sessions/records")
	if errGet != nil {
		t.Fatalf("get sessions: %v", errGet)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous sessions list = %d", resp.StatusCode)
	}

	if _, errRegister := svc.RegisterUser(ctx, Record{"email": "a@b.c", "password": "hunter2hunter2"}); errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}
	result, errAuth := svc.AuthWithPassword(ctx, "a@b.c", "hunter2hunter2", "")
	if errAuth != nil {
		t.Fatalf("auth: %v", errAuth)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/collections/sessions/records", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	resp, errDo := http.DefaultClient.Do(req)
	if errDo != nil {
		t.Fatalf("authed list: %v", errDo)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authed sessions list = %d", resp.StatusCode)
	}
}

func TestRoutesSignUpAndAuth(t *testing.T) {
	_, server := newTestServer(t)

	resp, errPost := http.Post(
		server.URL+"/api/collections/users/records",
		"application/json",
		strings.NewReader(`{"email":"a@b.c","password":"hunter2hunter2","passwordConfirm":"hunter2hunter2","name":"A"}`),
	)
	if errPost != nil {
		t.Fatalf("sign up: %v", errPost)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sign up = %d", resp.StatusCode)
	}

	resp, errPost = http.Post(
		server.URL+"/api/collections/users/auth-with-password",
		"application/json",
		strings.NewReader(`{"identity":"a@b.c","password":"hunter2hunter2"}`),
	)
	if errPost != nil {
		t.Fatalf("auth: %v", errPost)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("auth = %d", resp.StatusCode)
	}

	resp, errPost = http.Post(
		server.URL+"/api/collections/users/auth-with-password",
		"application/json",
		strings.NewReader(`{"identity":"a@b.c","password":"nope-nope"}`),
	)
	if errPost != nil {
		t.Fatalf("auth: %v", errPost)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad auth = %d", resp.StatusCode)
	}
}
