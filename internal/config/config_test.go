package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(body), 0o644); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "tokenSecret: shhh\n")

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Listen != ":8080" {
		t.Fatalf("Listen = %q, want :8080", cfg.Listen)
	}
	if cfg.StoreURL != "http://127.0.0.1:8090" {
		t.Fatalf("StoreURL = %q", cfg.StoreURL)
	}
	if cfg.IsProduction() {
		t.Fatalf("default environment should not be production")
	}
	expiry, errExpiry := cfg.ParseTokenExpiry()
	if errExpiry != nil {
		t.Fatalf("parse expiry: %v", errExpiry)
	}
	if expiry.Hours() != 720 {
		t.Fatalf("expiry = %v, want 720h", expiry)
	}
}

func TestLoadMissingSecret(t *testing.T) {
	path := writeConfig(t, "listen: \":9999\"\n")
	if _, errLoad := Load(path); errLoad == nil {
		t.Fatalf("expected error for missing tokenSecret")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "tokenSecret: shhh\ndatabase: file:from-file.db\n")
	t.Setenv("JITSDIARY_DATABASE", "file:from-env.db")

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Database != "file:from-env.db" {
		t.Fatalf("Database = %q, want env override", cfg.Database)
	}
}

func TestLoadOAuth2Providers(t *testing.T) {
	path := writeConfig(t, `
tokenSecret: shhh
oauth2:
  google:
    clientID: cid
    clientSecret: csec
    authURL: https://accounts.google.com/o/oauth2/v2/auth
    tokenURL: https://oauth2.googleapis.com/token
    userinfoURL: https://openidconnect.googleapis.com/v1/userinfo
    scopes: [openid, email, profile]
`)
	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	p, ok := cfg.OAuth2["google"]
	if !ok {
		t.Fatalf("missing google provider")
	}
	if p.ClientID != "cid" || len(p.Scopes) != 3 {
		t.Fatalf("provider parsed wrong: %+v", p)
	}
}
