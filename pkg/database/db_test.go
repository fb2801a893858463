package database

import (
	"net/url"
	"testing"
)

func TestDSNEscapesCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "p@ss word/1"
	cfg.SSLMode = "require"

	u, err := url.Parse(cfg.DSN())
	if err != nil {
		t.Fatalf("dsn must parse: %v", err)
	}
	if pw, _ := u.User.Password(); pw != "p@ss word/1" {
		t.Errorf("password = %q", pw)
	}
	if u.Host != "localhost:5432" || u.Path != "/bluecarbon_mrv" {
		t.Errorf("unexpected target %s%s", u.Host, u.Path)
	}
	if u.Query().Get("sslmode") != "require" {
		t.Errorf("sslmode = %q", u.Query().Get("sslmode"))
	}
}

func TestOrDefault(t *testing.T) {
	if orDefault(0, 10) != 10 || orDefault(4, 10) != 4 {
		t.Fatal("orDefault should only replace non-positive values")
	}
}
