package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/typerpg/internal/auth"
	"github.com/verte-zerg/typerpg/internal/config"
)

func TestGuestIDIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typerpg", "user")
	first, err := guestID(path)
	if err != nil {
		t.Fatalf("guest id: %v", err)
	}
	second, err := guestID(path)
	if err != nil {
		t.Fatalf("guest id: %v", err)
	}
	if first == "" || first != second {
		t.Fatalf("expected a stable id, got %q and %q", first, second)
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template must decode: %v", err)
	}
	if cfg.Play.Mode != nil || cfg.Server.Addr != nil {
		t.Fatalf("template values must be commented out")
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("TYPERPG_TOKEN_SECRET", "")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--token-secret", "s3cret", "--user", "u1", "--name", "Ada"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	tokens, err := auth.NewJWTService("s3cret")
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}
	id, err := tokens.ValidateToken(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id.UserID != "u1" || id.Username != "Ada" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestPlayConfigRequiresTokenForServer(t *testing.T) {
	playMode, playWords, playServer, playToken = "endless", 10, "http://localhost:8080", ""
	t.Cleanup(func() { playServer = "" })
	if _, err := playConfig(); err == nil {
		t.Fatalf("expected missing token error")
	}
	playMode = "arcade"
	if _, err := playConfig(); err == nil {
		t.Fatalf("expected invalid mode error")
	}
}
