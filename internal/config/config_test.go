package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/dentaray")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.AuthMode != "local" {
		t.Errorf("expected default auth mode local, got %s", cfg.AuthMode)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("expected default token TTL 24h, got %s", cfg.TokenTTL)
	}
	if cfg.MaxUploadSize != 16*1024*1024 {
		t.Errorf("expected default max upload 16MB, got %d", cfg.MaxUploadSize)
	}
	if len(cfg.AllowedExts) != 3 {
		t.Errorf("expected 3 default extensions, got %v", cfg.AllowedExts)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing DATABASE_URL")
	}
}

func TestLoad_DevTokenSecretFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/dentaray")
	t.Setenv("ENV", "development")
	t.Setenv("TOKEN_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TokenSecret == "" {
		t.Error("expected development token secret fallback")
	}
}

func TestValidate_LocalRequiresSecret(t *testing.T) {
	cfg := &Config{AuthMode: "local", MaxUploadSize: 1, AllowedExts: []string{"png"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing TOKEN_SECRET")
	}

	cfg.TokenSecret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_FederatedRequiresIssuer(t *testing.T) {
	cfg := &Config{AuthMode: "federated", MaxUploadSize: 1, AllowedExts: []string{"png"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing issuer and JWKS URL")
	}

	cfg.AuthJWKSURL = "https://idp.example.com/jwks.json"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownAuthMode(t *testing.T) {
	cfg := &Config{AuthMode: "cognito", MaxUploadSize: 1, AllowedExts: []string{"png"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown auth mode")
	}
}
