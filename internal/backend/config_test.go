package backend

import (
	"strings"
	"testing"
	"time"

	"qboard/internal/config"
)

func TestFromAppConfigRemote(t *testing.T) {
	appCfg := &config.Config{
		DataBackend:    "remote",
		GatewayBaseURL: "https://tracker.example.com/api",
		GatewayUserID:  "42",
		GatewayTimeout: 15 * time.Second,
	}

	cfg, err := FromAppConfig(appCfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != RemoteBackend {
		t.Errorf("Type = %q, want remote", cfg.Type)
	}
	if cfg.GatewayUserID != 42 {
		t.Errorf("GatewayUserID = %d, want 42", cfg.GatewayUserID)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestFromAppConfigRejectsNonNumericUserID(t *testing.T) {
	appCfg := &config.Config{
		DataBackend:    "remote",
		GatewayBaseURL: "https://tracker.example.com/api",
		GatewayUserID:  "alice",
	}

	_, err := FromAppConfig(appCfg)
	if err == nil {
		t.Fatal("expected error for non-numeric gateway user id")
	}
	if !strings.Contains(err.Error(), "not numeric") {
		t.Errorf("error = %v, want mention of the non-numeric id", err)
	}
}

func TestFromAppConfigInvalidBackendType(t *testing.T) {
	_, err := FromAppConfig(&config.Config{DataBackend: "redis"})
	if err == nil {
		t.Fatal("expected error for unknown backend type")
	}
}

func TestFromAppConfigNil(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil app config")
	}
}

func TestValidateRemoteRequiresUserID(t *testing.T) {
	cfg := Config{
		Type:           RemoteBackend,
		GatewayBaseURL: "https://tracker.example.com/api",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when gateway user id is missing")
	}
}
