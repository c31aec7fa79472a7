package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStoreConfig_BackendValidation(t *testing.T) {
	cfg := StoreConfig{Backend: "redis", Path: "./x", AppID: "pulse"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend should fail validation")
	}

	cfg.Backend = StoreBackendDir
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dir backend should pass: %v", err)
	}
}

func TestStoreConfig_RequiresAppID(t *testing.T) {
	cfg := StoreConfig{Backend: StoreBackendSQLite, Path: "./x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing app_id should fail validation")
	}
}

func TestBiometricConfig_RejectsNegativeDelays(t *testing.T) {
	cfg := BiometricConfig{ScanDelay: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative scan delay should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Store.Backend != StoreBackendSQLite {
		t.Errorf("default backend = %q", cfg.Store.Backend)
	}
	if !cfg.Biometric.Fingerprint || !cfg.Biometric.Face {
		t.Error("both modalities should default to enabled")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
