package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes for the HTTP API.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Store backends.
const (
	StoreBackendSQLite = "sqlite"
	StoreBackendDir    = "dir"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Store     StoreConfig       `yaml:"store"`
	Auth      AuthConfig        `yaml:"auth"`
	Biometric BiometricConfig   `yaml:"biometric"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Biometric.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects and configures the remote store adapter.
//
// Backend picks the implementation:
//   - "sqlite": document collections in a local SQLite database at Path.
//   - "dir": one JSON file per document under the Path directory, with an
//     fsnotify watcher re-emitting snapshots on external edits.
//
// AppID namespaces all collections, matching the multi-tenant layout of the
// hosted store. Token, when set, is used for token sign-in instead of
// anonymous sign-in.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	AppID   string `yaml:"app_id"`
	Token   string `yaml:"token"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(StoreBackendSQLite, StoreBackendDir)),
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.AppID, validation.Required),
	)
}

// AuthConfig holds HTTP API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// BiometricConfig holds the simulated biometric scan settings.
type BiometricConfig struct {
	Fingerprint bool          `yaml:"fingerprint"`
	Face        bool          `yaml:"face"`
	ScanDelay   time.Duration `yaml:"scan_delay"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Validate validates the biometric configuration.
func (c *BiometricConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ScanDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.SettleDelay, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Backend: StoreBackendSQLite,
			Path:    "./socialpulse.db",
			AppID:   "socialpulse",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Biometric: BiometricConfig{
			Fingerprint: true,
			Face:        true,
			ScanDelay:   2 * time.Second,
			SettleDelay: time.Second,
		},
	}
}
