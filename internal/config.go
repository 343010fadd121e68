package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/integrity"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Docs      DocsConfig        `yaml:"docs"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Integrity IntegrityConfig   `yaml:"integrity"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Docs.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Integrity.Validate()
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

// DocsConfig describes the documentation tree under analysis.
type DocsConfig struct {
	Path string `yaml:"path"`
	// Extensions selects document files; defaults to [".md"] when empty.
	Extensions []string `yaml:"extensions"`
	// Ignore holds doublestar patterns excluded from discovery.
	Ignore []string `yaml:"ignore"`
	// EntryPoints are root-relative documents excluded from orphan detection.
	EntryPoints []string `yaml:"entry_points"`
}

// Validate validates the docs configuration.
func (c *DocsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
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

// IntegrityConfig holds the engine knobs.
type IntegrityConfig struct {
	// TemplateMarkerThreshold is the minimum distinct marker count for a
	// document to count as a template (0 = engine default).
	TemplateMarkerThreshold int `yaml:"template_marker_threshold"`
	// RequiredMarkers every template must contain, without brackets.
	RequiredMarkers []string `yaml:"required_markers"`
	// TemplatesDir and OutputsDir enable the generated-output check when
	// both are set.
	TemplatesDir string `yaml:"templates_dir"`
	OutputsDir   string `yaml:"outputs_dir"`
	// Citations binds category directories to their index documents.
	Citations []integrity.CitationPair `yaml:"citations"`
}

// Validate validates the integrity configuration.
func (c *IntegrityConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.TemplateMarkerThreshold, validation.Min(0)),
	); err != nil {
		return err
	}
	for _, pair := range c.Citations {
		if pair.Dir == "" || pair.Index == "" {
			return fmt.Errorf("integrity: citation pair requires both dir and index")
		}
	}
	return nil
}

// EngineConfig converts the YAML configuration into the engine's run config.
func (c *Config) EngineConfig() integrity.Config {
	return integrity.Config{
		EntryPoints:       c.Docs.EntryPoints,
		TemplateThreshold: c.Integrity.TemplateMarkerThreshold,
		RequiredMarkers:   c.Integrity.RequiredMarkers,
		TemplatesDir:      c.Integrity.TemplatesDir,
		OutputsDir:        c.Integrity.OutputsDir,
		Citations:         c.Integrity.Citations,
	}
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
		Docs: DocsConfig{
			Path:        "./docs",
			Extensions:  []string{".md"},
			EntryPoints: []string{"README.md", "index.md"},
		},
		SQLite: SQLiteConfig{
			Path: "./ansuz.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
