// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept in the file; secrets go to the OS keychain.
// Every field can be overridden by a SESSIONKIT_* environment variable.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"sessionkit/cli/internal/xdg"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SESSIONKIT_"

// Defaults for fields left empty by the file and the environment.
const (
	DefaultLogLevel     = "info"
	DefaultPersistence  = "local"
	DefaultIdentityURL  = "https://identitytoolkit.googleapis.com/v1"
	DefaultFirestoreURL = "https://firestore.googleapis.com/v1"
	DefaultTokenURL     = "https://securetoken.googleapis.com/v1"
	DefaultBackend      = BackendFirestore
	DefaultRedirectURL  = "http://127.0.0.1:8765/callback"
)

// Profile store backends.
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel    string         `json:"log_level" env:"LOG_LEVEL"`
	Persistence string         `json:"persistence" env:"PERSISTENCE"`
	Firebase    FirebaseConfig `json:"firebase" envPrefix:"FIREBASE_"`
	Profiles    ProfilesConfig `json:"profiles" envPrefix:"PROFILES_"`
	OAuth       OAuthConfig    `json:"oauth" envPrefix:"OAUTH_"`
}

// FirebaseConfig identifies the identity project. The web API key is a public
// project identifier, not a secret.
type FirebaseConfig struct {
	APIKey       string `json:"api_key" env:"API_KEY"`
	ProjectID    string `json:"project_id" env:"PROJECT_ID"`
	IdentityURL  string `json:"identity_url" env:"IDENTITY_URL"`
	TokenURL     string `json:"token_url" env:"TOKEN_URL"`
	FirestoreURL string `json:"firestore_url" env:"FIRESTORE_URL"`
}

// ProfilesConfig selects where profile documents are read from.
type ProfilesConfig struct {
	Backend string `json:"backend" env:"BACKEND"`
	// PostgresDSN is only taken from the environment; `sessionkit connect`
	// stores it in the keychain instead.
	PostgresDSN string `json:"-" env:"POSTGRES_DSN"`
}

// OAuthConfig holds the social sign-in clients.
type OAuthConfig struct {
	RedirectURL string      `json:"redirect_url" env:"REDIRECT_URL"`
	Google      OAuthClient `json:"google" envPrefix:"GOOGLE_"`
	Facebook    OAuthClient `json:"facebook" envPrefix:"FACEBOOK_"`
	LinkedIn    OAuthClient `json:"linkedin" envPrefix:"LINKEDIN_"`
}

// OAuthClient is one provider's OAuth client registration.
type OAuthClient struct {
	ClientID     string   `json:"client_id" env:"CLIENT_ID"`
	ClientSecret string   `json:"-" env:"CLIENT_SECRET"`
	Scopes       []string `json:"scopes,omitempty" env:"SCOPES" envSeparator:","`
}

// Configured reports whether the client has an ID.
func (c OAuthClient) Configured() bool { return strings.TrimSpace(c.ClientID) != "" }

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; a missing file yields defaults. Environment
// variables override file values.
func Load() (Config, error) {
	var c Config
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, err
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", p, err)
		}
	}
	if err := ParseEnv(&c); err != nil {
		return c, err
	}
	c.applyDefaults()
	return c, nil
}

// ParseEnv applies SESSIONKIT_* environment variables to target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Persistence == "" {
		c.Persistence = DefaultPersistence
	}
	if c.Firebase.IdentityURL == "" {
		c.Firebase.IdentityURL = DefaultIdentityURL
	}
	if c.Firebase.TokenURL == "" {
		c.Firebase.TokenURL = DefaultTokenURL
	}
	if c.Firebase.FirestoreURL == "" {
		c.Firebase.FirestoreURL = DefaultFirestoreURL
	}
	if c.Profiles.Backend == "" {
		c.Profiles.Backend = DefaultBackend
	}
	if c.OAuth.RedirectURL == "" {
		c.OAuth.RedirectURL = DefaultRedirectURL
	}
}

// Validate reports the first missing or malformed setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Firebase.APIKey) == "" {
		return errors.New("firebase.api_key is required (or set " + EnvPrefix + "FIREBASE_API_KEY)")
	}
	switch c.Persistence {
	case "local", "session", "none":
	default:
		return fmt.Errorf("persistence %q is not one of local, session, none", c.Persistence)
	}
	switch c.Profiles.Backend {
	case BackendFirestore:
		if strings.TrimSpace(c.Firebase.ProjectID) == "" {
			return errors.New("firebase.project_id is required for the firestore profile backend")
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("profiles.backend %q is not one of firestore, postgres", c.Profiles.Backend)
	}
	return nil
}
