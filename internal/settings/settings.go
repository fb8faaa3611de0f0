// Package settings persists the client-side provider preferences.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blueprintpro/estimator/internal/providers"
)

const DefaultServerURL = "http://localhost:8787"

// Settings is the explicit configuration object handed to the client.
type Settings struct {
	Provider        providers.Name `yaml:"provider"`
	GoogleKey       string         `yaml:"google_key,omitempty"`
	OpenRouterKey   string         `yaml:"openrouter_key,omitempty"`
	OpenRouterModel string         `yaml:"openrouter_model,omitempty"`
	ServerURL       string         `yaml:"server_url"`
	Token           string         `yaml:"token,omitempty"`
}

func Default() Settings {
	return Settings{Provider: providers.Google, ServerURL: DefaultServerURL}
}

// Credentials returns the client-supplied credential bag.
func (s Settings) Credentials() providers.CredentialBag {
	return providers.CredentialBag{
		providers.Google:     {APIKey: s.GoogleKey},
		providers.OpenRouter: {APIKey: s.OpenRouterKey, Model: s.OpenRouterModel},
	}
}

// Keys lists the names accepted by Set.
var Keys = []string{"provider", "google_key", "openrouter_key", "openrouter_model", "server_url", "token"}

// Set updates one field by its YAML name.
func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "provider":
		n, ok := providers.ParseName(value)
		if !ok {
			return fmt.Errorf("unknown provider %q", value)
		}
		s.Provider = n
	case "google_key":
		s.GoogleKey = value
	case "openrouter_key":
		s.OpenRouterKey = value
	case "openrouter_model":
		s.OpenRouterModel = value
	case "server_url":
		if value == "" {
			value = DefaultServerURL
		}
		s.ServerURL = strings.TrimRight(value, "/")
	case "token":
		s.Token = value
	default:
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Redacted returns a copy safe for display.
func (s Settings) Redacted() Settings {
	s.GoogleKey = mask(s.GoogleKey)
	s.OpenRouterKey = mask(s.OpenRouterKey)
	s.Token = mask(s.Token)
	return s
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

// Store loads and saves Settings as YAML.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

// DefaultPath is settings.yaml under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "blueprintctl", "settings.yaml"), nil
}

func (s *Store) Path() string { return s.path }

// Load reads the settings file. A missing file yields the defaults.
func (s *Store) Load() (Settings, error) {
	out := Default()
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return Default(), fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	if _, ok := providers.ParseName(string(out.Provider)); !ok {
		out.Provider = providers.Google
	}
	if out.ServerURL == "" {
		out.ServerURL = DefaultServerURL
	}
	return out, nil
}

// Save writes the settings file with owner-only permissions.
func (s *Store) Save(v Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
