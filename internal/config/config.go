package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/keyring"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/models"
)

// KeyringMarker replaces a secret value in config.json when the secret itself
// lives in the OS keyring.
const KeyringMarker = "@keyring"

// EnvPrefix prefixes every environment variable that feeds the defaults.
const EnvPrefix = "TRIPKIT_"

// LoadDotEnv loads .env files into the process environment. Missing files are ignored
// and variables that are already set win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.Warn("Failed to load env file", "path", p, "error", err)
		}
	}
}

// EnvName returns the environment variable that provides a config field's default.
func EnvName(field string) string {
	return EnvPrefix + strings.ToUpper(field)
}

// FromEnv builds an APIConfig from TRIPKIT_* environment variables.
func FromEnv() models.APIConfig {
	var cfg models.APIConfig
	for _, f := range cfg.Fields() {
		*f.Value = strings.TrimSpace(os.Getenv(EnvName(f.Name)))
	}
	return cfg
}

// Manager reads and writes the user-editable config file.
type Manager struct {
	path       string
	useKeyring bool
}

// NewManager returns a manager for <configDir>/config.json. When useKeyring is set,
// secret fields are written to the OS keyring instead of the file.
func NewManager(configDir string, useKeyring bool) *Manager {
	return &Manager{
		path:       filepath.Join(configDir, constants.ConfigFileName),
		useKeyring: useKeyring,
	}
}

func (m *Manager) Path() string {
	return m.path
}

// Load returns the stored config merged over environment defaults, with
// keyring-backed secrets resolved.
func (m *Manager) Load() (models.APIConfig, error) {
	stored, err := m.Stored()
	if err != nil {
		return models.APIConfig{}, err
	}
	m.resolveSecrets(&stored)
	cfg := FromEnv().Merge(stored)
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = constants.DefaultOpenAIModel
	}
	return cfg, nil
}

// Stored returns the config file contents verbatim. A missing file is an empty config.
func (m *Manager) Stored() (models.APIConfig, error) {
	var cfg models.APIConfig
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", m.path, err)
	}
	return cfg, nil
}

// Save writes cfg to the config file, moving secrets into the keyring when enabled.
func (m *Manager) Save(cfg models.APIConfig) error {
	if m.useKeyring {
		for _, f := range cfg.Fields() {
			if !f.Secret || *f.Value == "" || *f.Value == KeyringMarker {
				continue
			}
			if err := keyring.Set(keyring.ConfigSecret(f.Name), *f.Value); err != nil {
				logger.Warn("Keyring unavailable, storing secret in config file", "field", f.Name, "error", err)
				continue
			}
			*f.Value = KeyringMarker
		}
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Set updates a single field by its JSON name and saves.
func (m *Manager) Set(field, value string) error {
	cfg, err := m.Stored()
	if err != nil {
		return err
	}
	f, ok := cfg.Field(field)
	if !ok {
		return fmt.Errorf("unknown config key %q", field)
	}
	*f.Value = strings.TrimSpace(value)
	return m.Save(cfg)
}

// Unset clears a single field and removes any keyring copy of it.
func (m *Manager) Unset(field string) error {
	cfg, err := m.Stored()
	if err != nil {
		return err
	}
	f, ok := cfg.Field(field)
	if !ok {
		return fmt.Errorf("unknown config key %q", field)
	}
	if *f.Value == KeyringMarker {
		if err := keyring.Delete(keyring.ConfigSecret(field)); err != nil && err != keyring.ErrNotFound {
			logger.Warn("Failed to delete secret from keyring", "field", field, "error", err)
		}
	}
	*f.Value = ""
	return m.Save(cfg)
}

// Reset removes the config file and every keyring-backed secret it references.
func (m *Manager) Reset() error {
	cfg, err := m.Stored()
	if err != nil {
		return err
	}
	for _, f := range cfg.Fields() {
		if *f.Value == KeyringMarker {
			_ = keyring.Delete(keyring.ConfigSecret(f.Name))
		}
	}
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove config file: %w", err)
	}
	return nil
}

func (m *Manager) resolveSecrets(cfg *models.APIConfig) {
	for _, f := range cfg.Fields() {
		if *f.Value != KeyringMarker {
			continue
		}
		value, err := keyring.Get(keyring.ConfigSecret(f.Name))
		if err != nil {
			logger.Warn("Failed to read secret from keyring", "field", f.Name, "error", err)
			*f.Value = ""
			continue
		}
		*f.Value = value
	}
}
