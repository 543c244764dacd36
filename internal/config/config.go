package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultModel is used when no model is configured anywhere.
	DefaultModel = "meta-llama/llama-3.1-8b-instruct:free"
	// DefaultBaseURL is the OpenRouter API root.
	DefaultBaseURL = "https://openrouter.ai/api/v1"
)

// OpenRouter holds provider credentials and model selection.
type OpenRouter struct {
	// APIKey authenticates requests. Never written back to disk by Set.
	APIKey string `json:"api_key,omitempty"`
	// Model is the provider model identifier.
	Model string `json:"model,omitempty"`
	// BaseURL overrides the API root, mainly for tests.
	BaseURL string `json:"base_url,omitempty"`
}

// Preferences holds local behavior settings.
type Preferences struct {
	// DefaultDirectory is the workspace used when no --dir flag is given.
	DefaultDirectory string `json:"default_directory,omitempty"`
	// Verbose enables request/response diagnostics.
	Verbose bool `json:"verbose,omitempty"`
	// AutoConfirm skips interactive confirmation prompts.
	AutoConfirm bool `json:"auto_confirm,omitempty"`
}

// Config is the merged application configuration.
type Config struct {
	OpenRouter  OpenRouter  `json:"openrouter"`
	Preferences Preferences `json:"preferences"`
}

// Load reads and merges configuration for a working directory. Sources
// apply in order of increasing precedence: built-in defaults, the user
// file at ~/.loo/config.json, the project file at <root>/.loo/settings.json,
// then the LOO_API_KEY and OPENROUTER_API_KEY environment variables.
// Missing files are ignored.
func Load(cwd string) (*Config, error) {
	merged := &Config{
		OpenRouter: OpenRouter{Model: DefaultModel, BaseURL: DefaultBaseURL},
	}

	userPath, err := UserConfigPath()
	if err != nil {
		return nil, err
	}
	projectPath := filepath.Join(findProjectRoot(cwd), ".loo", "settings.json")

	for _, path := range []string{userPath, projectPath} {
		overlay, err := loadFromFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		merge(merged, overlay)
	}

	if key := os.Getenv("LOO_API_KEY"); key != "" {
		merged.OpenRouter.APIKey = key
	} else if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		merged.OpenRouter.APIKey = key
	}

	return merged, nil
}

// UserConfigPath returns the per-user configuration file path.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".loo", "config.json"), nil
}

// Validate reports whether the configuration can reach the provider.
func (c *Config) Validate() error {
	if c.OpenRouter.APIKey == "" {
		return errors.New("no API key configured; set LOO_API_KEY or run `loo config set openrouter.api_key <key>`")
	}
	if c.OpenRouter.Model == "" {
		return errors.New("no model configured")
	}
	if c.OpenRouter.BaseURL == "" {
		return errors.New("no base URL configured")
	}
	return nil
}

// Get returns the value at a dotted key path as a display string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "openrouter.api_key":
		return redactKey(c.OpenRouter.APIKey), nil
	case "openrouter.model":
		return c.OpenRouter.Model, nil
	case "openrouter.base_url":
		return c.OpenRouter.BaseURL, nil
	case "preferences.default_directory":
		return c.Preferences.DefaultDirectory, nil
	case "preferences.verbose":
		return strconv.FormatBool(c.Preferences.Verbose), nil
	case "preferences.auto_confirm":
		return strconv.FormatBool(c.Preferences.AutoConfirm), nil
	}
	return "", fmt.Errorf("unknown configuration key %q", key)
}

// Set assigns the value at a dotted key path.
func (c *Config) Set(key string, value string) error {
	switch key {
	case "openrouter.api_key":
		c.OpenRouter.APIKey = value
	case "openrouter.model":
		c.OpenRouter.Model = value
	case "openrouter.base_url":
		c.OpenRouter.BaseURL = value
	case "preferences.default_directory":
		c.Preferences.DefaultDirectory = value
	case "preferences.verbose", "preferences.auto_confirm":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("value for %s must be true or false", key)
		}
		if key == "preferences.verbose" {
			c.Preferences.Verbose = parsed
		} else {
			c.Preferences.AutoConfirm = parsed
		}
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}

// SaveUser writes the configuration to the per-user file, creating the
// directory as needed.
func (c *Config) SaveUser() error {
	path, err := UserConfigPath()
	if err != nil {
		return err
	}
	return writeFile(path, c)
}

// Init creates the per-user configuration file with defaults. It fails
// if the file already exists.
func Init() (string, error) {
	path, err := UserConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("configuration already exists at %s", path)
	}
	seed := &Config{OpenRouter: OpenRouter{Model: DefaultModel, BaseURL: DefaultBaseURL}}
	if err := writeFile(path, seed); err != nil {
		return "", err
	}
	return path, nil
}

// loadFromFile reads one configuration overlay from disk.
func loadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	overlay := &Config{}
	if err := json.Unmarshal(raw, overlay); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return overlay, nil
}

// writeFile serializes a configuration with private permissions since
// it may hold the API key.
func writeFile(path string, configuration *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	raw, err := json.MarshalIndent(configuration, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// merge applies non-zero overlay values on top of the base in place.
func merge(base *Config, overlay *Config) {
	if overlay.OpenRouter.APIKey != "" {
		base.OpenRouter.APIKey = overlay.OpenRouter.APIKey
	}
	if overlay.OpenRouter.Model != "" {
		base.OpenRouter.Model = overlay.OpenRouter.Model
	}
	if overlay.OpenRouter.BaseURL != "" {
		base.OpenRouter.BaseURL = overlay.OpenRouter.BaseURL
	}
	if overlay.Preferences.DefaultDirectory != "" {
		base.Preferences.DefaultDirectory = overlay.Preferences.DefaultDirectory
	}
	if overlay.Preferences.Verbose {
		base.Preferences.Verbose = true
	}
	if overlay.Preferences.AutoConfirm {
		base.Preferences.AutoConfirm = true
	}
}

// redactKey shows only the trailing characters of a secret.
func redactKey(key string) string {
	if key == "" {
		return "(unset)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// findProjectRoot locates the nearest parent directory containing .git.
func findProjectRoot(cwd string) string {
	current := filepath.Clean(cwd)
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			// If no repository root is found, fall back to the current directory.
			return cwd
		}
		current = parent
	}
}

// TrimKey normalizes a user-supplied key path.
func TrimKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
