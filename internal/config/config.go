// Package config handles the kb configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default values used when the config file is missing or leaves a key empty.
const (
	DefaultCouchURL   = "http://localhost:5984"
	DefaultDatabase   = "knowledge_base"
	DefaultEntityBase = "entities"
	DefaultIDPrefix   = "kb"
)

// Config represents the kb configuration.
type Config struct {
	// CouchURL is the CouchDB server URL.
	CouchURL string `toml:"couch_url" json:"couch_url"`

	// Database holds the knowledge base records.
	Database string `toml:"database" json:"database"`

	// EntityBase names the database reserved for entity documents.
	EntityBase string `toml:"entitybase" json:"entitybase"`

	// Username and Password authenticate against CouchDB. Both empty means
	// unauthenticated access.
	Username string `toml:"username" json:"username,omitempty"`
	Password string `toml:"password" json:"password,omitempty"`

	// Editor is the editor used for the record round-trip (defaults to
	// $VISUAL, then $EDITOR).
	Editor string `toml:"editor" json:"editor,omitempty"`

	// IDPrefix is prepended to generated record identifiers.
	IDPrefix string `toml:"id_prefix" json:"id_prefix"`

	// SecretsFile is the encrypted credential store used by ccouch.
	SecretsFile string `toml:"secrets_file" json:"secrets_file,omitempty"`
}

// Defaults returns a config populated with the built-in defaults.
func Defaults() *Config {
	return &Config{
		CouchURL:   DefaultCouchURL,
		Database:   DefaultDatabase,
		EntityBase: DefaultEntityBase,
		IDPrefix:   DefaultIDPrefix,
	}
}

// applyDefaults fills keys that were present but empty.
func (c *Config) applyDefaults() {
	d := Defaults()
	if strings.TrimSpace(c.CouchURL) == "" {
		c.CouchURL = d.CouchURL
	}
	if strings.TrimSpace(c.Database) == "" {
		c.Database = d.Database
	}
	if strings.TrimSpace(c.EntityBase) == "" {
		c.EntityBase = d.EntityBase
	}
	if strings.TrimSpace(c.IDPrefix) == "" {
		c.IDPrefix = d.IDPrefix
	}
}

// Load loads the configuration from the default location.
// Returns the defaults if the file doesn't exist.
func Load() (*Config, error) {
	return LoadOrDefault(DefaultPath())
}

// LoadOrDefault loads path, returning the defaults if it doesn't exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Defaults(), nil
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from a specific path. Keys missing from
// the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// ResolveConfigPath resolves the effective config path from an optional override.
func ResolveConfigPath(explicitConfigPath string) string {
	if strings.TrimSpace(explicitConfigPath) != "" {
		return explicitConfigPath
	}
	return DefaultPath()
}

// DefaultPath returns the default config file path.
// Checks ~/.config/kb/kb.toml first (XDG style),
// then falls back to the OS-specific location.
func DefaultPath() string {
	return defaultFile("kb.toml")
}

// DefaultSecretsPath returns the default location of the encrypted credential store.
func DefaultSecretsPath() string {
	return defaultFile("secrets.enc")
}

func defaultFile(name string) string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "kb", name)
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "kb", name)
	}

	return filepath.Join(".", name)
}

// GetEditor returns the editor to use, falling back to $VISUAL and $EDITOR.
func (c *Config) GetEditor() string {
	if c != nil && strings.TrimSpace(c.Editor) != "" {
		return strings.TrimSpace(c.Editor)
	}
	if v := strings.TrimSpace(os.Getenv("VISUAL")); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv("EDITOR"))
}

// GetSecretsFile returns the configured secret store path or the default one.
func (c *Config) GetSecretsFile() string {
	if c != nil && strings.TrimSpace(c.SecretsFile) != "" {
		return c.SecretsFile
	}
	return DefaultSecretsPath()
}

// Redacted returns a copy safe for display, with the password masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Password != "" {
		out.Password = "********"
	}
	return out
}

// Keys lists the settable config keys in file order.
var Keys = []string{"couch_url", "database", "entitybase", "username", "password", "editor", "id_prefix", "secrets_file"}

// Set assigns value to the config key named key.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "couch_url":
		c.CouchURL = value
	case "database":
		c.Database = value
	case "entitybase":
		c.EntityBase = value
	case "username":
		c.Username = value
	case "password":
		c.Password = value
	case "editor":
		c.Editor = value
	case "id_prefix":
		c.IDPrefix = value
	case "secrets_file":
		c.SecretsFile = value
	default:
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}
