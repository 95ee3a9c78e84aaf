package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/couchkb/couchkb/internal/atomicfile"
)

type persistedConfig struct {
	CouchURL    string  `toml:"couch_url"`
	Database    string  `toml:"database"`
	EntityBase  string  `toml:"entitybase"`
	Username    *string `toml:"username,omitempty"`
	Password    *string `toml:"password,omitempty"`
	Editor      *string `toml:"editor,omitempty"`
	IDPrefix    string  `toml:"id_prefix"`
	SecretsFile *string `toml:"secrets_file,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// SaveTo writes the config to path atomically. The file may contain a
// password, so it is written owner-readable only.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = Defaults()
	}
	c := *cfg
	c.applyDefaults()

	out := persistedConfig{
		CouchURL:    c.CouchURL,
		Database:    c.Database,
		EntityBase:  c.EntityBase,
		Username:    nonEmptyPtr(c.Username),
		Password:    nonEmptyPtr(c.Password),
		Editor:      nonEmptyPtr(c.Editor),
		IDPrefix:    c.IDPrefix,
		SecretsFile: nonEmptyPtr(c.SecretsFile),
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

const defaultConfigTemplate = `# kb configuration

# CouchDB server holding the knowledge base
couch_url = %q

# Database for knowledge base records (created on first use)
database = %q

# Database reserved for entity documents
entitybase = %q

# Credentials; leave empty for an unauthenticated server
# username = "admin"
# password = ""

# Editor for kb create/edit (defaults to $VISUAL, then $EDITOR)
# editor = "nvim"

# Prefix for generated record identifiers
id_prefix = %q
`

// CreateDefault writes a commented default config to path unless a file is
// already there. It reports whether a file was written.
func CreateDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	content := fmt.Sprintf(defaultConfigTemplate,
		DefaultCouchURL, DefaultDatabase, DefaultEntityBase, DefaultIDPrefix)
	if err := atomicfile.WriteFile(path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
