// Package secrets resolves named CouchDB credentials from an encrypted
// on-disk store.
//
// The store is a JSON object mapping a key (for example
// "couchdb.slap.admin") to a username, password and server URL. The whole
// object is encrypted with XChaCha20-Poly1305 under a key derived from a
// passphrase with scrypt.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/couchkb/couchkb/internal/atomicfile"
)

// ErrSecretNotFound is returned when a key has no entry in the store.
var ErrSecretNotFound = errors.New("secret not found")

// Credentials is what a secret key resolves to.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
}

// Provider resolves a named secret to credentials.
type Provider interface {
	Credentials(key string) (Credentials, error)
}

// Store is an unlocked secret store. Changes are kept in memory until Save.
type Store struct {
	path       string
	passphrase string
	params     KDFParams
	entries    map[string]Credentials
}

var _ Provider = (*Store)(nil)

// Open unlocks the store at path. A missing file yields an empty store that
// will be created by the first Save.
func Open(path, passphrase string) (*Store, error) {
	return OpenWithParams(path, passphrase, DefaultKDFParams)
}

// OpenWithParams is Open with explicit scrypt parameters for newly written
// stores. Existing stores are always read with the parameters in their header.
func OpenWithParams(path, passphrase string, params KDFParams) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("secret store path is required")
	}
	s := &Store{
		path:       path,
		passphrase: passphrase,
		params:     params,
		entries:    map[string]Credentials{},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secret store %s: %w", path, err)
	}

	plaintext, err := open(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlock secret store %s: %w", path, err)
	}
	if err := json.Unmarshal(plaintext, &s.entries); err != nil {
		return nil, fmt.Errorf("decode secret store %s: %w", path, err)
	}
	if s.entries == nil {
		s.entries = map[string]Credentials{}
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Credentials returns the entry stored under key.
func (s *Store) Credentials(key string) (Credentials, error) {
	c, ok := s.entries[key]
	if !ok {
		return Credentials{}, fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return c, nil
}

// Put adds or replaces an entry.
func (s *Store) Put(key string, c Credentials) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("secret key is required")
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("url is required for secret %s", key)
	}
	s.entries[key] = c
	return nil
}

// Keys lists the stored keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save encrypts the store with a fresh salt and nonce and writes it atomically.
func (s *Store) Save() error {
	plaintext, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode secret store: %w", err)
	}
	data, err := seal(plaintext, s.passphrase, s.params)
	if err != nil {
		return fmt.Errorf("encrypt secret store: %w", err)
	}
	if err := atomicfile.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write secret store %s: %w", s.path, err)
	}
	return nil
}
