package secrets

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// magic identifies a secret store file and its format version.
var magic = []byte("CKS1")

// SaltSize is the size of the random salt fed to scrypt.
const SaltSize = 32

// KeySize selects XChaCha20-Poly1305's 256-bit key.
const KeySize = chacha20poly1305.KeySize

const paramSize = 4

// headerSize covers magic, the three scrypt parameters, the salt and the nonce.
const headerSize = 4 + 3*paramSize + SaltSize + chacha20poly1305.NonceSizeX

// KDFParams are the scrypt cost parameters. They are stored in the file
// header so they can be raised later without breaking existing stores.
type KDFParams struct {
	N, R, P uint32
}

// DefaultKDFParams needs about 32MiB (128 * N * r bytes) per derivation.
var DefaultKDFParams = KDFParams{N: 1 << 15, R: 8, P: 1}

// ErrWrongPassphrase is returned when the store cannot be authenticated,
// which is almost always a mistyped passphrase.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted secret store")

// Upper bounds on the scrypt parameters. The header is only authenticated
// after the key is derived, so a damaged file must not be able to demand
// more than about 1GiB of memory.
const (
	maxScryptN  = 1 << 20
	maxScryptRP = 64
)

func deriveKey(passphrase string, salt []byte, p KDFParams) ([]byte, error) {
	if p.N <= 1 || p.R == 0 || p.P == 0 {
		return nil, fmt.Errorf("invalid scrypt parameters N=%d r=%d p=%d", p.N, p.R, p.P)
	}
	if p.N > maxScryptN || uint64(p.R)*uint64(p.P) > maxScryptRP {
		return nil, fmt.Errorf("scrypt parameters N=%d r=%d p=%d exceed the supported limits", p.N, p.R, p.P)
	}
	return scrypt.Key([]byte(passphrase), salt, int(p.N), int(p.R), int(p.P), KeySize)
}

// seal encrypts plaintext under a key derived from passphrase. The header is
// authenticated as additional data.
func seal(plaintext []byte, passphrase string, p KDFParams) ([]byte, error) {
	header := make([]byte, headerSize)
	copy(header, magic)
	binary.BigEndian.PutUint32(header[4:], p.N)
	binary.BigEndian.PutUint32(header[8:], p.R)
	binary.BigEndian.PutUint32(header[12:], p.P)

	salt := header[16 : 16+SaltSize]
	nonce := header[16+SaltSize:]
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	key, err := deriveKey(passphrase, salt, p)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, nonce, plaintext, header)
	return append(header, sealed...), nil
}

// open reverses seal.
func open(data []byte, passphrase string) ([]byte, error) {
	if len(data) < headerSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("secret store is too short to be valid (min length: %d)",
			headerSize+chacha20poly1305.Overhead)
	}
	if !bytes.Equal(data[:4], magic) {
		return nil, fmt.Errorf("not a secret store (bad magic %q)", data[:4])
	}

	header := data[:headerSize]
	p := KDFParams{
		N: binary.BigEndian.Uint32(header[4:]),
		R: binary.BigEndian.Uint32(header[8:]),
		P: binary.BigEndian.Uint32(header[12:]),
	}
	salt := header[16 : 16+SaltSize]
	nonce := header[16+SaltSize:]

	key, err := deriveKey(passphrase, salt, p)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, data[headerSize:], header)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}
