// Package cipher names the AEAD constructions entropool can seal seed files
// with, so that a sealed file can record which one it used.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"slices"

	siv "github.com/secure-io/siv-go"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Suite names.
const (
	AESGCM            = "aes-256-gcm"
	AESGCMSIV         = "aes-256-gcm-siv"
	ChaCha20Poly1305  = "chacha20-poly1305"
	XChaCha20Poly1305 = "xchacha20-poly1305"

	// Default is the suite used when a caller does not pick one.
	Default = XChaCha20Poly1305
)

// KeySize is the key length of every registered suite.
const KeySize = 32

var (
	// ErrUnknownSuite indicates a suite name that is not registered.
	ErrUnknownSuite = errors.New("entropool/cipher: unknown suite")
	// ErrShortCiphertext indicates sealed data too short to hold a nonce and tag.
	ErrShortCiphertext = errors.New("entropool/cipher: ciphertext too short")
)

// Suite couples a name with an AEAD constructor.
type Suite struct {
	Name string
	New  func(key []byte) (cipher.AEAD, error)
}

var suites = map[string]Suite{
	AESGCM: {Name: AESGCM, New: func(key []byte) (cipher.AEAD, error) {
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	}},
	AESGCMSIV:         {Name: AESGCMSIV, New: siv.NewGCM},
	ChaCha20Poly1305:  {Name: ChaCha20Poly1305, New: chacha20poly1305.New},
	XChaCha20Poly1305: {Name: XChaCha20Poly1305, New: chacha20poly1305.NewX},
}

// ByName looks up a suite. An empty name selects Default.
func ByName(name string) (Suite, error) {
	if name == "" {
		name = Default
	}
	s, ok := suites[name]
	if !ok {
		return Suite{}, fmt.Errorf("%w: %q", ErrUnknownSuite, name)
	}
	return s, nil
}

// Names lists the registered suites in lexical order.
func Names() []string {
	names := make([]string, 0, len(suites))
	for name := range suites {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Seal encrypts plaintext under key with a fresh nonce read from rand. The
// nonce is prepended to the returned ciphertext.
func (s Suite) Seal(key []byte, rand io.Reader, plaintext, aad []byte) ([]byte, error) {
	aead, err := s.New(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	out := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand, out); err != nil {
		return nil, fmt.Errorf("%s: generate nonce: %w", s.Name, err)
	}
	return aead.Seal(out, out, plaintext, aad), nil
}

// Open reverses Seal.
func (s Suite) Open(key, sealed, aad []byte) ([]byte, error) {
	aead, err := s.New(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrShortCiphertext
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return plaintext, nil
}

// DeriveKey expands master into a KeySize key bound to the suite name and
// salt, so one passphrase never keys two suites identically.
func (s Suite) DeriveKey(master, salt []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, master, salt, []byte("entropool/cipher/"+s.Name))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
