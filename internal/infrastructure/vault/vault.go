// Package vault encrypts broker credentials at rest.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// MinKeyLength is the minimum accepted length of the configured master key.
const MinKeyLength = 32

const (
	hkdfInfo      = "autotrader/broker-credential-vault/v1"
	selfTestInput = "test"
)

var (
	// ErrKeyTooShort is returned when the master key is missing or shorter than MinKeyLength.
	ErrKeyTooShort = fmt.Errorf("vault: encryption key must be at least %d bytes", MinKeyLength)
	// ErrEmptyInput is returned for empty plaintext or ciphertext.
	ErrEmptyInput = errors.New("vault: empty input")
	// ErrMalformedCiphertext is returned when ciphertext cannot be decoded or is truncated.
	ErrMalformedCiphertext = errors.New("vault: malformed ciphertext")
	// ErrAuthentication is returned when ciphertext fails AEAD authentication.
	ErrAuthentication = errors.New("vault: ciphertext authentication failed")
)

// Cipher is the credential vault contract used by the application layer.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	SelfTest() error
}

// Vault seals strings with XChaCha20-Poly1305. The AEAD key is derived from the
// master key with HKDF-SHA256. Ciphertext is base64url(nonce || sealed).
type Vault struct {
	aead   cipher.AEAD
	logger logger.Interface
}

var _ Cipher = (*Vault)(nil)

// New creates a vault from the master key.
func New(masterKey string, log logger.Interface) (*Vault, error) {
	if len(masterKey) < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(masterKey), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}

	return &Vault{aead: aead, logger: log}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyInput
	}

	nonce := make([]byte, v.aead.NonceSize(), v.aead.NonceSize()+len(plaintext)+v.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: read nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", ErrEmptyInput
	}

	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	if len(raw) < v.aead.NonceSize()+v.aead.Overhead() {
		return "", ErrMalformedCiphertext
	}

	nonce, sealed := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plain, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrAuthentication
	}
	return string(plain), nil
}

// SelfTest round-trips a fixed value through the vault.
func (v *Vault) SelfTest() error {
	enc, err := v.Encrypt(selfTestInput)
	if err != nil {
		v.logger.Errorw("vault self-test failed", "stage", "encrypt", "error", err)
		return err
	}
	dec, err := v.Decrypt(enc)
	if err != nil {
		v.logger.Errorw("vault self-test failed", "stage", "decrypt", "error", err)
		return err
	}
	if dec != selfTestInput {
		v.logger.Errorw("vault self-test failed", "stage", "compare")
		return errors.New("vault: self-test round trip mismatch")
	}
	return nil
}
