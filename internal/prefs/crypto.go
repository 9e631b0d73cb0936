// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package prefs

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// tokenCipherSalt binds derived keys to this application's token
	// storage; rotating it invalidates every stored token.
	tokenCipherSalt = "kioskbridge-session-token"
	tokenCipherInfo = "token-encryption-v1"

	aesKeySize   = 32
	gcmNonceSize = 12
)

var (
	// ErrEmptySecret is returned when a cipher is requested without a
	// secret to derive its key from.
	ErrEmptySecret = errors.New("encryption secret cannot be empty")

	// ErrDecryptFailed covers tampered, truncated, or wrong-key
	// ciphertexts. The caller treats it as "no stored token".
	ErrDecryptFailed = errors.New("token decryption failed")
)

// TokenCipher encrypts the persisted session token with AES-256-GCM. The
// key is derived from the configured secret via HKDF-SHA256, so the token
// at rest is unreadable without the instance's configuration.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives a cipher from secret.
func NewTokenCipher(secret string) (*TokenCipher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key := make([]byte, aesKeySize)
	reader := hkdf.New(sha256.New, []byte(secret), []byte(tokenCipherSalt), []byte(tokenCipherInfo))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals plaintext as base64(nonce || ciphertext || tag).
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: not base64", ErrDecryptFailed)
	}
	if len(data) < gcmNonceSize+c.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}

	plaintext, err := c.aead.Open(nil, data[:gcmNonceSize], data[gcmNonceSize:], nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
