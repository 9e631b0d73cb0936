// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package prefs persists per-kiosk client state: UI preference keys and,
// encrypted, the session token, so a restarted kiosk comes back with the
// same identity and settings instead of a blank slate.
package prefs

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
)

// Well-known preference keys.
const (
	KeyAdvancedSettings = "advanced_settings"
	KeyNavbarWidth      = "navbar_width"
	KeyRTL              = "rtl"
	KeyLanguage         = "language"
	KeyDirectPlay       = "direct_play"
	KeyPlayerNavbar     = "player_navbar"
	KeyPlayerClientID   = "player_client_id"
)

// tokenKey is where the encrypted session token lives. It is not listed by
// Keys and not reachable through Get/Set.
const tokenKey = "\x00session_token"

// ErrNoSecret is returned for token operations on a store opened without
// an encryption secret.
var ErrNoSecret = errors.New("no encryption secret configured")

// Store is a Badger-backed preference store.
type Store struct {
	db     *badger.DB
	cipher *TokenCipher
}

// Open opens (or creates) the preference database at dir. A non-empty
// secret enables encrypted token persistence.
func Open(dir, secret string) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithIndexCacheSize(8 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open preference store: %w", err)
	}

	s := &Store{db: db}
	if secret != "" {
		cipher, err := NewTokenCipher(secret)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		s.cipher = cipher
	}
	return s, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored for key. The second return is false when
// the key is absent.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = string(raw)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value for key.
func (s *Store) Set(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete preference %q: %w", key, err)
	}
	return nil
}

// Keys lists all stored preference keys, excluding internal ones.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if key == tokenKey {
				continue
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return keys, nil
}

// SaveToken persists the session token, encrypted.
func (s *Store) SaveToken(token string) error {
	if s.cipher == nil {
		return ErrNoSecret
	}
	if token == "" {
		return s.Delete(tokenKey)
	}
	sealed, err := s.cipher.Encrypt(token)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	return s.Set(tokenKey, sealed)
}

// LoadToken returns the persisted session token, or an empty string when
// none is stored or the stored one cannot be decrypted (wrong secret,
// corruption). An unreadable token is treated as logged out, not fatal.
func (s *Store) LoadToken() (string, error) {
	if s.cipher == nil {
		return "", ErrNoSecret
	}
	sealed, ok, err := s.Get(tokenKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	token, err := s.cipher.Decrypt(sealed)
	if err != nil {
		logging.Warn().Err(err).Msg("stored session token unreadable, discarding")
		return "", nil
	}
	return token, nil
}
