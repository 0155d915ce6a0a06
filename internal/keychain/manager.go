// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores sessionkit secrets in the OS credential store: the
// persisted sign-in session and the Postgres DSN of the profile backend.
//
// macOS uses the native `security` tool when available. Other platforms go
// through github.com/99designs/keyring with native backends only.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "sessionkit"

// Keys used for storing secrets in the OS keychain.
const (
	KeyAuthState = "auth_state"
	KeyDBDSN     = "db_dsn"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("keychain: key not found")

// backend is the minimal set of operations the manager needs.
type backend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Manager provides thread-safe access to sessionkit secrets.
type Manager struct {
	mu      sync.RWMutex
	backend backend
}

// NewManager opens the platform credential store.
func NewManager() (*Manager, error) {
	if runtime.GOOS == "darwin" {
		if b, err := newSecurityBackend(); err == nil {
			return &Manager{backend: b}, nil
		}
		// Fall through to keyring library if security command fails
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing wraps an already opened keyring, such as
// keyring.NewArrayKeyring in tests.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{backend: ringBackend{ring: ring}}
}

// openRing opens the OS keyring using native platform backends only.
func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		// pass requires: brew install pass
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on " + runtime.GOOS)
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. On macOS 26.0+, install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}
	return ring, nil
}

// SaveAuthState stores the serialized sign-in session.
func (m *Manager) SaveAuthState(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Set(KeyAuthState, string(data))
}

// LoadAuthState returns the serialized sign-in session, or ErrNotFound.
func (m *Manager) LoadAuthState() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := m.backend.Get(KeyAuthState)
	if err != nil {
		return nil, err
	}
	if data == "" {
		return nil, ErrNotFound
	}
	return []byte(data), nil
}

// ClearAuthState removes the stored session. Missing keys are not an error.
func (m *Manager) ClearAuthState() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ignoreNotFound(m.backend.Delete(KeyAuthState))
}

// SaveDBDSN stores the profile database DSN.
func (m *Manager) SaveDBDSN(dsn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Set(KeyDBDSN, dsn)
}

// LoadDBDSN returns the profile database DSN, or ErrNotFound.
func (m *Manager) LoadDBDSN() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dsn, err := m.backend.Get(KeyDBDSN)
	if err != nil {
		return "", err
	}
	if dsn == "" {
		return "", ErrNotFound
	}
	return dsn, nil
}

// ClearDB removes DB-related secrets.
func (m *Manager) ClearDB() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ignoreNotFound(m.backend.Delete(KeyDBDSN))
}

// ClearAll removes every sessionkit secret.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(
		ignoreNotFound(m.backend.Delete(KeyAuthState)),
		ignoreNotFound(m.backend.Delete(KeyDBDSN)),
	)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// ringBackend adapts keyring.Keyring to backend.
type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}
