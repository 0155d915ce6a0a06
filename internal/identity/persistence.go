// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "sessionkit/cli/internal/errors"
	"sessionkit/cli/internal/keychain"
	"sessionkit/cli/internal/session"
)

// expirySkew refreshes ID tokens slightly before they expire.
const expirySkew = 30 * time.Second

// storedSession is the keychain form of a signed-in user.
type storedSession struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	IsAnonymous   bool      `json:"isAnonymous"`
	DisplayName   string    `json:"displayName,omitempty"`
	PhotoURL      string    `json:"photoURL,omitempty"`
	ProviderID    string    `json:"providerId,omitempty"`
	IDToken       string    `json:"idToken"`
	RefreshToken  string    `json:"refreshToken"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// SetPersistence selects how the signed-in user is kept. local writes it to
// the secret store; session and none keep it in memory only, and none also
// drops the refresh token. Switching away from local removes the stored copy.
func (c *Client) SetPersistence(ctx context.Context, mode session.Persistence) error {
	if !mode.Valid() {
		return apperrors.New(apperrors.ConfigInvalid, fmt.Sprintf("unknown persistence %q", mode))
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.persistence = mode
	if mode == session.PersistenceNone && c.current != nil {
		c.current.RefreshToken = ""
	}
	if err := c.persistLocked(); err != nil {
		return apperrors.Wrap(apperrors.StorageUnavailable, "could not update stored session", err)
	}
	return nil
}

// Persistence returns the current persistence mode.
func (c *Client) Persistence() session.Persistence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistence
}

func (c *Client) persistLocked() error {
	if c.persistence != session.PersistenceLocal || c.current == nil {
		return c.secrets.ClearAuthState()
	}
	r := c.current
	b, err := json.Marshal(storedSession{
		UID:           r.UID,
		Email:         r.Email,
		EmailVerified: r.EmailVerified,
		IsAnonymous:   r.IsAnonymous,
		DisplayName:   r.DisplayName,
		PhotoURL:      r.PhotoURL,
		ProviderID:    r.ProviderID,
		IDToken:       r.IDToken,
		RefreshToken:  r.RefreshToken,
		ExpiresAt:     c.expiresAt,
	})
	if err != nil {
		return err
	}
	return c.secrets.SaveAuthState(b)
}

// SignOut forgets the signed-in user, removes the stored copy and notifies
// listeners with nil.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.current = nil
	c.expiresAt = time.Time{}
	err := c.secrets.ClearAuthState()
	c.fireMu.Lock()
	c.mu.Unlock()
	c.fire(nil)

	if err != nil {
		return apperrors.Wrap(apperrors.StorageUnavailable, "could not remove stored session", err)
	}
	return nil
}

// Restore signs the stored user back in under local persistence. It refreshes
// an expired ID token, re-reads the account flags and notifies listeners.
// It reports false when no usable session is stored; a session the identity
// service rejects is removed.
func (c *Client) Restore(ctx context.Context) (bool, error) {
	if c.Persistence() != session.PersistenceLocal {
		return false, nil
	}
	data, err := c.secrets.LoadAuthState()
	if errors.Is(err, keychain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(apperrors.StorageUnavailable, "could not read stored session", err)
	}

	var st storedSession
	if err := json.Unmarshal(data, &st); err != nil || st.UID == "" {
		c.logger.Warn("discarding unreadable stored session")
		return false, c.secrets.ClearAuthState()
	}

	rec := session.AuthRecord{
		UID:           st.UID,
		Email:         st.Email,
		EmailVerified: st.EmailVerified,
		IsAnonymous:   st.IsAnonymous,
		DisplayName:   st.DisplayName,
		PhotoURL:      st.PhotoURL,
		ProviderID:    st.ProviderID,
		IDToken:       st.IDToken,
		RefreshToken:  st.RefreshToken,
	}
	expiresAt := st.ExpiresAt

	if c.expired(expiresAt) {
		if rec.RefreshToken == "" {
			c.logger.Info("stored session expired")
			return false, c.secrets.ClearAuthState()
		}
		tr, err := c.refresh(ctx, rec.RefreshToken)
		if err != nil {
			return false, c.rejectStored(err)
		}
		rec.IDToken = tr.IDToken
		if tr.RefreshToken != "" {
			rec.RefreshToken = tr.RefreshToken
		}
		expiresAt = c.expiry(tr.ExpiresIn)
	}

	if err := c.lookupInto(ctx, &rec); err != nil {
		return false, c.rejectStored(err)
	}

	c.mu.Lock()
	out := c.setCurrentLocked(&rec, expiresAt)
	c.fire(out)
	return true, nil
}

// rejectStored clears the stored session when the service refused it and
// passes transport errors through.
func (c *Client) rejectStored(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn("stored session rejected", c.logger.Args("reason", apiErr.Code))
		return c.secrets.ClearAuthState()
	}
	return err
}

// IDToken returns the signed-in user's ID token, refreshing it when expired.
func (c *Client) IDToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return "", ErrNoUser
	}
	uid, token, refreshToken := c.current.UID, c.current.IDToken, c.current.RefreshToken
	stale := c.expired(c.expiresAt)
	c.mu.Unlock()

	if !stale || refreshToken == "" {
		return token, nil
	}

	tr, err := c.refresh(ctx, refreshToken)
	if err != nil {
		return "", apperrors.Wrap(apperrors.AuthFailed, "could not refresh id token", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.UID == uid {
		c.current.IDToken = tr.IDToken
		if tr.RefreshToken != "" && c.persistence != session.PersistenceNone {
			c.current.RefreshToken = tr.RefreshToken
		}
		c.expiresAt = c.expiry(tr.ExpiresIn)
		if err := c.persistLocked(); err != nil {
			c.logger.Warn("could not persist session", c.logger.Args("error", err.Error()))
		}
	}
	return tr.IDToken, nil
}

func (c *Client) expired(at time.Time) bool {
	return !at.IsZero() && !c.now().Before(at.Add(-expirySkew))
}

// memorySecrets keeps the session in process memory when no keychain is wired.
type memorySecrets struct {
	mu   sync.Mutex
	data []byte
}

func (m *memorySecrets) SaveAuthState(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memorySecrets) LoadAuthState() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, keychain.ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *memorySecrets) ClearAuthState() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
