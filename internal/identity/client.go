// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package identity is a client for the Identity Toolkit REST API. It signs
// users in with email/password or a social provider redirect, keeps the
// signed-in user according to the selected persistence mode, and reports
// sign-in and sign-out through auth-state listeners.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"sessionkit/cli/internal/session"
)

// ErrNoUser is returned when an operation needs a signed-in user.
var ErrNoUser = errors.New("identity: no signed-in user")

// SecretStore persists the serialized session. keychain.Manager satisfies it.
type SecretStore interface {
	SaveAuthState(data []byte) error
	LoadAuthState() ([]byte, error)
	ClearAuthState() error
}

// BrowserOpener opens a URL in the user's browser.
type BrowserOpener func(url string) error

// Client implements session.AuthClient over the Identity Toolkit REST API.
type Client struct {
	apiKey      string
	identityURL string
	tokenURL    string
	http        *http.Client
	secrets     SecretStore
	open        BrowserOpener
	logger      *pterm.Logger
	now         func() time.Time

	mu          sync.Mutex
	persistence session.Persistence
	current     *session.AuthRecord
	expiresAt   time.Time
	pending     map[string]pendingRedirect

	// fireMu keeps listener calls in state-change order.
	fireMu    sync.Mutex
	lmu       sync.Mutex
	listeners map[uint64]func(*session.AuthRecord)
	nextID    uint64
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithSecretStore sets where local persistence writes the session.
func WithSecretStore(s SecretStore) Option { return func(c *Client) { c.secrets = s } }

// WithBrowserOpener sets how redirect sign-ins open the authorization URL.
func WithBrowserOpener(open BrowserOpener) Option { return func(c *Client) { c.open = open } }

// WithLogger sets the client's logger.
func WithLogger(l *pterm.Logger) Option { return func(c *Client) { c.logger = l } }

// WithTokenURL sets the secure token service base URL used to refresh ID tokens.
func WithTokenURL(u string) Option {
	return func(c *Client) { c.tokenURL = strings.TrimRight(u, "/") }
}

// WithClock replaces time.Now, for token expiry in tests.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// New returns a client for the project identified by apiKey. identityURL is
// the Identity Toolkit v1 base, for example the Firebase Auth emulator.
func New(apiKey, identityURL string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		identityURL: strings.TrimRight(identityURL, "/"),
		tokenURL:    "https://securetoken.googleapis.com/v1",
		http:        &http.Client{Timeout: 10 * time.Second},
		logger:      pterm.DefaultLogger.WithLevel(pterm.LogLevelInfo),
		now:         time.Now,
		persistence: session.PersistenceLocal,
		pending:     make(map[string]pendingRedirect),
		listeners:   make(map[uint64]func(*session.AuthRecord)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.secrets == nil {
		c.secrets = &memorySecrets{}
	}
	return c
}

// OnAuthStateChanged registers fn to be called with the signed-in user after
// every sign-in, and with nil after sign-out. It returns an unsubscribe func.
// Callbacks run on the goroutine that changed the state.
func (c *Client) OnAuthStateChanged(fn func(*session.AuthRecord)) func() {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lmu.Lock()
			delete(c.listeners, id)
			c.lmu.Unlock()
		})
	}
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (c *Client) CurrentUser() *session.AuthRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyRecord(c.current)
}

// setCurrentLocked replaces the signed-in user and hands listener delivery
// to the caller: it takes fireMu, releases mu and returns the record to fire.
// The caller must call fire and then release fireMu.
func (c *Client) setCurrentLocked(rec *session.AuthRecord, expiresAt time.Time) *session.AuthRecord {
	c.current = rec
	c.expiresAt = expiresAt
	if err := c.persistLocked(); err != nil {
		c.logger.Warn("could not persist session", c.logger.Args("error", err.Error()))
	}
	out := copyRecord(rec)
	c.fireMu.Lock()
	c.mu.Unlock()
	return out
}

func (c *Client) fire(rec *session.AuthRecord) {
	defer c.fireMu.Unlock()

	c.lmu.Lock()
	fns := make([]func(*session.AuthRecord), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.lmu.Unlock()

	for _, fn := range fns {
		fn(copyRecord(rec))
	}
}

// signedIn records a completed sign-in and notifies listeners.
func (c *Client) signedIn(rec session.AuthRecord, expiresIn string) session.AuthRecord {
	c.mu.Lock()
	if c.persistence == session.PersistenceNone {
		rec.RefreshToken = ""
	}
	out := c.setCurrentLocked(&rec, c.expiry(expiresIn))
	c.fire(out)
	return *out
}

func (c *Client) post(ctx context.Context, base, endpoint string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	u := base + "/" + endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.logger.Debug("identity request", c.logger.Args("endpoint", endpoint))
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// APIError is an error reported by the identity service, such as
// INVALID_LOGIN_CREDENTIALS or USER_DISABLED.
type APIError struct {
	Status int
	// Code is the leading upper-case token of Message.
	Code    string
	Message string
}

func (e *APIError) Error() string { return e.Message }

func newAPIError(status int, message string) *APIError {
	code, _, _ := strings.Cut(message, " ")
	return &APIError{Status: status, Code: strings.TrimSpace(code), Message: message}
}

func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(b, &env); err == nil && env.Error.Message != "" {
		return newAPIError(resp.StatusCode, env.Error.Message)
	}
	return &APIError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
	}
}

func copyRecord(r *session.AuthRecord) *session.AuthRecord {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
