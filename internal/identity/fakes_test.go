package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/pterm/pterm"
	"golang.org/x/oauth2"

	"sessionkit/cli/internal/keychain"
	"sessionkit/cli/internal/session"
)

const testAPIKey = "test-key"

// fakeIdentityServer mimics the Identity Toolkit and secure token endpoints.
type fakeIdentityServer struct {
	*httptest.Server

	mu    sync.Mutex
	calls []string
	// valid ID tokens accepted by accounts:lookup
	valid map[string]bool
}

func newFakeIdentityServer(t *testing.T) *fakeIdentityServer {
	t.Helper()
	f := &fakeIdentityServer{valid: map[string]bool{"id-1": true, "id-2": true, "id-g": true}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeIdentityServer) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeIdentityServer) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, strings.TrimPrefix(r.URL.Path, "/"))
	f.mu.Unlock()

	if r.URL.Query().Get("key") != testAPIKey {
		writeAPIError(w, http.StatusBadRequest, "API key not valid. Please pass a valid API key.")
		return
	}

	switch r.URL.Path {
	case "/accounts:signInWithPassword":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "pw" {
			writeAPIError(w, http.StatusBadRequest, "INVALID_LOGIN_CREDENTIALS")
			return
		}
		writeJSON(w, map[string]any{
			"localId":      "u1",
			"email":        body.Email,
			"idToken":      "id-1",
			"refreshToken": "r-1",
			"expiresIn":    "3600",
		})

	case "/accounts:lookup":
		var body struct {
			IDToken string `json:"idToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		ok := f.valid[body.IDToken]
		f.mu.Unlock()
		if !ok {
			writeAPIError(w, http.StatusBadRequest, "INVALID_ID_TOKEN")
			return
		}
		user := map[string]any{
			"localId":          "u1",
			"email":            "e@x.com",
			"emailVerified":    true,
			"displayName":      "Bob",
			"photoUrl":         "https://example.com/bob.png",
			"providerUserInfo": []map[string]any{{"providerId": "password"}},
		}
		if body.IDToken == "id-g" {
			user = map[string]any{
				"localId":          "g1",
				"email":            "g@x.com",
				"emailVerified":    true,
				"displayName":      "Gina",
				"photoUrl":         "https://example.com/gina.png",
				"providerUserInfo": []map[string]any{{"providerId": "google.com"}},
			}
		}
		writeJSON(w, map[string]any{"users": []map[string]any{user}})

	case "/accounts:signInWithIdp":
		var body struct {
			RequestURI string `json:"requestUri"`
			PostBody   string `json:"postBody"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		q, _ := url.ParseQuery(body.PostBody)
		if q.Get("access_token") != "provider-token" || body.RequestURI == "" {
			writeAPIError(w, http.StatusBadRequest, "INVALID_IDP_RESPONSE")
			return
		}
		writeJSON(w, map[string]any{
			"localId":       "g1",
			"providerId":    q.Get("providerId"),
			"email":         "g@x.com",
			"emailVerified": true,
			"displayName":   "Gina",
			"idToken":       "id-g",
			"refreshToken":  "r-g",
			"expiresIn":     "3600",
		})

	case "/token":
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "r-1" {
			writeAPIError(w, http.StatusBadRequest, "INVALID_REFRESH_TOKEN")
			return
		}
		writeJSON(w, map[string]any{
			"id_token":      "id-2",
			"refresh_token": "r-2",
			"expires_in":    "3600",
			"user_id":       "u1",
		})

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// listenerLog records auth-state callbacks.
type listenerLog struct {
	mu     sync.Mutex
	events []*session.AuthRecord
}

func (l *listenerLog) record(r *session.AuthRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, r)
}

func (l *listenerLog) all() []*session.AuthRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*session.AuthRecord(nil), l.events...)
}

type testEnv struct {
	server  *fakeIdentityServer
	secrets *keychain.Manager
	clock   *fakeClock
	events  *listenerLog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		server:  newFakeIdentityServer(t),
		secrets: keychain.NewManagerWithRing(keyring.NewArrayKeyring(nil)),
		clock:   &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
		events:  &listenerLog{},
	}
}

func (e *testEnv) client(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithSecretStore(e.secrets),
		WithTokenURL(e.server.URL),
		WithClock(e.clock.Now),
		WithLogger(pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled)),
	}
	c := New(testAPIKey, e.server.URL, append(base, opts...)...)
	unsubscribe := c.OnAuthStateChanged(e.events.record)
	t.Cleanup(unsubscribe)
	return c
}

// fakeRedirectProvider stands in for an OAuth provider.
type fakeRedirectProvider struct {
	mu       sync.Mutex
	verifier string
}

func (p *fakeRedirectProvider) ProviderID() string  { return "google.com" }
func (p *fakeRedirectProvider) RedirectURL() string { return "http://127.0.0.1:8765/callback" }

func (p *fakeRedirectProvider) AuthCodeURL(state, verifier string) string {
	p.mu.Lock()
	p.verifier = verifier
	p.mu.Unlock()
	return "https://idp.example/auth?state=" + url.QueryEscape(state)
}

func (p *fakeRedirectProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if code != "good-code" || verifier != p.verifier {
		return nil, errors.New("invalid_grant")
	}
	return &oauth2.Token{AccessToken: "provider-token"}, nil
}

func (p *fakeRedirectProvider) PostBody(tok *oauth2.Token) (string, error) {
	return url.Values{"access_token": {tok.AccessToken}, "providerId": {p.ProviderID()}}.Encode(), nil
}

type plainProvider string

func (p plainProvider) ProviderID() string { return string(p) }
