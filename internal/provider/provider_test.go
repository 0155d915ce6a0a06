package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"sessionkit/cli/internal/config"
)

const testRedirect = "http://127.0.0.1:8765/callback"

func TestNewRejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		client   Client
		redirect string
		wantErr  string
	}{
		{"missing client id", Google, Client{}, testRedirect, "client id"},
		{"missing redirect", Google, Client{ID: "id"}, "", "redirect url"},
		{"unknown provider", "myspace", Client{ID: "id"}, testRedirect, "unknown oauth provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.provider, tt.client, tt.redirect)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("New() err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestAuthCodeURLCarriesStateAndPKCE(t *testing.T) {
	p, err := New(Google, Client{ID: "g-client"}, testRedirect)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw := p.AuthCodeURL("state-123", oauth2.GenerateVerifier())
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := u.Query()

	checks := map[string]string{
		"client_id":             "g-client",
		"state":                 "state-123",
		"redirect_uri":          testRedirect,
		"response_type":         "code",
		"code_challenge_method": "S256",
		"scope":                 "openid profile email",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if q.Get("code_challenge") == "" {
		t.Error("code_challenge missing")
	}
}

func TestExchangeAndPostBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("code_verifier"); got != "verifier-1" {
			t.Errorf("code_verifier = %q, want verifier-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fb-access",
			"token_type":   "Bearer",
			"id_token":     "g-id-token",
		})
	}))
	defer srv.Close()

	ep := oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}

	tests := []struct {
		name     string
		provider string
		want     url.Values
	}{
		{"google uses id token", Google, url.Values{"id_token": {"g-id-token"}, "providerId": {GoogleProviderID}}},
		{"facebook uses access token", Facebook, url.Values{"access_token": {"fb-access"}, "providerId": {FacebookProviderID}}},
		{"linkedin uses id token", LinkedIn, url.Values{"id_token": {"g-id-token"}, "providerId": {LinkedInProviderID}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.provider, Client{ID: "id", Secret: "secret"}, testRedirect, WithEndpoint(ep))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			tok, err := p.Exchange(context.Background(), "code-1", "verifier-1")
			if err != nil {
				t.Fatalf("Exchange: %v", err)
			}
			body, err := p.PostBody(tok)
			if err != nil {
				t.Fatalf("PostBody: %v", err)
			}
			got, _ := url.ParseQuery(body)
			if got.Encode() != tt.want.Encode() {
				t.Fatalf("postBody = %q, want %q", got.Encode(), tt.want.Encode())
			}
		})
	}
}

func TestPostBodyWithoutIDToken(t *testing.T) {
	p, _ := New(Google, Client{ID: "id"}, testRedirect)
	if _, err := p.PostBody(&oauth2.Token{AccessToken: "a"}); err == nil {
		t.Fatal("expected an error when google returns no id_token")
	}
}

func TestWithProviderID(t *testing.T) {
	p, _ := New(LinkedIn, Client{ID: "id"}, testRedirect, WithProviderID("oidc.linkedin"))
	if p.ProviderID() != "oidc.linkedin" {
		t.Fatalf("ProviderID() = %q", p.ProviderID())
	}
}

func TestRegistryFromConfig(t *testing.T) {
	reg, err := FromConfig(config.OAuthConfig{
		RedirectURL: testRedirect,
		Google:      config.OAuthClient{ClientID: "g"},
		LinkedIn:    config.OAuthClient{ClientID: "l"},
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	if got := strings.Join(reg.Names(), ","); got != "google,linkedin" {
		t.Fatalf("Names() = %q", got)
	}
	if _, err := reg.Get(Facebook); err == nil {
		t.Fatal("facebook should not be registered")
	}
	if p, ok := reg.ByProviderID(LinkedInProviderID); !ok || p.Name() != LinkedIn {
		t.Fatalf("ByProviderID(linkedin.com) = %v, %v", p, ok)
	}

	set := reg.Providers()
	if set.Google == nil || set.LinkedIn == nil {
		t.Fatalf("providers = %+v, want google and linkedin", set)
	}
	if set.Facebook != nil {
		t.Fatal("unconfigured facebook must stay a nil interface")
	}
}
