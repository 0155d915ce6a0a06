// Package provider describes the social sign-in providers sessionkit can
// redirect to: their OAuth2 client, endpoints and Firebase provider ID.
// Providers return tokens only and make no session decisions.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Short names accepted by `sessionkit login --provider`.
const (
	Google   = "google"
	Facebook = "facebook"
	LinkedIn = "linkedin"
)

// Firebase provider IDs passed to accounts:signInWithIdp.
const (
	GoogleProviderID   = "google.com"
	FacebookProviderID = "facebook.com"
	LinkedInProviderID = "linkedin.com"
)

// Client is a provider's OAuth client registration.
type Client struct {
	ID     string
	Secret string
	Scopes []string
}

// OAuth is one configured social provider.
type OAuth struct {
	name       string
	providerID string
	// tokenParam names the token forwarded to the identity provider.
	tokenParam string
	config     *oauth2.Config
}

// Option customises a provider.
type Option func(*OAuth)

// WithEndpoint replaces the provider's authorization and token endpoints.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(p *OAuth) { p.config.Endpoint = ep }
}

// WithProviderID overrides the Firebase provider ID, for example when LinkedIn
// is registered as a custom OIDC provider.
func WithProviderID(id string) Option {
	return func(p *OAuth) { p.providerID = id }
}

// New returns the named provider. Unknown names and clients without an ID are errors.
func New(name string, client Client, redirectURL string, opts ...Option) (*OAuth, error) {
	if strings.TrimSpace(client.ID) == "" {
		return nil, fmt.Errorf("%s oauth config missing client id", name)
	}
	if strings.TrimSpace(redirectURL) == "" {
		return nil, errors.New("oauth redirect url is required")
	}

	p := &OAuth{name: name}
	var (
		ep     oauth2.Endpoint
		scopes []string
	)
	switch name {
	case Google:
		p.providerID, p.tokenParam = GoogleProviderID, "id_token"
		ep, scopes = endpoints.Google, []string{"openid", "profile", "email"}
	case Facebook:
		p.providerID, p.tokenParam = FacebookProviderID, "access_token"
		ep, scopes = endpoints.Facebook, []string{"public_profile", "email"}
	case LinkedIn:
		p.providerID, p.tokenParam = LinkedInProviderID, "id_token"
		ep, scopes = endpoints.LinkedIn, []string{"openid", "profile", "email"}
	default:
		return nil, fmt.Errorf("unknown oauth provider: %s", name)
	}
	if len(client.Scopes) > 0 {
		scopes = client.Scopes
	}

	p.config = &oauth2.Config{
		ClientID:     client.ID,
		ClientSecret: client.Secret,
		RedirectURL:  redirectURL,
		Endpoint:     ep,
		Scopes:       scopes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the short provider name used by the registry.
func (p *OAuth) Name() string { return p.name }

// ProviderID returns the Firebase provider ID.
func (p *OAuth) ProviderID() string { return p.providerID }

// RedirectURL returns the registered callback URL.
func (p *OAuth) RedirectURL() string { return p.config.RedirectURL }

// AuthCodeURL builds the authorization URL with a PKCE S256 challenge.
func (p *OAuth) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange trades an authorization code for provider tokens.
func (p *OAuth) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	tok, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%s token exchange failed: %w", p.name, err)
	}
	return tok, nil
}

// PostBody encodes tok as the postBody field of accounts:signInWithIdp.
func (p *OAuth) PostBody(tok *oauth2.Token) (string, error) {
	var value string
	switch p.tokenParam {
	case "id_token":
		value, _ = tok.Extra("id_token").(string)
	default:
		value = tok.AccessToken
	}
	if value == "" {
		return "", fmt.Errorf("%s did not return %s", p.name, p.tokenParam)
	}

	v := url.Values{}
	v.Set(p.tokenParam, value)
	v.Set("providerId", p.providerID)
	return v.Encode(), nil
}
