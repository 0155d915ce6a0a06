package provider

import (
	"fmt"
	"sort"

	"sessionkit/cli/internal/config"
	"sessionkit/cli/internal/session"
)

// Registry holds the configured providers and allows lookup by short name.
type Registry struct {
	providers map[string]*OAuth
}

// NewRegistry registers the given providers by name. Later duplicates win.
func NewRegistry(list ...*OAuth) *Registry {
	m := make(map[string]*OAuth, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// FromConfig builds a registry from every provider that has a client ID.
func FromConfig(cfg config.OAuthConfig) (*Registry, error) {
	clients := []struct {
		name   string
		client config.OAuthClient
	}{
		{Google, cfg.Google},
		{Facebook, cfg.Facebook},
		{LinkedIn, cfg.LinkedIn},
	}

	var list []*OAuth
	for _, c := range clients {
		if !c.client.Configured() {
			continue
		}
		p, err := New(c.name, Client{
			ID:     c.client.ClientID,
			Secret: c.client.ClientSecret,
			Scopes: c.client.Scopes,
		}, cfg.RedirectURL)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return NewRegistry(list...), nil
}

// Get returns the provider by name or an error if not registered.
func (r *Registry) Get(name string) (*OAuth, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", name)
	}
	return p, nil
}

// ByProviderID returns the provider with the given Firebase provider ID.
func (r *Registry) ByProviderID(id string) (*OAuth, bool) {
	for _, p := range r.providers {
		if p.ProviderID() == id {
			return p, true
		}
	}
	return nil, false
}

// Names lists registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Providers returns the store-facing provider set. Unregistered providers stay nil.
func (r *Registry) Providers() session.Providers {
	var out session.Providers
	if p, ok := r.providers[Google]; ok {
		out.Google = p
	}
	if p, ok := r.providers[Facebook]; ok {
		out.Facebook = p
	}
	if p, ok := r.providers[LinkedIn]; ok {
		out.LinkedIn = p
	}
	return out
}
