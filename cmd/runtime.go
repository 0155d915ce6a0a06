// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"

	"sessionkit/cli/internal/config"
	"sessionkit/cli/internal/docstore"
	apperrors "sessionkit/cli/internal/errors"
	"sessionkit/cli/internal/httperrors"
	"sessionkit/cli/internal/identity"
	"sessionkit/cli/internal/keychain"
	"sessionkit/cli/internal/logging"
	"sessionkit/cli/internal/provider"
	"sessionkit/cli/internal/session"

	"github.com/pterm/pterm"
)

// runtimeOptions selects which parts of the runtime a command needs.
type runtimeOptions struct {
	// profiles opens the configured profile store.
	profiles bool
	// logLevel, when set, overrides the configured log level.
	logLevel string
}

// apply layers command-line overrides onto the loaded configuration.
func (o runtimeOptions) apply(cfg *config.Config) {
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
}

// cliRuntime is everything a command needs to drive a session store.
type cliRuntime struct {
	cfg      config.Config
	logger   *pterm.Logger
	keys     *keychain.Manager // nil when the OS keychain is unavailable
	client   *identity.Client
	registry *provider.Registry
	docs     docstore.Store
	store    *session.Store
	unlisten func()
}

// newRuntime loads configuration and wires the identity client, the profile
// store and the session store together. Callers must Close it.
func newRuntime(ctx context.Context, opts runtimeOptions) (*cliRuntime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigInvalid, "could not load configuration", err)
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigInvalid, "invalid configuration", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, nil)
	rt := &cliRuntime{cfg: cfg, logger: logger, docs: noProfiles{}}

	clientOpts := []identity.Option{
		identity.WithBrowserOpener(openBrowser),
		identity.WithLogger(logger),
	}
	if cfg.Firebase.TokenURL != "" {
		clientOpts = append(clientOpts, identity.WithTokenURL(cfg.Firebase.TokenURL))
	}
	if km, err := keychain.NewManager(); err != nil {
		logger.Warn("OS keychain unavailable, sign-in will not outlive this process",
			logger.Args("error", err.Error()))
	} else {
		rt.keys = km
		clientOpts = append(clientOpts, identity.WithSecretStore(km))
	}
	rt.client = identity.New(cfg.Firebase.APIKey, cfg.Firebase.IdentityURL, clientOpts...)

	rt.registry, err = provider.FromConfig(cfg.OAuth)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigInvalid, "invalid oauth configuration", err)
	}

	if opts.profiles {
		var secrets docstore.DSNSource
		if rt.keys != nil {
			secrets = rt.keys
		}
		docs, err := docstore.Open(ctx, cfg, rt.client, secrets)
		if err != nil {
			return nil, err
		}
		rt.docs = docs
	}

	rt.store = session.NewStore(rt.client, rt.docs,
		session.WithLogger(logger),
		session.WithNotifier(session.NotifierFunc(func(msg string) { pterm.Warning.Println(msg) })),
		session.WithPersistence(session.Persistence(cfg.Persistence)),
		session.WithProviders(rt.registry.Providers()),
	)
	rt.unlisten = bindStore(rt.client, rt.store)
	return rt, nil
}

// Close stops listening, cancels pending profile fetches and closes the profile store.
func (rt *cliRuntime) Close() {
	if rt.unlisten != nil {
		rt.unlisten()
	}
	if rt.store != nil {
		_ = rt.store.Close()
	}
	if rt.docs != nil {
		rt.docs.Close()
	}
}

// restore signs a persisted session back in and waits for its profile.
func (rt *cliRuntime) restore(ctx context.Context) (bool, error) {
	ok, err := rt.client.Restore(ctx)
	if err != nil {
		return false, err
	}
	if ok {
		rt.store.Wait()
	}
	return ok, nil
}

// networkError shows a friendly message for transport failures talking to
// the identity service and returns err wrapped. Other errors pass through.
func (rt *cliRuntime) networkError(err error, action string) error {
	if apperrors.KindOf(err) == apperrors.StorageUnavailable || httperrors.Classify(err) == httperrors.Generic {
		return err
	}
	return httperrors.FormatNetworkError(err, action, httperrors.ExtractHostFromURL(rt.cfg.Firebase.IdentityURL))
}

// authListener is the part of the identity client the session store follows.
type authListener interface {
	OnAuthStateChanged(fn func(*session.AuthRecord)) func()
}

// bindStore routes identity state changes into store and returns the unsubscribe func.
func bindStore(l authListener, store *session.Store) func() {
	return l.OnAuthStateChanged(func(rec *session.AuthRecord) {
		if rec == nil {
			store.AuthLogoutSuccess()
			return
		}
		store.AuthSuccess(*rec)
	})
}

var errProfilesNotLoaded = errors.New("profiles are not loaded by this command")

// noProfiles stands in for the profile store in commands that never read it.
type noProfiles struct{}

func (noProfiles) Get(ctx context.Context, collection, id string) (*session.Snapshot, error) {
	return nil, errProfilesNotLoaded
}

func (noProfiles) Close() {}
