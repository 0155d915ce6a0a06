package docstore

import (
	"context"
	"errors"
	"fmt"

	"sessionkit/cli/internal/config"
	"sessionkit/cli/internal/dsn"
	"sessionkit/cli/internal/keychain"
	"sessionkit/cli/internal/session"
)

// Store is a document store that may hold connections.
type Store interface {
	session.DocumentStore
	Close()
}

// DSNSource supplies the stored Postgres DSN. keychain.Manager satisfies it.
type DSNSource interface {
	LoadDBDSN() (string, error)
}

// ErrNoDSN is returned when the postgres backend has no DSN configured.
var ErrNoDSN = errors.New("no postgres DSN configured; run 'sessionkit connect' or set SESSIONKIT_PROFILES_POSTGRES_DSN")

// Open returns the profile store selected by cfg.Profiles.Backend. For
// postgres, the DSN comes from the environment first, then from secrets.
func Open(ctx context.Context, cfg config.Config, tokens TokenSource, secrets DSNSource) (Store, error) {
	switch cfg.Profiles.Backend {
	case config.BackendFirestore, "":
		return NewFirestore(cfg.Firebase.FirestoreURL, cfg.Firebase.ProjectID, tokens), nil

	case config.BackendPostgres:
		raw := cfg.Profiles.PostgresDSN
		if raw == "" && secrets != nil {
			stored, err := secrets.LoadDBDSN()
			if err != nil && !errors.Is(err, keychain.ErrNotFound) {
				return nil, err
			}
			raw = stored
		}
		if raw == "" {
			return nil, ErrNoDSN
		}
		normalized, err := dsn.Parse(raw)
		if err != nil {
			return nil, err
		}
		return OpenPostgres(ctx, normalized)

	default:
		return nil, fmt.Errorf("unknown profiles backend %q", cfg.Profiles.Backend)
	}
}
