package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	apperrors "sessionkit/cli/internal/errors"
	"sessionkit/cli/internal/session"
)

// redirectTTL bounds how long a started redirect can be completed.
const redirectTTL = 10 * time.Minute

// ErrUnknownState is returned for callbacks that match no started redirect.
var ErrUnknownState = errors.New("identity: unknown or expired redirect state")

// RedirectProvider is a social provider that can run an authorization-code
// flow. provider.OAuth satisfies it.
type RedirectProvider interface {
	session.Provider
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	PostBody(tok *oauth2.Token) (string, error)
	RedirectURL() string
}

type pendingRedirect struct {
	provider RedirectProvider
	verifier string
	started  time.Time
}

// SignInWithRedirect opens the provider's authorization page and returns.
// The sign-in completes when CallbackHandler receives the redirect.
func (c *Client) SignInWithRedirect(ctx context.Context, p session.Provider) error {
	rp, ok := p.(RedirectProvider)
	if !ok {
		return apperrors.New(apperrors.RedirectFailed, fmt.Sprintf("provider %s cannot start a redirect sign-in", p.ProviderID()))
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	c.mu.Lock()
	now := c.now()
	for st, pr := range c.pending {
		if now.Sub(pr.started) > redirectTTL {
			delete(c.pending, st)
		}
	}
	c.pending[state] = pendingRedirect{provider: rp, verifier: verifier, started: now}
	c.mu.Unlock()

	authURL := rp.AuthCodeURL(state, verifier)
	c.logger.Info("starting redirect sign-in", c.logger.Args("provider", rp.ProviderID()))

	if c.open == nil {
		return apperrors.New(apperrors.RedirectFailed, "no browser available; open this URL to continue: "+authURL)
	}
	if err := c.open(authURL); err != nil {
		return apperrors.Wrap(apperrors.RedirectFailed, "could not open browser; open this URL to continue: "+authURL, err)
	}
	return nil
}

// CallbackHandler serves the provider redirect. It exchanges the code,
// completes the sign-in with the identity service and notifies listeners.
// done, when non-nil, is called after the response is written with the
// outcome of the attempt.
func (c *Client) CallbackHandler(done func(error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		_, err := c.completeRedirect(r.Context(), r.URL.Query())
		if err != nil {
			c.logger.Warn("redirect sign-in failed", c.logger.Args("error", err.Error()))
			http.Error(w, "Sign-in failed. Return to the terminal for details.", http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("Signed in to sessionkit. You can close this window.\n"))
		}
		if done != nil {
			done(err)
		}
	})
}

func (c *Client) completeRedirect(ctx context.Context, q url.Values) (session.AuthRecord, error) {
	if e := q.Get("error"); e != "" {
		msg := e
		if d := q.Get("error_description"); d != "" {
			msg += ": " + d
		}
		return session.AuthRecord{}, apperrors.New(apperrors.RedirectFailed, msg)
	}

	state := q.Get("state")
	c.mu.Lock()
	pr, ok := c.pending[state]
	delete(c.pending, state)
	c.mu.Unlock()
	if !ok || c.now().Sub(pr.started) > redirectTTL {
		return session.AuthRecord{}, ErrUnknownState
	}

	code := q.Get("code")
	if code == "" {
		return session.AuthRecord{}, apperrors.New(apperrors.RedirectFailed, "missing authorization code")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := pr.provider.Exchange(ctx, code, pr.verifier)
	if err != nil {
		return session.AuthRecord{}, apperrors.Wrap(apperrors.RedirectFailed, "code exchange failed", err)
	}
	body, err := pr.provider.PostBody(tok)
	if err != nil {
		return session.AuthRecord{}, apperrors.Wrap(apperrors.RedirectFailed, "provider token missing", err)
	}
	rec, err := c.signInWithIdp(ctx, pr.provider.RedirectURL(), body)
	if err != nil {
		return session.AuthRecord{}, apperrors.Wrap(apperrors.AuthFailed, "identity sign-in failed", err)
	}
	return rec, nil
}
