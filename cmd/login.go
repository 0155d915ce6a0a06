// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"sessionkit/cli/internal/config"
	apperrors "sessionkit/cli/internal/errors"
	"sessionkit/cli/internal/httperrors"
	"sessionkit/cli/internal/logging"
	"sessionkit/cli/internal/provider"
	"sessionkit/cli/internal/session"
	"sessionkit/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginProvider string
	loginTimeout  time.Duration
)

// loginCmd signs in with email/password or a social provider and waits for
// the user's profile before greeting them.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in with email/password or a social provider",
	Long: `The login command signs in to the configured Firebase project.

Without --provider it asks for an email (unless --email is given) and a password,
which is read without echo. With --provider google|facebook|linkedin it opens the
provider's consent page in the browser and waits for the redirect on the local
callback address (oauth.redirect_url).

The session is kept according to the persistence setting: "local" stores it in
the OS keychain so later commands stay signed in.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
		defer cancel()

		rt, err := newRuntime(ctx, runtimeOptions{profiles: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		ok, err := rt.restore(ctx)
		if err != nil {
			rt.logger.Debug("no session restored", rt.logger.Args("error", err.Error()))
		}
		if ok {
			fmt.Printf("Already logged in as %s\n", displayName(rt.store.Record()))
			fmt.Println("   Run 'sessionkit logout' to switch accounts.")
			return nil
		}

		if loginProvider != "" {
			err = loginWithProvider(ctx, rt, strings.ToLower(loginProvider))
		} else {
			err = loginWithPassword(ctx, rt, loginEmail)
		}
		if err != nil {
			return err
		}

		rt.store.Wait()
		fmt.Println(loginGreeting(rt.store.Record()))
		if rt.store.Phase() == session.AuthenticatedNoProfile {
			pterm.Println("   No profile was found for this account yet.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Email address for password sign-in")
	loginCmd.Flags().StringVar(&loginProvider, "provider", "", "Social provider: google, facebook or linkedin")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "How long to wait for sign-in to complete")
}

func loginWithPassword(ctx context.Context, rt *cliRuntime, email string) error {
	if email == "" {
		fmt.Print("Email: ")
		line, err := terminal.ReadLine(os.Stdin)
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = line
	}
	if email == "" {
		return errors.New("email is required")
	}

	password, err := terminal.ReadSecret("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return errors.New("password is required")
	}

	stop := startInlineSpinner(os.Stdout, "Signing in", spinnerFrames, 120*time.Millisecond)
	_, err = rt.store.AuthLogin(ctx, session.Credentials{Email: email, Password: password})
	stop()
	if err != nil {
		if httperrors.Classify(err) != httperrors.Generic {
			return rt.networkError(err, "signing in")
		}
		logging.PresentAuthError(err)
		return err
	}
	return nil
}

// redirectSignIns maps provider short names to the store's sign-in actions.
var redirectSignIns = map[string]func(*session.Store, context.Context) error{
	provider.Google:   (*session.Store).SignInWithGoogle,
	provider.Facebook: (*session.Store).SignInWithFacebook,
	provider.LinkedIn: (*session.Store).SignInWithLinkedIn,
}

func loginWithProvider(ctx context.Context, rt *cliRuntime, name string) error {
	signIn, ok := redirectSignIns[name]
	if !ok {
		return fmt.Errorf("unknown provider %q; use google, facebook or linkedin", name)
	}
	p, err := rt.registry.Get(name)
	if err != nil {
		return fmt.Errorf("%w; set %sOAUTH_%s_CLIENT_ID", err, config.EnvPrefix, strings.ToUpper(name))
	}

	result := make(chan error, 1)
	shutdown, err := startCallbackServer(p.RedirectURL(), rt.client.CallbackHandler(func(err error) {
		select {
		case result <- err:
		default:
		}
	}))
	if err != nil {
		return err
	}
	defer shutdown()

	if err := signIn(rt.store, ctx); err != nil {
		if apperrors.KindOf(err) != apperrors.RedirectFailed {
			return err
		}
		// The link was already printed; the user can open it by hand.
		rt.logger.Debug("browser not opened", rt.logger.Args("error", err.Error()))
		pterm.Warning.Println("Could not open a browser automatically. Open the link above to continue.")
	}

	stop := startInlineSpinner(os.Stdout, "Waiting for sign-in in the browser", spinnerFrames, 120*time.Millisecond)
	select {
	case err := <-result:
		stop()
		if err != nil {
			logging.PresentAuthError(err)
			return err
		}
		return nil
	case <-ctx.Done():
		stop()
		return fmt.Errorf("login timed out waiting for the browser")
	}
}

// startCallbackServer serves h on the loopback host and path of redirectURL
// and returns a func that shuts the server down.
func startCallbackServer(redirectURL string, h http.Handler) (func(), error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect url: %w", err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("redirect url %q must be a local http address", redirectURL)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("listen for redirect on %s: %w", u.Host, err)
	}
	mux := http.NewServeMux()
	mux.Handle(path, h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// openBrowser prints link and tries to open it in the default browser:
//   - Windows: rundll32 url.dll,FileProtocolHandler
//   - macOS: open
//   - Linux: xdg-open
//
// It does not wait for the browser process.
func openBrowser(link string) error {
	fmt.Println("Open this link to complete login:")
	fmt.Printf("%s\n\n", link)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", link)
	case "darwin":
		cmd = exec.Command("open", link)
	default:
		cmd = exec.Command("xdg-open", link)
	}
	return cmd.Start()
}
