package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"sessionkit/cli/internal/session"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	whoamiJSON    bool
	verboseWhoami bool
)

// whoamiCmd restores the stored session, waits for the profile and prints it.
var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"me"},
	Short:   "Show the signed-in user and their profile",
	Long: `The whoami command restores the session kept in the OS keychain, loads the
user's profile document and prints the mirrored record with its flags.

Use --json for machine-readable output.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runtimeOptions{profiles: true}
		if verboseWhoami {
			opts.logLevel = "debug"
		}

		ctx := cmd.Context()
		rt, err := newRuntime(ctx, opts)
		if err != nil {
			return err
		}
		defer rt.Close()

		ok, err := rt.restore(ctx)
		if err != nil {
			return rt.networkError(err, "restoring your session")
		}

		st := rt.store.State()
		if whoamiJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(newWhoamiOutput(st))
		}
		if !ok {
			notLoggedIn()
			return nil
		}

		fmt.Printf("👤 Current user: %s\n\n", displayName(st.Record))
		pterm.Print(renderState(st))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().BoolVar(&whoamiJSON, "json", false, "Print the session as JSON")
	whoamiCmd.Flags().BoolVarP(&verboseWhoami, "verbose", "v", false, "Enable debug logging")
}

type whoamiOutput struct {
	Phase  string         `json:"phase"`
	Record session.Record `json:"record"`
	Flags  sessionFlags   `json:"flags"`
}

type sessionFlags struct {
	Authenticated       bool `json:"authenticated"`
	EmailVerified       bool `json:"emailVerified"`
	EmailVerifiedStrict bool `json:"emailVerifiedStrict"`
	Onboarded           bool `json:"onboarded"`
	OnboardedStrict     bool `json:"onboardedStrict"`
}

func newWhoamiOutput(st session.State) whoamiOutput {
	rec := st.Record
	return whoamiOutput{
		Phase:  st.Phase.String(),
		Record: rec,
		Flags: sessionFlags{
			Authenticated:       rec.IsAuthenticated(),
			EmailVerified:       rec.IsEmailVerified(),
			EmailVerifiedStrict: rec.IsEmailVerifiedStrict(),
			Onboarded:           rec.IsOnboarded(),
			OnboardedStrict:     rec.IsOnboardedStrict(),
		},
	}
}
