// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"strings"

	"sessionkit/cli/internal/config"
	"sessionkit/cli/internal/dsn"
	"sessionkit/cli/internal/keychain"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// dbinfoCmd shows where profiles are read from, with credentials masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show the configured profile backend",
	Long: `The dbinfo command shows which backend profiles are read from. For PostgreSQL
it prints the connection string with the password masked.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if cfg.Profiles.Backend != config.BackendPostgres {
			pterm.DefaultBox.
				WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Profile Backend")).
				WithPadding(1).
				Println("Firestore project " + cfg.Firebase.ProjectID + "\n" + cfg.Firebase.FirestoreURL)
			return nil
		}

		source := "SESSIONKIT_PROFILES_POSTGRES_DSN"
		raw := strings.TrimSpace(cfg.Profiles.PostgresDSN)
		if raw == "" {
			source = "OS keychain"
			km, err := keychain.NewManager()
			if err != nil {
				pterm.Println("❌ Secure storage is not available on this system")
				return err
			}
			raw, err = km.LoadDBDSN()
			if err != nil && !errors.Is(err, keychain.ErrNotFound) {
				return err
			}
		}
		if raw == "" {
			pterm.Println("⚠️  No database connection configured")
			pterm.Println("   Please run: sessionkit connect")
			return nil
		}

		pterm.Println("Using DSN from " + source)
		pterm.Println()
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Profile Database")).
			WithPadding(1).
			Println(dsn.Redact(raw))
		pterm.Println()
		pterm.Println("To update this connection, run: sessionkit connect")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}
