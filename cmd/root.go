// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for sessionkit.
// It implements subcommands for signing in, signing out and inspecting the
// mirrored session using the Cobra CLI framework, with pterm for terminal output.
package cmd

import (
	"fmt"
	"os"

	"sessionkit/cli/internal/logging"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sessionkit",
	Short: "Mirror your Firebase sign-in and profile from the terminal",
	Long: `sessionkit signs in to a Firebase project (email/password or Google, Facebook,
LinkedIn), keeps the session in the OS keychain and mirrors the user's profile
document from Firestore or PostgreSQL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("sessionkit %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.PresentError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}
