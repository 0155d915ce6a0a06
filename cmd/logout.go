// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	logoutAll bool
)

// logoutCmd signs out and removes the persisted session.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the stored session",
	Long: `The logout command signs out of the identity provider and removes the session
stored in the OS keychain. The mirrored profile is cleared with it.

With --all the saved PostgreSQL connection is removed as well.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx, runtimeOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.store.AuthLogout(ctx); err != nil {
			fmt.Println("❌ Could not remove the stored session.")
			return err
		}
		if logoutAll && rt.keys != nil {
			if err := rt.keys.ClearDB(); err != nil {
				fmt.Println("❌ Could not remove the saved database connection.")
				return err
			}
		}

		fmt.Println("✅ Signed out and removed the stored session")
		if logoutAll {
			fmt.Println("   The saved database connection was removed too.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "Also remove the saved PostgreSQL connection")
}
