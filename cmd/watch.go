// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"sessionkit/cli/internal/session"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	watchRefresh time.Duration
)

// watchCmd live-renders the session store until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the session live as it changes",
	Long: `The watch command restores the stored session and redraws the mirrored
record every time the session store changes. With --refresh it pulls the
profile document again at that interval.

Press Ctrl+C to stop.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx, runtimeOptions{profiles: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		cursor.Hide()
		defer cursor.Show()
		area, err := pterm.DefaultArea.Start(watchFrame(rt.store.State()))
		if err != nil {
			return err
		}
		defer area.Stop()

		cancel := rt.store.Subscribe(func(st session.State) {
			area.Update(watchFrame(st))
		})
		defer cancel()

		if _, err := rt.client.Restore(ctx); err != nil {
			return rt.networkError(err, "restoring your session")
		}

		var tick <-chan time.Time
		if watchRefresh > 0 {
			t := time.NewTicker(watchRefresh)
			defer t.Stop()
			tick = t.C
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
				if u := rt.client.CurrentUser(); u != nil {
					rt.store.AuthSuccess(*u)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", 0, "Re-read the profile at this interval (0 disables)")
}

func watchFrame(st session.State) string {
	return renderState(st) + "\n" + pterm.Gray("Updated "+time.Now().Format("15:04:05")+" · Ctrl+C to stop")
}
