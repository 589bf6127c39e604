package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brk3/ghcal/internal/nudge"
	"github.com/brk3/ghcal/internal/nudge/resend"
)

var nudgeDryRun bool

var nudgeCmd = &cobra.Command{
	Use:   "nudge",
	Short: "Send a reminder for contribution streaks that end today",
	Long: `The "nudge" command checks every saved profile and e-mails a reminder listing the
identities whose streak ran through yesterday but who have not contributed today.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if nudgeDryRun {
			return nil
		}
		if cfg.Nudge.ResendAPIKey == "" {
			return fmt.Errorf("nudge.resend_api_key (or GHCAL_RESEND_API_KEY) is not set")
		}
		if cfg.Nudge.NotifyEmail == "" {
			return fmt.Errorf("nudge.notify_email (or GHCAL_NOTIFY_EMAIL) is not set")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		if nudgeDryRun {
			streaks, err := nudge.GetStreaksAtRisk(cmd.Context(), client)
			if err != nil {
				return err
			}
			for _, s := range streaks {
				cmd.Printf("%s: %d day streak at risk\n", s.Identity, s.Streak)
			}
			return nil
		}

		n := &resend.ResendNotifier{
			ApiKey: cfg.Nudge.ResendAPIKey,
			Email:  cfg.Nudge.NotifyEmail,
			From:   cfg.Nudge.From,
		}
		count, err := nudge.Run(cmd.Context(), client, n)
		if err != nil {
			return err
		}
		cmd.Printf("Nudged about %d streaks\n", count)
		return nil
	},
}

func init() {
	nudgeCmd.Flags().BoolVar(&nudgeDryRun, "dry-run", false, "print streaks at risk instead of sending e-mail")
	nudgeCmd.Flags().StringVar(&apiToken, "token", "", "API key or session token (default $"+apiKeyEnv+")")
	rootCmd.AddCommand(nudgeCmd)
}
