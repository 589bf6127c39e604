package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/brk3/ghcal/internal/config"
	"github.com/brk3/ghcal/internal/logger"
)

var (
	cfg     *config.Config
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ghcal",
	Short: "Render contribution calendars and streak statistics",
	Long: `
	ghcal scrapes the public contribution calendar of a user, computes the yearly total
	along with the longest and current streaks, and renders the result as an embeddable
	HTML widget or a terminal summary. It can also run as an HTTP server that serves
	widgets and saved widget profiles.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	level := c.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logger.Setup(level, c.LogFormat); err != nil {
		return err
	}
	logger.Debug("Configuration loaded", "command", cmd.Name(), "source_url", c.Widget.SourceURL, "proxy", c.Widget.Proxy != "")
	cfg = c
	return nil
}

// Execute runs the command tree; ctx cancels in-flight fetches.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default $GHCAL_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
