package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brk3/ghcal/internal/fetch"
	"github.com/brk3/ghcal/internal/render"
)

var (
	widgetOut        string
	widgetSummary    string
	widgetNoStats    bool
	widgetResponsive bool
)

var widgetCmd = &cobra.Command{
	Use:   "widget <identity>",
	Short: "Render the embeddable calendar widget",
	Long: `The "widget" command fetches the contribution calendar of a user and writes the
widget HTML to stdout, or to the file given with --output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]
		opts := render.Options{
			SummaryText: cfg.Widget.SummaryText,
			GlobalStats: cfg.Widget.GlobalStats,
			Responsive:  cfg.Widget.Responsive,
		}
		flags := cmd.Flags()
		if flags.Changed("summary") {
			opts.SummaryText = widgetSummary
		}
		if flags.Changed("no-stats") {
			opts.GlobalStats = !widgetNoStats
		}
		if flags.Changed("responsive") {
			opts.Responsive = widgetResponsive
		}

		out, err := fetch.RenderWidget(cmd.Context(), newOrchestrator(), identity, opts)
		if err != nil {
			return err
		}

		if widgetOut == "" || widgetOut == "-" {
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}
		if err := os.WriteFile(widgetOut, []byte(out+"\n"), 0o644); err != nil {
			return fmt.Errorf("write widget: %w", err)
		}
		cmd.PrintErrf("Widget written to %s\n", widgetOut)
		return nil
	},
}

func init() {
	widgetCmd.Flags().StringVarP(&widgetOut, "output", "o", "", "write the widget to this file instead of stdout")
	widgetCmd.Flags().StringVar(&widgetSummary, "summary", "", "summary line HTML, {identity} is replaced")
	widgetCmd.Flags().BoolVar(&widgetNoStats, "no-stats", false, "omit the total and streak columns")
	widgetCmd.Flags().BoolVar(&widgetResponsive, "responsive", false, "let the graphic scale with its container")
	rootCmd.AddCommand(widgetCmd)
}
