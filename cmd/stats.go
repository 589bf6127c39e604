package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brk3/ghcal/internal/render"
)

var (
	statsJSON  bool
	statsWeeks int
)

var statsCmd = &cobra.Command{
	Use:   "stats <identity>",
	Short: "Show contribution totals and streaks",
	Long: `The "stats" command fetches the contribution calendar of a user and prints the
yearly total, the longest streak and the current streak, followed by a heatmap.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newOrchestrator().FetchDataset(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		stats := res.Stats()

		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.Terminal(stats, statsWeeks, time.Now()))
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
	statsCmd.Flags().IntVar(&statsWeeks, "weeks", 26, "number of weeks shown in the heatmap (0 for all)")
	rootCmd.AddCommand(statsCmd)
}
