package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/brk3/ghcal/internal/apiclient"
	"github.com/brk3/ghcal/internal/server"
	"github.com/brk3/ghcal/pkg/contrib"
)

const apiKeyEnv = "GHCAL_API_KEY"

var (
	apiToken          string
	profileSummary    string
	profileNoStats    bool
	profileResponsive bool
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List saved widget profiles",
	Long: `The "profiles" command manages the widget profiles saved on the server. Without a
subcommand it lists them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := newAPIClient().ListProfiles(cmd.Context())
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			cmd.Println("No profiles saved.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), profileTable(profiles))
		return nil
	},
}

var profilesAddCmd = &cobra.Command{
	Use:   "add <identity>",
	Short: "Save a widget profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := server.CreateProfileRequest{
			Identity:    args[0],
			SummaryText: profileSummary,
			Responsive:  profileResponsive,
		}
		if cmd.Flags().Changed("no-stats") {
			on := !profileNoStats
			req.GlobalStats = &on
		}
		p, err := newAPIClient().CreateProfile(cmd.Context(), req)
		if err != nil {
			return err
		}
		cmd.Printf("Saved profile %s for %s\n", p.ID, p.Identity)
		cmd.Printf("Widget: %s/profiles/%s/widget\n", cfg.APIBaseURL, p.ID)
		return nil
	},
}

var profilesRmCmd = &cobra.Command{
	Use:     "rm <profile-id>",
	Aliases: []string{"delete"},
	Short:   "Delete a widget profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient().DeleteProfile(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted profile %s\n", args[0])
		return nil
	},
}

func newAPIClient() *apiclient.Client {
	c := apiclient.New(cfg.APIBaseURL)
	c.Token = apiToken
	if c.Token == "" {
		c.Token = os.Getenv(apiKeyEnv)
	}
	return c
}

func profileTable(profiles []contrib.Profile) string {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{
			p.ID,
			p.Identity,
			strconv.FormatBool(p.StatsEnabled()),
			strconv.FormatBool(p.Responsive),
			p.Created().UTC().Format(time.DateOnly),
		})
	}
	headerStyle := lipgloss.NewStyle().Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "Identity", "Stats", "Responsive", "Created").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.Render()
}

func init() {
	profilesCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API key or session token (default $"+apiKeyEnv+")")

	profilesAddCmd.Flags().StringVar(&profileSummary, "summary", "", "summary line text, {identity} is replaced")
	profilesAddCmd.Flags().BoolVar(&profileNoStats, "no-stats", false, "omit the total and streak columns")
	profilesAddCmd.Flags().BoolVar(&profileResponsive, "responsive", false, "let the graphic scale with its container")

	profilesCmd.AddCommand(profilesAddCmd, profilesRmCmd)
	rootCmd.AddCommand(profilesCmd)
}
