package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brk3/ghcal/internal/config"
	"github.com/brk3/ghcal/internal/server"
	"github.com/brk3/ghcal/internal/storage/bolt"
	"github.com/brk3/ghcal/pkg/contrib"
	"github.com/brk3/ghcal/pkg/errors"
)

// The last two days are 0 after a run, so octocat's streak is at risk.
const calendarPage = `<html><body><div class="js-yearly-contributions">
<svg width="722" height="112" class="js-calendar-graph-svg"><g>
<rect class="day" data-count="1" data-date="2026-10-13"></rect>
<rect class="day" data-count="2" data-date="2026-10-14"></rect>
<rect class="day" data-count="0" data-date="2026-10-15"></rect>
<rect class="day" data-count="3" data-date="2026-10-16"></rect>
<rect class="day" data-count="0" data-date="2026-10-17"></rect>
</g></svg>
<div class="float-left text-gray">Learn how we count contributions.</div>
</div></body></html>`

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat/contributions" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(calendarPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig points the source template at src and the API at api.
func writeConfig(t *testing.T, src, api string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf(`api_base_url: %q
db_path: %q
log_level: error
widget:
  source_url: %q
  global_stats: true
fetch:
  max_attempts: 2
  retry_delay: 1ms
`, api, filepath.Join(t.TempDir(), "ghcal.db"), src+"/users/{identity}/contributions")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStats_JSON(t *testing.T) {
	cfgPath := writeConfig(t, upstream(t).URL, "http://unused")

	out, err := execute(t, "stats", "octocat", "--json", "--config", cfgPath)
	require.NoError(t, err)

	var stats contrib.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, "octocat", stats.Identity)
	assert.Equal(t, 6, stats.Dataset.TotalLastYear)
	assert.Equal(t, 2, stats.Streak.LongestStreak)
	assert.Equal(t, 0, stats.Streak.CurrentStreak)
}

func TestStats_Terminal(t *testing.T) {
	cfgPath := writeConfig(t, upstream(t).URL, "http://unused")

	out, err := execute(t, "stats", "octocat", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "@octocat")
	assert.Contains(t, out, "6 total")
	assert.Contains(t, out, "Longest streak")
}

func TestStats_UnknownIdentity(t *testing.T) {
	cfgPath := writeConfig(t, upstream(t).URL, "http://unused")

	_, err := execute(t, "stats", "nobody", "--config", cfgPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestStats_RequiresIdentity(t *testing.T) {
	_, err := execute(t, "stats")
	assert.Error(t, err)
}

func TestWidget_ToFile(t *testing.T) {
	cfgPath := writeConfig(t, upstream(t).URL, "http://unused")
	outFile := filepath.Join(t.TempDir(), "widget.html")

	_, err := execute(t, "widget", "octocat", "-o", outFile, "--config", cfgPath)
	require.NoError(t, err)

	b, err := os.ReadFile(outFile)
	require.NoError(t, err)
	html := string(b)
	assert.True(t, strings.HasPrefix(html, `<div class="github-calendar">`))
	assert.Contains(t, html, "6 total")
	assert.Contains(t, html, "Last contributed in October 16.")
}

func TestWidget_NoStatsResponsive(t *testing.T) {
	cfgPath := writeConfig(t, upstream(t).URL, "http://unused")

	out, err := execute(t, "widget", "octocat", "--no-stats", "--responsive",
		"--summary", "Made by {identity}", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "min-height: 175px")
	assert.Contains(t, out, "Made by octocat")
	assert.Contains(t, out, `viewBox="0 0 722 112"`)
	assert.NotContains(t, out, "contrib-number")
}

// apiServer runs the real router over a temporary bolt store.
func apiServer(t *testing.T, src string) *httptest.Server {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := config.Default()
	c.Widget.SourceURL = src + "/users/{identity}/contributions"
	c.Fetch.MaxAttempts = 2
	s, err := server.New(c, store, nil)
	require.NoError(t, err)

	api := httptest.NewServer(s.Router())
	t.Cleanup(api.Close)
	return api
}

func TestProfiles_AddListRemove(t *testing.T) {
	src := upstream(t)
	api := apiServer(t, src.URL)
	cfgPath := writeConfig(t, src.URL, api.URL)

	out, err := execute(t, "profiles", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No profiles saved.")

	out, err = execute(t, "profiles", "add", "octocat", "--no-stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved profile")

	out, err = execute(t, "profiles", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "octocat")
	assert.Contains(t, out, "false")

	fields := strings.Fields(out)
	var id string
	for _, f := range fields {
		if len(f) == 36 && strings.Count(f, "-") == 4 {
			id = f
		}
	}
	require.NotEmpty(t, id, "profile id not found in %q", out)

	out, err = execute(t, "profiles", "rm", id, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted profile "+id)
}

func TestProfiles_AddInvalid(t *testing.T) {
	src := upstream(t)
	api := apiServer(t, src.URL)
	cfgPath := writeConfig(t, src.URL, api.URL)

	_, err := execute(t, "profiles", "add", "not a user", "--config", cfgPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestNudge_DryRun(t *testing.T) {
	src := upstream(t)
	api := apiServer(t, src.URL)
	cfgPath := writeConfig(t, src.URL, api.URL)

	_, err := execute(t, "profiles", "add", "octocat", "--config", cfgPath)
	require.NoError(t, err)

	out, err := execute(t, "nudge", "--dry-run", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "octocat: 1 day streak at risk")
}

func TestNudge_RequiresResendKey(t *testing.T) {
	cfgPath := writeConfig(t, "http://unused", "http://unused")
	t.Setenv("GHCAL_RESEND_API_KEY", "")

	_, err := execute(t, "nudge", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resend_api_key")
}

func TestVersion(t *testing.T) {
	api := apiServer(t, "http://unused")
	cfgPath := writeConfig(t, "http://unused", api.URL)

	out, err := execute(t, "version", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Client Version: dev")
	assert.Contains(t, out, "Server Version: dev")
}
