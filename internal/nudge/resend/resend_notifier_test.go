package resend

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brk3/ghcal/internal/nudge"
	"github.com/brk3/ghcal/pkg/contrib"
)

func TestRender(t *testing.T) {
	start := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	streaks := []nudge.AtRisk{
		{Identity: "octocat", Streak: 3, Range: &contrib.DateRange{Start: start, End: start.AddDate(0, 0, 2)}},
		{Identity: "hubot<x>", Streak: 1},
	}
	subject, body, err := Render(streaks)
	if err != nil {
		t.Fatal(err)
	}
	if subject != "2 contribution streaks end today" {
		t.Fatalf("got subject %q", subject)
	}
	if !strings.Contains(body, "@octocat</a>: 3 days (October 14 &ndash; October 16)") {
		t.Fatalf("missing octocat line in %s", body)
	}
	if strings.Contains(body, "hubot<x>") {
		t.Fatal("identity was not escaped")
	}
}

func TestRender_Single(t *testing.T) {
	subject, _, err := Render([]nudge.AtRisk{{Identity: "octocat", Streak: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if subject != "Your 5 day streak for @octocat ends today" {
		t.Fatalf("got subject %q", subject)
	}
}

func TestSendNudge_RequiresConfig(t *testing.T) {
	n := &ResendNotifier{}
	if err := n.SendNudge(context.Background(), []nudge.AtRisk{{Identity: "octocat", Streak: 1}}); err == nil {
		t.Fatal("expected error without API key")
	}
}
