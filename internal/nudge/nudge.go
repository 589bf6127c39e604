// Package nudge warns about streaks that end unless someone contributes today.
package nudge

import (
	"context"
	"fmt"

	"github.com/brk3/ghcal/internal/logger"
	"github.com/brk3/ghcal/internal/streak"
	"github.com/brk3/ghcal/pkg/contrib"
)

// AtRisk is an identity whose run stopped at the day before the latest
// calendar day.
type AtRisk struct {
	Identity string
	Streak   int
	Range    *contrib.DateRange
}

// GetStreaksAtRisk checks every saved profile once per identity. Identities
// whose stats cannot be fetched are logged and skipped.
func GetStreaksAtRisk(ctx context.Context, q Querier) ([]AtRisk, error) {
	profiles, err := q.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	seen := make(map[string]bool, len(profiles))
	var out []AtRisk
	for _, p := range profiles {
		if seen[p.Identity] {
			continue
		}
		seen[p.Identity] = true

		stats, err := q.GetStats(ctx, p.Identity)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Skipping identity, stats unavailable", "identity", p.Identity, "error", err)
			continue
		}
		if n, r := streak.AtRisk(stats.Dataset); n > 0 {
			out = append(out, AtRisk{Identity: p.Identity, Streak: n, Range: r})
		}
	}
	return out, nil
}

// Run sends one nudge listing every streak at risk. It returns how many were
// reported; nothing is sent when none are.
func Run(ctx context.Context, q Querier, n Notifier) (int, error) {
	streaks, err := GetStreaksAtRisk(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(streaks) == 0 {
		logger.Info("No streaks at risk")
		return 0, nil
	}
	logger.Info("Sending nudge", "count", len(streaks))
	if err := n.SendNudge(ctx, streaks); err != nil {
		return 0, fmt.Errorf("send nudge: %w", err)
	}
	return len(streaks), nil
}
