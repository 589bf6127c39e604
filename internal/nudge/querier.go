package nudge

import (
	"context"

	"github.com/brk3/ghcal/pkg/contrib"
)

// Querier is satisfied by *apiclient.Client.
type Querier interface {
	ListProfiles(ctx context.Context) ([]contrib.Profile, error)
	GetStats(ctx context.Context, identity string) (*contrib.Stats, error)
}

type Notifier interface {
	SendNudge(ctx context.Context, streaks []AtRisk) error
}
