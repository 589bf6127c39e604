package nudge

import (
	"context"
	"fmt"

	"github.com/brk3/ghcal/pkg/contrib"
)

type mockClient struct {
	profiles []contrib.Profile
	stats    map[string]*contrib.Stats
	err      error
	calls    map[string]int
}

func (f *mockClient) ListProfiles(ctx context.Context) ([]contrib.Profile, error) {
	return f.profiles, f.err
}

func (f *mockClient) GetStats(ctx context.Context, identity string) (*contrib.Stats, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[identity]++
	s, ok := f.stats[identity]
	if !ok {
		return nil, fmt.Errorf("no stats for %s", identity)
	}
	return s, nil
}
