package nudge

import "context"

type mockNotifier struct {
	called  bool
	streaks []AtRisk
	err     error
}

func (m *mockNotifier) SendNudge(_ context.Context, streaks []AtRisk) error {
	m.called = true
	m.streaks = streaks
	return m.err
}
