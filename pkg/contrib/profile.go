package contrib

import "time"

// Profile is a saved widget configuration. Only the options are stored, never
// the fetched calendar.
type Profile struct {
	ID          string `json:"id"`
	Identity    string `json:"identity" validate:"required,min=1,max=39,hostname_rfc1123"`
	SummaryText string `json:"summary_text,omitempty" validate:"max=1024"`
	GlobalStats *bool  `json:"global_stats,omitempty"`
	Responsive  bool   `json:"responsive"`
	CreatedAt   int64  `json:"created_at"`
}

// StatsEnabled reports whether the widget should show global stats; unset means true.
func (p Profile) StatsEnabled() bool {
	return p.GlobalStats == nil || *p.GlobalStats
}

func (p Profile) Created() time.Time {
	return time.Unix(p.CreatedAt, 0)
}
