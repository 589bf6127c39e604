package contrib

import "time"

// DateLayout is the day-granularity layout used by calendar cells and JSON output.
const DateLayout = "2006-01-02"

type Day struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Dataset is the per-day contribution history published by a calendar snapshot.
// Days are in source order, which is chronological.
type Dataset struct {
	Days          []Day     `json:"days"`
	TotalLastYear int       `json:"total_last_year"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Len returns the number of calendar days covered by the range, inclusive.
func (r DateRange) Len() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// StreakInfo holds the statistics derived from a Dataset. Nil pointers mean
// the value is undefined (no qualifying run or no contribution at all).
type StreakInfo struct {
	LongestStreak      int        `json:"longest_streak"`
	LongestStreakRange *DateRange `json:"longest_streak_range,omitempty"`
	CurrentStreak      int        `json:"current_streak"`
	CurrentStreakRange *DateRange `json:"current_streak_range,omitempty"`
	LastContributed    *time.Time `json:"last_contributed,omitempty"`
}

type Stats struct {
	Identity string     `json:"identity"`
	Dataset  Dataset    `json:"dataset"`
	Streak   StreakInfo `json:"streak"`
}

// DayOf truncates t to a UTC calendar day.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
