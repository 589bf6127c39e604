package streak

import (
	"time"

	"github.com/brk3/ghcal/pkg/contrib"
)

// Analyze derives streak statistics from a dataset. It never fails; an empty
// or all-zero dataset yields zero streaks and nil ranges.
func Analyze(ds contrib.Dataset) contrib.StreakInfo {
	var info contrib.StreakInfo
	days := ds.Days
	if len(days) == 0 {
		return info
	}

	// longest run, first occurrence wins ties
	run := 0
	var runStart time.Time
	closeRun := func(end time.Time) {
		if run > info.LongestStreak {
			info.LongestStreak = run
			info.LongestStreakRange = &contrib.DateRange{Start: runStart, End: end}
		}
		run = 0
	}
	for i, d := range days {
		if d.Count <= 0 {
			if run > 0 {
				closeRun(days[i-1].Date)
			}
			continue
		}
		if run > 0 && !consecutive(days[i-1].Date, d.Date) {
			closeRun(days[i-1].Date)
		}
		if run == 0 {
			runStart = d.Date
		}
		run++
	}
	if run > 0 {
		closeRun(days[len(days)-1].Date)
	}

	for i := len(days) - 1; i >= 0; i-- {
		if days[i].Count > 0 {
			last := days[i].Date
			info.LastContributed = &last
			break
		}
	}

	// the current streak must include the most recent recorded day
	last := len(days) - 1
	if days[last].Count <= 0 {
		return info
	}
	start := last
	for start > 0 && days[start-1].Count > 0 && consecutive(days[start-1].Date, days[start].Date) {
		start--
	}
	info.CurrentStreak = last - start + 1
	info.CurrentStreakRange = &contrib.DateRange{Start: days[start].Date, End: days[last].Date}

	return info
}

// AtRisk reports the streak that ended on the day before the most recent
// recorded day when that most recent day has no contributions yet. It returns
// zero and nil when there is nothing to lose.
func AtRisk(ds contrib.Dataset) (int, *contrib.DateRange) {
	days := ds.Days
	n := len(days)
	if n < 2 || days[n-1].Count > 0 {
		return 0, nil
	}
	if !consecutive(days[n-2].Date, days[n-1].Date) {
		return 0, nil
	}
	head := contrib.Dataset{Days: days[:n-1]}
	info := Analyze(head)
	return info.CurrentStreak, info.CurrentStreakRange
}

func consecutive(prev, next time.Time) bool {
	return contrib.DayOf(prev).AddDate(0, 0, 1).Equal(contrib.DayOf(next))
}
