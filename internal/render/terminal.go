package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/brk3/ghcal/pkg/contrib"
)

const heatCell = "■"

var (
	colorTitle = lipgloss.Color("36")
	colorDim   = lipgloss.Color("240")
	colorValue = lipgloss.Color("255")

	// empty cell followed by four intensity levels
	heatLevels = []lipgloss.Color{"237", "22", "28", "34", "40"}

	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleNumber = lipgloss.NewStyle().Bold(true).Foreground(colorValue)
	styleColumn = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1).
			MarginRight(1)
)

// Terminal renders the statistics and a weekly heatmap of at most maxWeeks
// columns for display in a terminal.
func Terminal(stats *contrib.Stats, maxWeeks int, now time.Time) string {
	var cols []string
	for _, c := range Columns(stats, now) {
		cols = append(cols, styleColumn.Render(lipgloss.JoinVertical(lipgloss.Left,
			styleDim.Render(c.Title),
			styleNumber.Render(c.Number),
			styleDim.Render(c.Detail),
		)))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		styleTitle.Render("@"+stats.Identity),
		Heatmap(stats.Dataset, maxWeeks),
		lipgloss.JoinHorizontal(lipgloss.Top, cols...),
	)
}

// Heatmap lays the days out in weekday rows, one column per week, newest
// week on the right.
func Heatmap(ds contrib.Dataset, maxWeeks int) string {
	if len(ds.Days) == 0 {
		return styleDim.Render("no contributions recorded")
	}

	peak := 0
	for _, d := range ds.Days {
		peak = max(peak, d.Count)
	}

	first := ds.Days[0].Date
	weekStart := first.AddDate(0, 0, -int(first.Weekday()))
	last := ds.Days[len(ds.Days)-1].Date
	weeks := int(last.Sub(weekStart).Hours()/24)/7 + 1

	grid := make([][]string, 7)
	for i := range grid {
		grid[i] = make([]string, weeks)
		for w := range grid[i] {
			grid[i][w] = " "
		}
	}
	for _, d := range ds.Days {
		w := int(d.Date.Sub(weekStart).Hours()/24) / 7
		style := lipgloss.NewStyle().Foreground(heatLevels[level(d.Count, peak)])
		grid[d.Date.Weekday()][w] = style.Render(heatCell)
	}

	if maxWeeks > 0 && weeks > maxWeeks {
		for i := range grid {
			grid[i] = grid[i][weeks-maxWeeks:]
		}
	}

	var b strings.Builder
	for i, row := range grid {
		label := "   "
		switch time.Weekday(i) {
		case time.Monday, time.Wednesday, time.Friday:
			label = time.Weekday(i).String()[:3]
		}
		fmt.Fprintf(&b, "%s %s\n", styleDim.Render(label), strings.Join(row, " "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// level buckets a count into one of four quartiles of the peak, 0 for none.
func level(count, peak int) int {
	if count <= 0 || peak <= 0 {
		return 0
	}
	l := (count*4 + peak - 1) / peak
	return min(max(l, 1), 4)
}
