// Package calendar turns a contribution calendar snapshot into a day-indexed
// dataset. Both the legacy SVG calendar (rect cells carrying data-count) and
// the table calendar (td cells with a sibling tool-tip) are understood.
package calendar

import (
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brk3/ghcal/pkg/contrib"
	"github.com/brk3/ghcal/pkg/errors"
)

const (
	daySelector   = "rect[data-date], td[data-date], .ContributionCalendar-day[data-date]"
	graphSelector = ".js-calendar-graph"
)

var tooltipCount = regexp.MustCompile(`(?i)(\d[\d,]*)\s+contributions?`)

// Parse extracts the per-day dataset from a calendar fragment. Cells with an
// unparseable date are skipped; cells with a missing or bad count are kept
// with a count of zero. A fragment without a single usable cell is malformed.
func Parse(markup string) (contrib.Dataset, error) {
	return ParseReader(strings.NewReader(markup))
}

func ParseReader(r io.Reader) (contrib.Dataset, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return contrib.Dataset{}, errors.Wrap(errors.ErrCodeMalformedMarkup, err, "read calendar markup")
	}
	return parseDocument(doc.Selection)
}

func parseDocument(root *goquery.Selection) (contrib.Dataset, error) {
	tooltips := tooltipCounts(root)

	var days []contrib.Day
	seen := make(map[time.Time]struct{})
	root.Find(daySelector).Each(func(_ int, cell *goquery.Selection) {
		date, ok := parseDate(cell.AttrOr("data-date", ""))
		if !ok {
			return
		}
		if _, dup := seen[date]; dup {
			return
		}
		seen[date] = struct{}{}
		days = append(days, contrib.Day{Date: date, Count: cellCount(cell, tooltips)})
	})
	if len(days) == 0 {
		return contrib.Dataset{}, errors.New(errors.ErrCodeMalformedMarkup, "no contribution day cells found")
	}
	// The table calendar lays out one row per weekday, so document order
	// walks each weekday across all weeks before the next one.
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	from, to := window(root, days)
	ds := contrib.Dataset{From: from, To: to, Days: make([]contrib.Day, 0, len(days))}
	for _, d := range days {
		if d.Date.Before(from) || d.Date.After(to) {
			continue
		}
		ds.Days = append(ds.Days, d)
		ds.TotalLastYear += d.Count
	}
	if len(ds.Days) == 0 {
		return contrib.Dataset{}, errors.New(errors.ErrCodeMalformedMarkup,
			"no day cells inside the advertised window %s..%s", from.Format(contrib.DateLayout), to.Format(contrib.DateLayout))
	}
	return ds, nil
}

// window returns the advertised one-year range. The graph container's
// data-from/data-to attributes win; otherwise the range ends at the latest
// cell and starts one year earlier.
func window(root *goquery.Selection, days []contrib.Day) (time.Time, time.Time) {
	var to time.Time
	for _, d := range days {
		if d.Date.After(to) {
			to = d.Date
		}
	}
	from := to.AddDate(-1, 0, 0)

	graph := root.Find(graphSelector).First()
	if t, ok := parseDate(graph.AttrOr("data-to", "")); ok {
		to = t
		from = to.AddDate(-1, 0, 0)
	}
	if f, ok := parseDate(graph.AttrOr("data-from", "")); ok && !f.After(to) {
		from = f
	}
	return from, to
}

func cellCount(cell *goquery.Selection, tooltips map[string]int) int {
	if raw, ok := cell.Attr("data-count"); ok {
		return atoiNonNegative(raw)
	}
	if id, ok := cell.Attr("id"); ok {
		return tooltips[id]
	}
	return 0
}

func tooltipCounts(root *goquery.Selection) map[string]int {
	out := make(map[string]int)
	root.Find("tool-tip[for]").Each(func(_ int, tip *goquery.Selection) {
		m := tooltipCount.FindStringSubmatch(tip.Text())
		if m == nil {
			return
		}
		out[tip.AttrOr("for", "")] = atoiNonNegative(m[1])
	})
	return out
}

func atoiNonNegative(raw string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseDate accepts "2006-01-02" optionally followed by a time component,
// as found in data-from="2025-10-12 00:00:00 UTC".
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(contrib.DateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(contrib.DateLayout, raw[:len(contrib.DateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
