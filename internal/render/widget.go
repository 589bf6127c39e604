// Package render turns a calendar fragment and its derived statistics into
// presentation output. Nothing here touches the network or mutates state
// outside the returned values.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brk3/ghcal/pkg/contrib"
	"github.com/brk3/ghcal/pkg/errors"
)

const (
	longDate  = "Jan 2, 2006"
	shortDate = "January 2"

	noStatsMinHeight = "175px"
)

const columnsTemplate = `{{range .}}<div class="{{.Class}}">
  <span class="text-muted">{{.Title}}</span>
  <span class="contrib-number">{{.Number}}</span>
  <span class="text-muted">{{.Detail}}</span>
</div>
{{end}}`

var columnsTmpl = template.Must(template.New("columns").Parse(columnsTemplate))

type Options struct {
	// SummaryText is trusted HTML; "{identity}" is replaced with the
	// escaped identity.
	SummaryText string
	// PlainSummary marks SummaryText as untrusted text. It is escaped in
	// full before insertion.
	PlainSummary bool
	GlobalStats bool
	Responsive  bool
	// Now anchors the "last year" window when the dataset carries none.
	Now time.Time
}

// Column is one of the three statistic blocks shown under the calendar.
type Column struct {
	Class  string
	Title  string
	Number string
	Detail string
}

// SummaryHTML expands the summary template for identity.
func SummaryHTML(tmpl, identity string) string {
	return strings.ReplaceAll(tmpl, "{identity}", html.EscapeString(identity))
}

// SummaryPlain expands the summary template for identity and escapes the
// result, so markup in tmpl shows up as text.
func SummaryPlain(tmpl, identity string) string {
	return html.EscapeString(strings.ReplaceAll(tmpl, "{identity}", identity))
}

// Widget rewrites a calendar fragment into the embeddable widget markup. With
// GlobalStats the three statistic columns are appended and stats must be
// non-nil; without it a minimum height is reserved instead.
func Widget(fragment string, stats *contrib.Stats, opts Options) (string, error) {
	if opts.GlobalStats && stats == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "global stats requested without statistics")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeMalformedMarkup, err, "read calendar fragment")
	}
	cal := doc.Find(".js-yearly-contributions").First()
	if cal.Length() == 0 {
		cal = doc.Find("body")
	}

	identity := ""
	if stats != nil {
		identity = stats.Identity
	}
	summary := SummaryHTML(opts.SummaryText, identity)
	if opts.PlainSummary {
		summary = SummaryPlain(opts.SummaryText, identity)
	}
	setSummary(cal, summary)

	if opts.Responsive {
		makeResponsive(cal)
	}

	if opts.GlobalStats {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		var buf bytes.Buffer
		if err := columnsTmpl.Execute(&buf, Columns(stats, now)); err != nil {
			return "", fmt.Errorf("render stat columns: %w", err)
		}
		cal.AppendHtml(buf.String())
	}

	inner, err := cal.Html()
	if err != nil {
		return "", fmt.Errorf("serialize widget: %w", err)
	}

	var out strings.Builder
	out.WriteString(`<div class="github-calendar"`)
	if !opts.GlobalStats {
		out.WriteString(` style="min-height: ` + noStatsMinHeight + `"`)
	}
	out.WriteString(">")
	out.WriteString(inner)
	out.WriteString("</div>")
	return out.String(), nil
}

func setSummary(cal *goquery.Selection, summary string) {
	sel := cal.Find(".float-left.text-gray, .contrib-footer .float-left").First()
	if sel.Length() == 0 {
		cal.AppendHtml(`<div class="float-left text-gray">` + summary + `</div>`)
		return
	}
	sel.SetHtml(summary)
}

// makeResponsive lets the graphic scale with its container: the width fills
// the container, the explicit height goes and a viewBox built from the
// original size keeps the aspect ratio.
func makeResponsive(cal *goquery.Selection) {
	svg := cal.Find("svg.js-calendar-graph-svg").First()
	if svg.Length() == 0 {
		svg = cal.Find("svg").First()
	}
	if svg.Length() == 0 {
		return
	}
	width, hasWidth := svg.Attr("width")
	height, hasHeight := svg.Attr("height")
	svg.RemoveAttr("height")
	svg.SetAttr("width", "100%")
	if hasWidth && hasHeight {
		svg.SetAttr("viewBox", fmt.Sprintf("0 0 %s %s", width, height))
	}
}

// Columns builds the total, longest-streak and current-streak blocks.
func Columns(stats *contrib.Stats, now time.Time) []Column {
	from, to := stats.Dataset.From, stats.Dataset.To
	if to.IsZero() {
		to = now
		from = now.AddDate(-1, 0, 0)
	}
	s := stats.Streak
	return []Column{
		{
			Class:  "contrib-column contrib-column-first table-column",
			Title:  "Contributions in the last year",
			Number: fmt.Sprintf("%d total", stats.Dataset.TotalLastYear),
			Detail: from.Format(longDate) + " – " + to.Format(longDate),
		},
		{
			Class:  "contrib-column table-column",
			Title:  "Longest streak",
			Number: fmt.Sprintf("%d days", s.LongestStreak),
			Detail: streakDetail(s.LongestStreak, s.LongestStreakRange, s.LastContributed),
		},
		{
			Class:  "contrib-column table-column",
			Title:  "Current streak",
			Number: fmt.Sprintf("%d days", s.CurrentStreak),
			Detail: streakDetail(s.CurrentStreak, s.CurrentStreakRange, s.LastContributed),
		},
	}
}

func streakDetail(n int, r *contrib.DateRange, last *time.Time) string {
	switch {
	case n > 0 && r != nil:
		return r.Start.Format(shortDate) + " – " + r.End.Format(shortDate)
	case last != nil:
		return "Last contributed in " + last.Format(shortDate) + "."
	default:
		return "Rock - Hard Place"
	}
}
