package calendar

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brk3/ghcal/pkg/errors"
)

const (
	containerSelector   = ".js-yearly-contributions"
	placeholderSelector = "include-fragment"
)

// Fragment is the calendar portion of a fetched page.
type Fragment struct {
	HTML string
	// Pending is set when a loading placeholder stands in for the graphic,
	// meaning the calendar has not finished rendering upstream.
	Pending bool
}

// ExtractCalendar locates the yearly contributions container in a profile
// page. Pages that are already a bare calendar fragment are returned whole.
func ExtractCalendar(page string) (Fragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return Fragment{}, errors.Wrap(errors.ErrCodeMalformedMarkup, err, "read page markup")
	}

	sel := doc.Find(containerSelector).First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	html, err := goquery.OuterHtml(sel)
	if err != nil {
		return Fragment{}, errors.Wrap(errors.ErrCodeMalformedMarkup, err, "serialize calendar container")
	}
	return Fragment{
		HTML:    html,
		Pending: sel.Find(placeholderSelector).Length() > 0,
	}, nil
}
