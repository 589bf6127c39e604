package fetch

import (
	"context"

	"github.com/brk3/ghcal/internal/render"
	"github.com/brk3/ghcal/pkg/contrib"
)

// Source fetches calendars. *Orchestrator is the production implementation.
type Source interface {
	FetchMarkup(ctx context.Context, identity string) (string, error)
	FetchDataset(ctx context.Context, identity string) (*Result, error)
}

// RenderWidget fetches the calendar for identity and renders the widget.
// The calendar is only parsed and analyzed when the widget shows statistics.
func RenderWidget(ctx context.Context, src Source, identity string, opts render.Options) (string, error) {
	if !opts.GlobalStats {
		markup, err := src.FetchMarkup(ctx, identity)
		if err != nil {
			return "", err
		}
		return render.Widget(markup, &contrib.Stats{Identity: identity}, opts)
	}

	res, err := src.FetchDataset(ctx, identity)
	if err != nil {
		return "", err
	}
	return render.Widget(res.Markup, res.Stats(), opts)
}
