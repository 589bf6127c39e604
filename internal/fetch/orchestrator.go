// Package fetch drives retrieval of a contribution calendar: it fetches the
// source page through a proxy, waits out the upstream loading placeholder with
// a bounded number of sequential retries, then hands the complete fragment to
// the parser and the streak analyzer.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brk3/ghcal/internal/calendar"
	"github.com/brk3/ghcal/internal/logger"
	"github.com/brk3/ghcal/internal/streak"
	"github.com/brk3/ghcal/pkg/contrib"
	"github.com/brk3/ghcal/pkg/errors"
)

const (
	DefaultSourceURL   = "https://github.com/users/{identity}/contributions"
	DefaultMaxAttempts = 20
	DefaultRetryDelay  = 500 * time.Millisecond
	defaultTimeout     = 10 * time.Second

	// pages larger than this are not calendars
	maxBodyBytes = 8 << 20
)

type Options struct {
	SourceURL   string
	Proxy       ProxyFunc
	MaxAttempts int
	RetryDelay  time.Duration
	HTTPClient  *http.Client
	Hooks       Hooks
}

type Orchestrator struct {
	client      *http.Client
	sourceURL   string
	proxy       ProxyFunc
	maxAttempts int
	retryDelay  time.Duration
	hooks       Hooks
}

// Result combines the complete calendar fragment with what was derived from it.
type Result struct {
	Identity string
	Markup   string
	Dataset  contrib.Dataset
	Streak   contrib.StreakInfo
}

// Stats returns the JSON-facing view of the result.
func (r *Result) Stats() *contrib.Stats {
	return &contrib.Stats{Identity: r.Identity, Dataset: r.Dataset, Streak: r.Streak}
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		client:      opts.HTTPClient,
		sourceURL:   opts.SourceURL,
		proxy:       opts.Proxy,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		hooks:       opts.Hooks,
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: defaultTimeout}
	}
	if o.sourceURL == "" {
		o.sourceURL = DefaultSourceURL
	}
	if o.proxy == nil {
		o.proxy = Direct
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultMaxAttempts
	}
	if o.retryDelay <= 0 {
		o.retryDelay = DefaultRetryDelay
	}
	if o.hooks == nil {
		o.hooks = noopHooks{}
	}
	return o
}

// FetchDataset fetches the calendar for identity, then parses and analyzes it.
func (o *Orchestrator) FetchDataset(ctx context.Context, identity string) (*Result, error) {
	markup, err := o.FetchMarkup(ctx, identity)
	if err != nil {
		return nil, err
	}
	ds, err := calendar.Parse(markup)
	if err != nil {
		logger.With("identity", identity).WarnContext(ctx, "Calendar markup did not parse", "error", err)
		return nil, err
	}
	return &Result{
		Identity: identity,
		Markup:   markup,
		Dataset:  ds,
		Streak:   streak.Analyze(ds),
	}, nil
}

// FetchMarkup returns the complete calendar fragment for identity. While the
// source answers with the loading placeholder it retries every RetryDelay, one
// attempt at a time, and gives up after MaxAttempts. Transport failures are
// not retried.
func (o *Orchestrator) FetchMarkup(ctx context.Context, identity string) (string, error) {
	if identity == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "identity is required")
	}
	log := logger.With("identity", identity)
	start := time.Now()
	target := o.proxy(SourceURL(o.sourceURL, identity))

	attempt := 0
	markup, err := func() (string, error) {
		for {
			attempt++
			o.hooks.OnAttempt(identity, attempt)
			log.DebugContext(ctx, "Fetching calendar", "attempt", attempt, "url", target)

			page, err := o.get(ctx, target)
			if err != nil {
				return "", err
			}
			frag, err := calendar.ExtractCalendar(page)
			if err != nil {
				return "", err
			}
			if !frag.Pending {
				return frag.HTML, nil
			}

			o.hooks.OnPlaceholder(identity, attempt)
			if attempt >= o.maxAttempts {
				return "", errors.New(errors.ErrCodeIncompleteRender,
					"calendar for %s still loading after %d attempts", identity, attempt)
			}
			log.DebugContext(ctx, "Calendar still rendering upstream, retrying", "attempt", attempt, "delay", o.retryDelay)
			if err := sleep(ctx, o.retryDelay); err != nil {
				return "", errors.Wrap(errors.ErrCodeFetch, err, "fetch %s cancelled", identity)
			}
		}
	}()

	o.hooks.OnComplete(identity, attempt, time.Since(start), err)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch calendar", "attempts", attempt, "error", err)
		return "", err
	}
	log.InfoContext(ctx, "Fetched calendar", "attempts", attempt, "duration", time.Since(start))
	return markup, nil
}

func (o *Orchestrator) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "build request for %s", target)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFetch, err, "request %s", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", errors.New(errors.ErrCodeNotFound, "no calendar at %s", target)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Wrap(errors.ErrCodeFetch, fmt.Errorf("unexpected status %d", resp.StatusCode), "request %s", target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFetch, err, "read body of %s", target)
	}
	return string(body), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
