package cmd

import (
	"net/http"

	"github.com/brk3/ghcal/internal/fetch"
)

func newOrchestrator() *fetch.Orchestrator {
	return fetch.New(fetch.Options{
		SourceURL:   cfg.Widget.SourceURL,
		Proxy:       fetch.TemplateProxy(cfg.Widget.Proxy),
		MaxAttempts: cfg.Fetch.MaxAttempts,
		RetryDelay:  cfg.Fetch.RetryDelay,
		HTTPClient:  &http.Client{Timeout: cfg.Fetch.Timeout},
	})
}
