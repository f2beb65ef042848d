// Package fetch retrieves raw listing pages. Fetchers never return errors: an
// empty string means the page could not be retrieved and the failure was logged.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) string
}

// Pacer is implemented by fetchers that space out their own requests, so
// callers need not pause between pages.
type Pacer interface {
	Paced() bool
}

const (
	ModeHTTP    = "http"
	ModeBrowser = "browser"

	DefaultTimeout = 30 * time.Second

	// Requests to one host are spaced by 1 to 3 seconds.
	PaceDelay       = time.Second
	PaceRandomDelay = 2 * time.Second
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36",
}

// UserAgents returns the pool random client identities are drawn from.
func UserAgents() []string {
	return append([]string(nil), userAgents...)
}

func RandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// BaseHeaders are sent with every request on top of the random User-Agent.
// Accept-Encoding is left to the transport so compressed bodies are decoded.
func BaseHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		"Upgrade-Insecure-Requests": "1",
		"Cache-Control":             "max-age=0",
	}
}

type Options struct {
	Mode    string
	Timeout time.Duration
	// Hosts get their own request pacing in HTTP mode.
	Hosts  []string
	Logger *slog.Logger
}

// New builds the fetcher for the configured mode.
func New(opts Options) (Fetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch opts.Mode {
	case "", ModeHTTP:
		return NewCollector(opts.Timeout, opts.Logger, WithPacing(PaceDelay, PaceRandomDelay, opts.Hosts...)), nil
	case ModeBrowser:
		return NewBrowser(opts.Timeout, opts.Logger), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q (want %q or %q)", opts.Mode, ModeHTTP, ModeBrowser)
	}
}
