package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

// DefaultMaxBodySize caps a response body. Listing pages with a large embedded
// state blob run to a few megabytes.
const DefaultMaxBodySize = 32 << 20

// Collector fetches pages over plain HTTP with colly.
type Collector struct {
	base    *colly.Collector
	headers map[string]string
	log     *slog.Logger
	paced   bool

	userAgent func() string
}

type CollectorOption func(*collectorConfig)

type collectorConfig struct {
	maxBodySize int
	limits      []*colly.LimitRule
}

// WithPacing spaces out requests to each host by delay plus up to random extra.
// Hosts are colly domain globs; none means every host shares one limit.
func WithPacing(delay, random time.Duration, hosts ...string) CollectorOption {
	return func(cfg *collectorConfig) {
		if len(hosts) == 0 {
			hosts = []string{"*"}
		}
		for _, h := range hosts {
			cfg.limits = append(cfg.limits, &colly.LimitRule{
				DomainGlob:  h,
				Parallelism: 1,
				Delay:       delay,
				RandomDelay: random,
			})
		}
	}
}

func WithMaxBodySize(n int) CollectorOption {
	return func(cfg *collectorConfig) { cfg.maxBodySize = n }
}

func NewCollector(timeout time.Duration, log *slog.Logger, opts ...CollectorOption) *Collector {
	cfg := collectorConfig{maxBodySize: DefaultMaxBodySize}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(userAgents[0]),
		colly.MaxBodySize(cfg.maxBodySize),
	)
	c.SetRequestTimeout(timeout)

	paced := false
	for _, rule := range cfg.limits {
		if err := c.Limit(rule); err != nil {
			log.Warn("request pacing not applied", "domain", rule.DomainGlob, "err", err)
			continue
		}
		paced = true
	}

	return &Collector{
		base:      c,
		headers:   BaseHeaders(),
		log:       log,
		paced:     paced,
		userAgent: RandomUserAgent,
	}
}

// Paced reports whether the collector spaces out its own requests.
func (f *Collector) Paced() bool { return f.paced }

func (f *Collector) Fetch(ctx context.Context, pageURL string) string {
	if err := ctx.Err(); err != nil {
		f.log.Warn("fetch skipped", "url", pageURL, "err", err)
		return ""
	}

	// a clone shares the transport but keeps callbacks local to this call
	c := f.base.Clone()

	referer := ""
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		referer = u.Scheme + "://" + u.Host + "/"
	}

	c.OnRequest(func(r *colly.Request) {
		for k, v := range f.headers {
			r.Headers.Set(k, v)
		}
		r.Headers.Set("User-Agent", f.userAgent())
		if referer != "" {
			r.Headers.Set("Referer", referer)
		}
	})

	var body string
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
		if f.base.MaxBodySize > 0 && len(r.Body) >= f.base.MaxBodySize {
			f.log.Warn("page body truncated", "url", pageURL, "limit", f.base.MaxBodySize)
		}
	})

	start := time.Now()
	if err := c.Visit(pageURL); err != nil {
		f.log.Error("fetch failed", "url", pageURL, "err", err, "duration", time.Since(start))
		return ""
	}

	f.log.Debug("fetched page", "url", pageURL, "bytes", len(body), "duration", time.Since(start))
	return body
}
