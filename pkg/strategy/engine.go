package strategy

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"offer-hunter/pkg/fetch"
	"offer-hunter/pkg/fn"
	"offer-hunter/pkg/logger"
	"offer-hunter/pkg/models"
)

// Recorder receives raw pages and final offers for offline inspection.
type Recorder interface {
	RecordPage(site models.Site, pageURL, raw string)
	RecordOffers(site models.Site, offers []models.Offer)
}

type Engine struct {
	fetcher  fetch.Fetcher
	log      *slog.Logger
	dedup    *logger.Deduper
	pause    func(ctx context.Context) error
	now      func() time.Time
	recorder Recorder
}

type Option func(*Engine)

// WithPause replaces the courtesy pause taken between two candidate URLs.
// Without it the engine pauses 1 to 3 seconds unless the fetcher paces itself.
func WithPause(pause func(ctx context.Context) error) Option {
	return func(e *Engine) { e.pause = pause }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func NewEngine(f fetch.Fetcher, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		fetcher: f,
		log:     log,
		dedup:   logger.NewDeduper(log, 2*time.Second),
		pause:   RandomPause(time.Second, 3*time.Second),
		now:     func() time.Time { return time.Now().UTC() },
	}
	if p, ok := f.(fetch.Pacer); ok && p.Paced() {
		e.pause = NoPause
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NoPause moves on to the next URL immediately.
func NoPause(context.Context) error { return nil }

// RandomPause sleeps for a uniformly random duration in [lo, hi) or until ctx
// is done.
func RandomPause(lo, hi time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		d := lo
		if hi > lo {
			d += rand.N(hi - lo)
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
}

// Run scrapes one site. It never fails: every problem is logged and contained,
// and the worst outcome is an empty, non-nil slice.
func (e *Engine) Run(ctx context.Context, site Site) (offers []models.Offer) {
	log := e.log.With("site", site.Key)
	defer e.dedup.Flush()
	defer func() {
		if p := recover(); p != nil {
			log.Error("scrape run aborted", "panic", p)
			offers = []models.Offer{}
		}
	}()

	for i, pageURL := range site.URLs {
		if i > 0 {
			if err := e.pause(ctx); err != nil {
				log.Warn("scrape run interrupted", "err", err)
				break
			}
		}

		if found := e.runPage(ctx, site, pageURL, log); len(found) > 0 {
			log.Info("scrape run finished", "offers", len(found), "url", pageURL)
			if e.recorder != nil {
				e.recorder.RecordOffers(site.Key, found)
			}
			return found
		}
	}

	log.Warn("no offers found", "urls", len(site.URLs))
	return []models.Offer{}
}

func (e *Engine) runPage(ctx context.Context, site Site, pageURL string, log *slog.Logger) []models.Offer {
	log = log.With("url", pageURL)
	log.Info("scraping page")

	raw := e.fetcher.Fetch(ctx, pageURL)
	if raw == "" {
		log.Warn("page not retrieved")
		return nil
	}
	if e.recorder != nil {
		e.recorder.RecordPage(site.Key, pageURL, raw)
	}

	page := &Page{
		Site:      site.Key,
		URL:       pageURL,
		Domain:    site.Domain,
		Raw:       raw,
		FetchedAt: e.now(),
	}
	for _, stage := range site.Stages {
		if found := e.runStage(page, stage, log.With("stage", stage.Name)); len(found) > 0 {
			return found
		}
	}
	return nil
}

func (e *Engine) runStage(page *Page, stage Stage, log *slog.Logger) (offers []models.Offer) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("stage aborted", "panic", p)
			offers = nil
		}
	}()

	offers, errs := fn.Partition(stage.Extract(page, log))
	for _, err := range errs {
		if errors.Is(err, models.ErrIncompleteOffer) {
			log.Debug("record skipped", "reason", err)
			continue
		}
		log.Error("record failed", "err", err)
	}
	for _, o := range offers {
		e.dedup.Dedup("offer found on %s", page.Site)
		log.Debug("offer found", "name", o.Name, "price", o.PriceNow)
	}
	if len(offers) == 0 {
		log.Debug("stage yielded no offers", "rejected", len(errs))
	}
	return offers
}
