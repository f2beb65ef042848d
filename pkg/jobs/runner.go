package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"offer-hunter/pkg/models"
	"offer-hunter/pkg/store"
	"offer-hunter/pkg/strategy"

	"golang.org/x/sync/errgroup"
)

// Runner executes scrape kinds: it runs the engine for each covered site and
// persists every non-empty result.
type Runner struct {
	engine *strategy.Engine
	offers *store.Store
	sites  map[models.Site]strategy.Site
	log    *slog.Logger
}

func NewRunner(engine *strategy.Engine, offers *store.Store, sites []strategy.Site, log *slog.Logger) *Runner {
	bySite := make(map[models.Site]strategy.Site, len(sites))
	for _, s := range sites {
		bySite[s.Key] = s
	}
	return &Runner{engine: engine, offers: offers, sites: bySite, log: log}
}

// RunSite scrapes one site. An empty result leaves the stored offers untouched.
func (r *Runner) RunSite(ctx context.Context, key models.Site) (out Outcome) {
	log := r.log.With("site", key)
	defer func() {
		if p := recover(); p != nil {
			log.Error("site scrape failed", "panic", p)
			out = Outcome{Status: StatusError, Message: fmt.Sprintf("panic: %v", p)}
		}
	}()

	site, ok := r.sites[key]
	if !ok {
		return Outcome{Status: StatusError, Message: fmt.Sprintf("%v: %q", models.ErrUnknownSite, key)}
	}

	log.Info("site scrape started")
	offers := r.engine.Run(ctx, site)
	if len(offers) == 0 {
		log.Warn("no offers found")
		return Outcome{Status: StatusWarning}
	}

	if err := r.offers.Write(key, offers); err != nil {
		log.Error("saving offers failed", "err", err)
		return Outcome{Status: StatusError, Message: err.Error()}
	}

	log.Info("site scrape finished", "count", len(offers))
	return Outcome{Status: StatusSuccess, Count: len(offers)}
}

// Execute runs every site of kind concurrently; runs of different sites share
// nothing but the process.
func (r *Runner) Execute(ctx context.Context, kind Kind) map[models.Site]Outcome {
	sites := kind.Sites()

	var mu sync.Mutex
	outcomes := make(map[models.Site]Outcome, len(sites))

	var g errgroup.Group
	for _, key := range sites {
		g.Go(func() error {
			o := r.RunSite(ctx, key)
			mu.Lock()
			outcomes[key] = o
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
