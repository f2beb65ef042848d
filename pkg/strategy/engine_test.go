package strategy

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"offer-hunter/pkg/extract"
	"offer-hunter/pkg/fn"
	"offer-hunter/pkg/logger"
	"offer-hunter/pkg/markup"
	"offer-hunter/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	return f.pages[url]
}

type recorder struct {
	pages  []string
	offers int
}

func (r *recorder) RecordPage(_ models.Site, pageURL, _ string) { r.pages = append(r.pages, pageURL) }
func (r *recorder) RecordOffers(_ models.Site, offers []models.Offer) {
	r.offers += len(offers)
}

func newTestEngine(f *fakeFetcher, opts ...Option) (*Engine, *int) {
	pauses := 0
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithPause(func(context.Context) error { pauses++; return nil }),
	}
	return NewEngine(f, logger.Discard(), append(base, opts...)...), &pauses
}

// countingStage records how often it ran and returns the given results.
func countingStage(name string, calls *int, results ...fn.Result[models.Offer]) Stage {
	return Stage{
		Name: name,
		Extract: func(*Page, *slog.Logger) []fn.Result[models.Offer] {
			*calls++
			return results
		},
	}
}

func offer(name string) fn.Result[models.Offer] {
	return fn.Ok(models.Offer{Name: name, PriceNow: "R$ 1,00", Available: true})
}

func incomplete() fn.Result[models.Offer] {
	return fn.Err[models.Offer](models.ErrIncompleteOffer)
}

func TestRunShortCircuitsOnFirstProductiveStage(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"u1": "<html></html>", "u2": "<html></html>"}}
	e, pauses := newTestEngine(f)

	var first, second, third int
	site := Site{
		Key:  models.SiteMagalu,
		URLs: []string{"u1", "u2"},
		Stages: []Stage{
			countingStage("empty", &first, incomplete()),
			countingStage("productive", &second, offer("A"), incomplete(), offer("B")),
			countingStage("never", &third, offer("C")),
		},
	}

	got := e.Run(context.Background(), site)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "B", got[1].Name)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 0, third, "later stages never run after a productive one")
	assert.Equal(t, []string{"u1"}, f.calls, "later URLs are never fetched")
	assert.Equal(t, 0, *pauses)
}

func TestRunMovesToNextURL(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"u2": "<p>empty</p>", "u3": "<p>ok</p>"}}
	rec := &recorder{}
	e, pauses := newTestEngine(f, WithRecorder(rec))

	site := Site{
		Key:  models.SiteAmazon,
		URLs: []string{"u1", "u2", "u3"},
		Stages: []Stage{{
			Name: "by-page",
			Extract: func(p *Page, _ *slog.Logger) []fn.Result[models.Offer] {
				if p.URL != "u3" {
					return nil
				}
				return []fn.Result[models.Offer]{offer("from " + p.URL)}
			},
		}},
	}

	got := e.Run(context.Background(), site)
	require.Len(t, got, 1)
	assert.Equal(t, "from u3", got[0].Name)
	assert.Equal(t, []string{"u1", "u2", "u3"}, f.calls)
	assert.Equal(t, 2, *pauses, "one pause between each pair of URLs")
	assert.Equal(t, []string{"u2", "u3"}, rec.pages, "unretrieved pages are not recorded")
	assert.Equal(t, 1, rec.offers)
}

func TestRunNeverFails(t *testing.T) {
	tests := []struct {
		name  string
		pages map[string]string
		stage Stage
	}{
		{
			name:  "nothing fetched",
			pages: map[string]string{},
			stage: Stage{Name: "any", Extract: func(*Page, *slog.Logger) []fn.Result[models.Offer] { return nil }},
		},
		{
			name:  "stage panics",
			pages: map[string]string{"u": "x"},
			stage: Stage{Name: "boom", Extract: func(*Page, *slog.Logger) []fn.Result[models.Offer] { panic("boom") }},
		},
		{
			name:  "only broken records",
			pages: map[string]string{"u": "x"},
			stage: Stage{Name: "broken", Extract: func(*Page, *slog.Logger) []fn.Result[models.Offer] {
				return []fn.Result[models.Offer]{incomplete(), fn.Err[models.Offer](errors.New("bad record"))}
			}},
		},
		{
			name:  "garbage markup",
			pages: map[string]string{"u": "<<<>>> \x00 {not json"},
			stage: EmbeddedData(extract.DefaultDataKeys),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(&fakeFetcher{pages: tt.pages})
			got := e.Run(context.Background(), Site{Key: models.SiteMagalu, URLs: []string{"u"}, Stages: []Stage{tt.stage}})
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestRunRecoversFromFetcherPanic(t *testing.T) {
	e := NewEngine(panicFetcher{}, logger.Discard())
	got := e.Run(context.Background(), Site{Key: models.SiteAmazon, URLs: []string{"u"}})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

type panicFetcher struct{}

func (panicFetcher) Fetch(context.Context, string) string { panic("transport exploded") }

func TestRunStopsWhenPauseIsInterrupted(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}
	e, _ := newTestEngine(f, WithPause(RandomPause(time.Hour, 2*time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := e.Run(ctx, Site{Key: models.SiteAmazon, URLs: []string{"u1", "u2"}})
	assert.Empty(t, got)
	assert.Equal(t, []string{"u1"}, f.calls)
}

func TestRunRecordPanicIsContained(t *testing.T) {
	raw := `<div class="card"><h2>Ok</h2><b>R$ 1,00</b></div><div class="card"><h2>Also ok</h2><b>R$ 2,00</b></div>`
	e, _ := newTestEngine(&fakeFetcher{pages: map[string]string{"u": raw}})

	calls := 0
	fields := extract.MarkupFields{Name: []string{"h2"}, Price: []string{"b"}}
	cards := Cards("cards", []markup.Locator{markup.CSS(".card")}, fields)
	flaky := Stage{
		Name: "flaky",
		Extract: func(p *Page, log *slog.Logger) []fn.Result[models.Offer] {
			results := cards.Extract(p, log)
			results = append(results, fn.Recover(func() fn.Result[models.Offer] {
				calls++
				var m map[string]int
				m["x"] = 1
				return offer("unreachable")
			}))
			return results
		},
	}

	got := e.Run(context.Background(), Site{Key: models.SiteMagalu, Domain: "https://shop.example", URLs: []string{"u"}, Stages: []Stage{flaky}})
	require.Len(t, got, 2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, fixedNow, got[0].FetchedAt)
	assert.Equal(t, "u", got[0].URL)
}

type pacedFetcher struct{ fakeFetcher }

func (*pacedFetcher) Paced() bool { return true }

func TestRunSkipsPauseForSelfPacedFetcher(t *testing.T) {
	f := &pacedFetcher{fakeFetcher{pages: map[string]string{}}}
	e := NewEngine(f, logger.Discard())

	start := time.Now()
	got := e.Run(context.Background(), Site{Key: models.SiteAmazon, URLs: []string{"u1", "u2", "u3"}})
	assert.Empty(t, got)
	assert.Equal(t, []string{"u1", "u2", "u3"}, f.calls)
	assert.Less(t, time.Since(start), time.Second, "a self-paced fetcher needs no engine pause")
}
