// Package strategy runs a site's prioritized extraction stages against its
// candidate pages. A site is plain data: where to look and, in order, how to
// look. The engine stops at the first stage that yields at least one offer.
package strategy

import (
	"log/slog"
	"time"

	"offer-hunter/pkg/extract"
	"offer-hunter/pkg/fn"
	"offer-hunter/pkg/markup"
	"offer-hunter/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

// Page is one fetched listing page. The markup tree is built on first use so
// stages that only need the raw text never pay for parsing.
type Page struct {
	Site      models.Site
	URL       string
	Domain    string
	Raw       string
	FetchedAt time.Time

	doc *goquery.Document
}

func (p *Page) Doc() *goquery.Document {
	if p.doc == nil {
		p.doc = markup.Parse(p.Raw)
	}
	return p.doc
}

func (p *Page) Origin() extract.Origin {
	return extract.Origin{Domain: p.Domain, PageURL: p.URL, FetchedAt: p.FetchedAt}
}

// Stage is one extraction strategy. Extract returns one Result per candidate
// record; failed records do not affect their siblings.
type Stage struct {
	Name    string
	Extract func(p *Page, log *slog.Logger) []fn.Result[models.Offer]
}

type Site struct {
	Key    models.Site
	Domain string
	URLs   []string
	Stages []Stage
}
