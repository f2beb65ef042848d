package strategy

import (
	"log/slog"

	"offer-hunter/pkg/extract"
	"offer-hunter/pkg/fn"
	"offer-hunter/pkg/markup"
	"offer-hunter/pkg/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// EmbeddedData reads offers out of the JSON state blob a page ships in its
// scripts.
func EmbeddedData(keys extract.DataKeys) Stage {
	return Stage{
		Name: "embedded-data",
		Extract: func(p *Page, log *slog.Logger) []fn.Result[models.Offer] {
			blob, ok := extract.FindEmbedded(p.Raw)
			if !ok {
				log.Debug("no embedded data blob")
				return nil
			}
			records := extract.FindProducts(blob)
			log.Debug("embedded data found", "records", len(records))

			origin := p.Origin()
			results := make([]fn.Result[models.Offer], 0, len(records))
			for _, rec := range records {
				results = append(results, fn.Recover(func() fn.Result[models.Offer] {
					return extract.FromData(rec, keys, origin)
				}))
			}
			return results
		},
	}
}

// Cards locates product containers with the first locator that matches anything
// and extracts one offer per container.
func Cards(name string, locators []markup.Locator, fields extract.MarkupFields) Stage {
	return cards(name, locators, fields, nil)
}

// CardsOr is Cards with a fallback that runs only when no locator matches at
// all. Containers that match but yield no valid offer do not trigger it.
func CardsOr(name string, locators []markup.Locator, fields extract.MarkupFields, fallback Stage) Stage {
	return cards(name, locators, fields, &fallback)
}

func cards(name string, locators []markup.Locator, fields extract.MarkupFields, fallback *Stage) Stage {
	return Stage{
		Name: name,
		Extract: func(p *Page, log *slog.Logger) []fn.Result[models.Offer] {
			found, loc, ok := markup.FirstMatch(p.Doc().Selection, locators)
			if !ok {
				log.Debug("no product containers", "locators", len(locators))
				if fallback == nil {
					return nil
				}
				return fallback.Extract(p, log.With("fallback", fallback.Name))
			}
			log.Info("product containers found", "count", found.Length(), "locator", loc.String())
			return fromContainers(found, fields, p.Origin())
		},
	}
}

// PriceAncestors is the last resort when no container locator matches: every
// price element is walked up to its nearest tag ancestor whose class attribute
// contains fragment, and that ancestor is treated as the product container.
func PriceAncestors(priceSelector, tag, fragment string, fields extract.MarkupFields) Stage {
	return Stage{
		Name: "price-ancestors",
		Extract: func(p *Page, log *slog.Logger) []fn.Result[models.Offer] {
			seen := make(map[*html.Node]bool)
			var nodes []*html.Node
			p.Doc().Find(priceSelector).Each(func(_ int, price *goquery.Selection) {
				container := markup.ClosestClassContains(price, tag, fragment)
				if container.Length() == 0 || seen[container.Get(0)] {
					return
				}
				seen[container.Get(0)] = true
				nodes = append(nodes, container.Get(0))
			})
			log.Info("containers found through price elements", "count", len(nodes))

			return fromContainers(p.Doc().FindNodes(nodes...), fields, p.Origin())
		},
	}
}

func fromContainers(cards *goquery.Selection, fields extract.MarkupFields, origin extract.Origin) []fn.Result[models.Offer] {
	results := make([]fn.Result[models.Offer], 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		results = append(results, fn.Recover(func() fn.Result[models.Offer] {
			return extract.FromMarkup(card, fields, origin)
		}))
	})
	return results
}
