// Package magalu describes how offers are read from Magazine Luiza search pages.
package magalu

import (
	"offer-hunter/pkg/extract"
	"offer-hunter/pkg/markup"
	"offer-hunter/pkg/models"
	"offer-hunter/pkg/strategy"
)

const (
	Domain    = "https://www.magazineluiza.com.br"
	SearchURL = Domain + "/busca/smartphone/?page=1&sortby=price_asc"
)

var cardLocators = []markup.Locator{
	markup.CSS("[data-testid='product-card']"),
	markup.CSS(".productCard"),
}

var cardFields = extract.MarkupFields{
	Name:        []string{"[data-testid='product-title']", "h2"},
	Price:       []string{"[data-testid='price-value']", ".price-template__text"},
	Installment: []string{"[data-testid='installment']", ".price-installments"},
	Link:        []string{"a[href]"},
	Unavailable: []string{".unavailableProduct", "[data-testid='unavailable']"},
}

// Site prefers the state blob the storefront embeds in its scripts and falls
// back to reading the rendered product cards.
func Site() strategy.Site {
	return strategy.Site{
		Key:    models.SiteMagalu,
		Domain: Domain,
		URLs:   []string{SearchURL},
		Stages: []strategy.Stage{
			strategy.EmbeddedData(extract.DefaultDataKeys),
			strategy.Cards("product-cards", cardLocators, cardFields),
		},
	}
}
