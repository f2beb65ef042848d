// Package amazon describes how offers are read from Amazon Brazil deal and
// search pages.
package amazon

import (
	"offer-hunter/pkg/extract"
	"offer-hunter/pkg/markup"
	"offer-hunter/pkg/models"
	"offer-hunter/pkg/strategy"
)

const Domain = "https://www.amazon.com.br"

// URLs are tried in order until one yields offers.
var URLs = []string{
	Domain + "/deals?ref_=nav_cs_gb",
	Domain + "/gp/goldbox",
	Domain + "/s?k=ofertas+do+dia",
}

// The class locators match substrings of the raw class attribute, so a
// multi-class fragment only hits when the classes appear in that order.
var containerLocators = []markup.Locator{
	markup.CSS("div[data-testid='deal-card']"),
	markup.CSS("div[data-component-type='s-search-result']"),
	markup.FuzzyClass("div", "DealGridItem-module__dealItem"),
	markup.FuzzyClass("div", "a-section a-spacing-base"),
	markup.FuzzyClass("div", "sg-col-4-of-24 sg-col-4-of-12 sg-col-4-of-36 s-result-item"),
}

var containerFields = extract.MarkupFields{
	Name: []string{
		"span.a-size-base-plus",
		"span.a-size-medium",
		"a.a-link-normal span",
		"h2 a span",
		"h2",
	},
	Price: []string{
		"span.a-price .a-offscreen",
		"span.a-price-whole",
		"span.a-price",
	},
	Installment: []string{
		`span.a-size-small:contains("x")`,
		`span:contains("em até")`,
	},
	Link: []string{"a[href]"},
	Unavailable: []string{
		"span.a-color-price.unavailablePrice",
		"span.a-color-error",
		`span:contains("Indisponível")`,
	},
}

func Site() strategy.Site {
	return strategy.Site{
		Key:    models.SiteAmazon,
		Domain: Domain,
		URLs:   append([]string(nil), URLs...),
		Stages: []strategy.Stage{
			strategy.CardsOr("containers", containerLocators, containerFields,
				strategy.PriceAncestors("span.a-price", "div", "a-section", containerFields)),
		},
	}
}
