package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Site identifies one supported marketplace.
type Site string

const (
	SiteMagalu Site = "magalu"
	SiteAmazon Site = "amazon"
)

// Sites lists every supported marketplace in scrape order.
func Sites() []Site {
	return []Site{SiteMagalu, SiteAmazon}
}

var (
	ErrUnknownSite     = errors.New("site not supported")
	ErrIncompleteOffer = errors.New("offer is missing name or price")
)

func ParseSite(s string) (Site, error) {
	site := Site(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Sites() {
		if site == known {
			return site, nil
		}
	}
	return "", fmt.Errorf("%w: %q. Available: magalu, amazon", ErrUnknownSite, s)
}

// Offer is one product listing extracted from a marketplace page.
type Offer struct {
	Name             string    `json:"name"`
	PriceNow         string    `json:"price_now"`
	PriceInstallment string    `json:"price_installment,omitempty"`
	Available        bool      `json:"available"`
	URL              string    `json:"url"`
	FetchedAt        time.Time `json:"fetched_at"`
}
