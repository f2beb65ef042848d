// Package scrapers is the registry of supported marketplaces.
package scrapers

import (
	"fmt"
	"net/url"

	"offer-hunter/pkg/models"
	"offer-hunter/pkg/scrapers/amazon"
	"offer-hunter/pkg/scrapers/magalu"
	"offer-hunter/pkg/strategy"
)

// Site returns the strategy for one marketplace.
func Site(key models.Site) (strategy.Site, error) {
	switch key {
	case models.SiteMagalu:
		return magalu.Site(), nil
	case models.SiteAmazon:
		return amazon.Site(), nil
	default:
		return strategy.Site{}, fmt.Errorf("%w: %q", models.ErrUnknownSite, key)
	}
}

func All() []strategy.Site {
	sites := make([]strategy.Site, 0, len(models.Sites()))
	for _, key := range models.Sites() {
		s, _ := Site(key)
		sites = append(sites, s)
	}
	return sites
}

// Hosts lists the host of every marketplace, for per-host request pacing.
func Hosts() []string {
	var hosts []string
	for _, s := range All() {
		if u, err := url.Parse(s.Domain); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}
