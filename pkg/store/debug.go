package store

import (
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"offer-hunter/pkg/models"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Debug dumps raw pages and extracted offers to a directory for offline
// inspection. Failures are logged and otherwise ignored.
type Debug struct {
	dir string
	log *slog.Logger
}

func NewDebug(dir string, log *slog.Logger) *Debug {
	return &Debug{dir: dir, log: log}
}

// PageFile names the dump of one page after the last segment of its URL,
// query included, e.g. amazon_debug_deals_ref_nav_cs_gb.html.
func PageFile(site models.Site, pageURL string) string {
	last := pageURL
	if u, err := url.Parse(pageURL); err == nil {
		last = path.Base(u.Path)
		if last == "/" || last == "." {
			last = ""
		}
		if u.RawQuery != "" {
			last += "_" + u.RawQuery
		}
	}
	last = strings.Trim(unsafeName.ReplaceAllString(last, "_"), "_")
	if last == "" {
		last = "page"
	}
	return string(site) + "_debug_" + last + ".html"
}

func (d *Debug) RecordPage(site models.Site, pageURL, raw string) {
	d.write(PageFile(site, pageURL), []byte(raw))
}

func (d *Debug) RecordOffers(site models.Site, offers []models.Offer) {
	data, err := encode(offers)
	if err != nil {
		d.log.Warn("debug dump failed", "site", site, "err", err)
		return
	}
	d.write(string(site)+"_offers_debug.json", data)
}

func (d *Debug) write(name string, data []byte) {
	if err := os.MkdirAll(d.dir, os.ModeDir|0755); err != nil {
		d.log.Warn("debug dump failed", "file", name, "err", err)
		return
	}
	p := filepath.Join(d.dir, name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		d.log.Warn("debug dump failed", "file", name, "err", err)
		return
	}
	d.log.Debug("debug dump written", "path", p)
}
