// Package store keeps the latest offers of every site as one JSON document per
// site under a data directory. Each successful run replaces the document.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"offer-hunter/pkg/models"
)

type Store struct {
	dir string
	log *slog.Logger
}

func New(dir string, log *slog.Logger) *Store {
	return &Store{dir: dir, log: log}
}

func (s *Store) Path(site models.Site) string {
	return filepath.Join(s.dir, string(site)+"_offers.json")
}

// Write replaces the site's document. The new content is written to a temporary
// file first so readers never observe a half-written array.
func (s *Store) Write(site models.Site, offers []models.Offer) error {
	if offers == nil {
		offers = []models.Offer{}
	}
	if err := os.MkdirAll(s.dir, os.ModeDir|0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := encode(offers)
	if err != nil {
		return fmt.Errorf("encode %s offers: %w", site, err)
	}

	tmp, err := os.CreateTemp(s.dir, string(site)+"_offers-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s offers: %w", site, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s offers: %w", site, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(site)); err != nil {
		return fmt.Errorf("replace %s offers: %w", site, err)
	}

	s.log.Info("offers stored", "site", site, "count", len(offers), "path", s.Path(site))
	return nil
}

// Read returns the stored offers of a site, or an empty slice when there are
// none or the document cannot be read. Besides the array written by Write it
// accepts a single offer object and newline-delimited offers; in the latter
// form unparsable lines are skipped.
func (s *Store) Read(site models.Site) []models.Offer {
	data, err := os.ReadFile(s.Path(site))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Error("read offers failed", "site", site, "err", err)
		}
		return []models.Offer{}
	}
	return s.decode(site, data)
}

// ReadAll concatenates the stored offers of the given sites in order.
func (s *Store) ReadAll(sites ...models.Site) []models.Offer {
	all := []models.Offer{}
	for _, site := range sites {
		all = append(all, s.Read(site)...)
	}
	return all
}

func (s *Store) decode(site models.Site, data []byte) []models.Offer {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []models.Offer{}
	}

	var list []models.Offer
	if err := json.Unmarshal(data, &list); err == nil {
		if list == nil {
			list = []models.Offer{}
		}
		return list
	}

	var single models.Offer
	if err := json.Unmarshal(data, &single); err == nil {
		return []models.Offer{single}
	}

	offers := []models.Offer{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var o models.Offer
		if err := json.Unmarshal(line, &o); err != nil {
			s.log.Warn("skipping unreadable offer line", "site", site, "line", n, "err", err)
			continue
		}
		offers = append(offers, o)
	}
	return offers
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
