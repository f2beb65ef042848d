// Package jobs turns trigger requests into tracked background scrape runs:
// a job is recorded, dispatched through a queue, executed by a worker pool and
// its outcome written back for status queries.
package jobs

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"offer-hunter/pkg/models"
)

type Kind string

const (
	KindScrapeAll    Kind = "scrape-all"
	KindScrapeMagalu Kind = "scrape-magalu"
	KindScrapeAmazon Kind = "scrape-amazon"
)

var (
	ErrUnknownKind = errors.New("unknown job kind")
	ErrJobNotFound = errors.New("job not found")
)

// KindFor returns the job kind that scrapes a single site.
func KindFor(site models.Site) Kind {
	return Kind("scrape-" + string(site))
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == KindScrapeAll || len(k.Sites()) == 1 {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Sites lists the sites a kind covers, in scrape order.
func (k Kind) Sites() []models.Site {
	if k == KindScrapeAll {
		return models.Sites()
	}
	for _, site := range models.Sites() {
		if k == KindFor(site) {
			return []models.Site{site}
		}
	}
	return nil
}

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Outcome is the result of scraping one site: success with the number of
// stored offers, warning when nothing was found, error with a message.
type Outcome struct {
	Status  Status `json:"status"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

type Job struct {
	ID         string                  `json:"id"`
	Kind       Kind                    `json:"kind"`
	Status     Status                  `json:"status"`
	Count      int                     `json:"count"`
	Message    string                  `json:"message,omitempty"`
	Sites      map[models.Site]Outcome `json:"sites,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	FinishedAt *time.Time              `json:"finished_at,omitempty"`
}

// Finish folds per-site outcomes into the job. Any error makes the job an
// error, all successes make it a success, anything else is a warning.
func (j *Job) Finish(outcomes map[models.Site]Outcome, at time.Time) {
	j.Sites = outcomes
	j.Count = 0
	j.FinishedAt = &at

	if len(outcomes) == 0 {
		j.Status = StatusError
		j.Message = fmt.Sprintf("no sites to scrape for %q", j.Kind)
		return
	}

	keys := make([]models.Site, 0, len(outcomes))
	for site := range outcomes {
		keys = append(keys, site)
	}
	slices.Sort(keys)

	successes := 0
	var failures []string
	for _, site := range keys {
		o := outcomes[site]
		j.Count += o.Count
		switch o.Status {
		case StatusSuccess:
			successes++
		case StatusError:
			failures = append(failures, fmt.Sprintf("%s: %s", site, o.Message))
		}
	}

	switch {
	case len(failures) > 0:
		j.Status = StatusError
		j.Message = strings.Join(failures, "; ")
	case successes == len(outcomes):
		j.Status = StatusSuccess
		j.Message = ""
	default:
		j.Status = StatusWarning
		j.Message = "no offers found"
	}
}

// Fail marks the job as failed before any site ran.
func (j *Job) Fail(err error, at time.Time) {
	j.Status = StatusError
	j.Message = err.Error()
	j.FinishedAt = &at
}
