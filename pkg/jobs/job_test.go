package jobs

import (
	"errors"
	"testing"
	"time"

	"offer-hunter/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		sites   []models.Site
		wantErr bool
	}{
		{in: "scrape-all", want: KindScrapeAll, sites: []models.Site{models.SiteMagalu, models.SiteAmazon}},
		{in: "scrape-magalu", want: KindScrapeMagalu, sites: []models.Site{models.SiteMagalu}},
		{in: " Scrape-Amazon ", want: KindScrapeAmazon, sites: []models.Site{models.SiteAmazon}},
		{in: "scrape-kabum", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.sites, got.Sites())
		})
	}

	assert.Equal(t, KindScrapeAmazon, KindFor(models.SiteAmazon))
}

func TestJobFinish(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		outcomes map[models.Site]Outcome
		status   Status
		count    int
		message  string
	}{
		{
			name:     "all succeeded",
			outcomes: map[models.Site]Outcome{models.SiteMagalu: {Status: StatusSuccess, Count: 3}, models.SiteAmazon: {Status: StatusSuccess, Count: 2}},
			status:   StatusSuccess,
			count:    5,
		},
		{
			name:     "one empty",
			outcomes: map[models.Site]Outcome{models.SiteMagalu: {Status: StatusSuccess, Count: 3}, models.SiteAmazon: {Status: StatusWarning}},
			status:   StatusWarning,
			count:    3,
			message:  "no offers found",
		},
		{
			name:     "one failed",
			outcomes: map[models.Site]Outcome{models.SiteMagalu: {Status: StatusError, Message: "disk full"}, models.SiteAmazon: {Status: StatusSuccess, Count: 1}},
			status:   StatusError,
			count:    1,
			message:  "magalu: disk full",
		},
		{
			name:    "nothing ran",
			status:  StatusError,
			message: `no sites to scrape for "scrape-all"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := Job{ID: "id", Kind: KindScrapeAll, Status: StatusRunning}
			j.Finish(tt.outcomes, at)
			assert.Equal(t, tt.status, j.Status)
			assert.Equal(t, tt.count, j.Count)
			assert.Equal(t, tt.message, j.Message)
			require.NotNil(t, j.FinishedAt)
			assert.Equal(t, at, *j.FinishedAt)
		})
	}
}

func TestJobFail(t *testing.T) {
	j := Job{Status: StatusQueued}
	j.Fail(errors.New("nats: connection closed"), time.Now())
	assert.Equal(t, StatusError, j.Status)
	assert.Equal(t, "nats: connection closed", j.Message)
	assert.NotNil(t, j.FinishedAt)
}
