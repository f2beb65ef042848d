package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"offer-hunter/pkg/jobs"
	"offer-hunter/pkg/logger"
	"offer-hunter/pkg/models"
	"offer-hunter/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu    sync.Mutex
	kinds []jobs.Kind
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, kind jobs.Kind) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.kinds = append(q.kinds, kind)
	return "job-" + string(kind), q.err
}

const (
	knownJob   = "0b6a4c1e-8f7d-4c3e-9a51-2d4f6e8b1c23"
	brokenJob  = "5f0e2d7a-3b1c-4e8f-a6d9-7c2b1e0f4a58"
	missingJob = "9d3c5b7e-1a2f-4b6c-8e0d-3f5a7c9b1d24"
)

type fakeJobs map[string]jobs.Job

func (f fakeJobs) Get(_ context.Context, id string) (jobs.Job, error) {
	if id == brokenJob {
		return jobs.Job{}, errors.New("database is locked")
	}
	job, ok := f[id]
	if !ok {
		return jobs.Job{}, jobs.ErrJobNotFound
	}
	return job, nil
}

var fetchedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, q *fakeQueue, rps float64) (http.Handler, *store.Store) {
	t.Helper()
	log := logger.Discard()
	offers := store.New(t.TempDir(), log)
	s := NewServer(Options{
		Offers: offers,
		Jobs: fakeJobs{knownJob: {
			ID: knownJob, Kind: jobs.KindScrapeAll, Status: jobs.StatusWarning,
			Sites:     map[models.Site]jobs.Outcome{models.SiteAmazon: {Status: jobs.StatusWarning}},
			CreatedAt: fetchedAt,
		}},
		Queue:      q,
		TriggerRPS: rps,
		Logger:     log,
	})
	return s.Handler(), offers
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

type offersBody struct {
	Count  int            `json:"count"`
	Offers []models.Offer `json:"offers"`
}

func TestOffers(t *testing.T) {
	h, offers := newTestServer(t, &fakeQueue{}, 1)
	require.NoError(t, offers.Write(models.SiteMagalu, []models.Offer{
		{Name: "Galaxy", PriceNow: "R$ 899,10", Available: true, URL: "https://www.magazineluiza.com.br/g/p/1/", FetchedAt: fetchedAt},
	}))
	require.NoError(t, offers.Write(models.SiteAmazon, []models.Offer{
		{Name: "Echo", PriceNow: "R$ 284,05", Available: true, URL: "https://www.amazon.com.br/dp/1", FetchedAt: fetchedAt},
		{Name: "Kindle", PriceNow: "R$ 474,05", Available: false, URL: "https://www.amazon.com.br/dp/2", FetchedAt: fetchedAt},
	}))

	tests := []struct {
		path  string
		names []string
	}{
		{"/offers/magalu", []string{"Galaxy"}},
		{"/offers/amazon", []string{"Echo", "Kindle"}},
		{"/offers/AMAZON", []string{"Echo", "Kindle"}},
		{"/offers", []string{"Galaxy", "Echo", "Kindle"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := do(h, http.MethodGet, tt.path)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body offersBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, len(tt.names), body.Count)
			var names []string
			for _, o := range body.Offers {
				names = append(names, o.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestOffersEmpty(t *testing.T) {
	h, _ := newTestServer(t, &fakeQueue{}, 1)

	rr := do(h, http.MethodGet, "/offers/magalu")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":0,"offers":[]}`, rr.Body.String())

	rr = do(h, http.MethodGet, "/offers")
	assert.JSONEq(t, `{"count":0,"offers":[]}`, rr.Body.String())
}

func TestProblemResponses(t *testing.T) {
	h, _ := newTestServer(t, &fakeQueue{}, 1)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		expectedDetail string
	}{
		{"unknown site offers", http.MethodGet, "/offers/kabum", http.StatusNotFound, "site not supported"},
		{"unknown site scrape", http.MethodPost, "/scrape/kabum", http.StatusNotFound, "Available: magalu, amazon"},
		{"unknown job", http.MethodGet, "/jobs/" + missingJob, http.StatusNotFound, "Job not found"},
		{"malformed job id", http.MethodGet, "/jobs/nope", http.StatusBadRequest, `Invalid job id "nope"`},
		{"job store failure", http.MethodGet, "/jobs/" + brokenJob, http.StatusInternalServerError, "database is locked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(h, tt.method, tt.path)
			require.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

			var pd ProblemDetails
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pd), rr.Body.String())
			assert.Equal(t, tt.expectedStatus, pd.Status)
			assert.Equal(t, "about:blank", pd.Type)
			assert.Contains(t, pd.Detail, tt.expectedDetail)
			assert.Equal(t, tt.path, pd.Instance)
		})
	}
}

func TestTrigger(t *testing.T) {
	q := &fakeQueue{}
	h, _ := newTestServer(t, q, 1000)

	tests := []struct {
		path    string
		kind    jobs.Kind
		message string
	}{
		{"/scrape", jobs.KindScrapeAll, "Scraping started"},
		{"/scrape/magalu", jobs.KindScrapeMagalu, "Scraping magalu started"},
		{"/scrape/amazon", jobs.KindScrapeAmazon, "Scraping amazon started"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := do(h, http.MethodPost, tt.path)
			require.Equal(t, http.StatusAccepted, rr.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, "job-"+string(tt.kind), body["job_id"])
		})
	}
	assert.Equal(t, []jobs.Kind{jobs.KindScrapeAll, jobs.KindScrapeMagalu, jobs.KindScrapeAmazon}, q.kinds)

	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodGet, "/scrape").Code)
}

func TestTriggerReturnsHandleOnQueueFailure(t *testing.T) {
	h, _ := newTestServer(t, &fakeQueue{err: errors.New("nats: no servers available")}, 1)

	rr := do(h, http.MethodPost, "/scrape/magalu")
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Contains(t, rr.Body.String(), `"job_id":"job-scrape-magalu"`)
}

func TestTriggerRateLimit(t *testing.T) {
	q := &fakeQueue{}
	h, _ := newTestServer(t, q, 0.01)

	for i := 0; i < triggerBurst; i++ {
		require.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/scrape").Code)
	}

	rr := do(h, http.MethodPost, "/scrape/amazon")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Len(t, q.kinds, triggerBurst)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/offers").Code, "reads are not throttled")
}

func TestJobStatus(t *testing.T) {
	h, _ := newTestServer(t, &fakeQueue{}, 1)

	rr := do(h, http.MethodGet, "/jobs/"+knownJob)
	require.Equal(t, http.StatusOK, rr.Code)

	var job jobs.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.Equal(t, jobs.StatusWarning, job.Status)
	assert.Equal(t, jobs.StatusWarning, job.Sites[models.SiteAmazon].Status)
	assert.True(t, strings.Contains(rr.Body.String(), `"created_at":"2024-05-01T12:00:00Z"`))
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Logger(logger.Discard()), Recover(logger.Discard()))

	rr := do(h, http.MethodGet, "/explode")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestChainOrder(t *testing.T) {
	var order []int
	mw := func(n int) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, n)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, 0)
	}), mw(1), mw(2), mw(3))
	do(h, http.MethodGet, "/")

	assert.Equal(t, []int{1, 2, 3, 0}, order)
}
