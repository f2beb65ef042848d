package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"offer-hunter/pkg/jobs"
	"offer-hunter/pkg/models"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const triggerBurst = 3

// OfferReader is the read side of the offer store.
type OfferReader interface {
	Read(site models.Site) []models.Offer
	ReadAll(sites ...models.Site) []models.Offer
}

// JobReader looks up job status records.
type JobReader interface {
	Get(ctx context.Context, id string) (jobs.Job, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, kind jobs.Kind) (string, error)
}

type Options struct {
	Offers     OfferReader
	Jobs       JobReader
	Queue      Enqueuer
	TriggerRPS float64
	DocsDir    string
	Logger     *slog.Logger
}

type Server struct {
	offers  OfferReader
	jobs    JobReader
	queue   Enqueuer
	limiter *rate.Limiter
	docsDir string
	log     *slog.Logger
}

func NewServer(opts Options) *Server {
	if opts.TriggerRPS <= 0 {
		opts.TriggerRPS = 1
	}
	if opts.DocsDir == "" {
		opts.DocsDir = "./"
	}
	return &Server{
		offers:  opts.Offers,
		jobs:    opts.Jobs,
		queue:   opts.Queue,
		limiter: rate.NewLimiter(rate.Limit(opts.TriggerRPS), triggerBurst),
		docsDir: opts.DocsDir,
		log:     opts.Logger,
	}
}

// Handler returns the full route table wrapped in logging, panic recovery and
// tracing.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.docs)
	mux.HandleFunc("GET /offers", s.allOffers)
	mux.HandleFunc("GET /offers/{site}", s.siteOffers)
	mux.HandleFunc("POST /scrape", s.throttle(s.scrapeAll))
	mux.HandleFunc("POST /scrape/{site}", s.throttle(s.scrapeSite))
	mux.HandleFunc("GET /jobs/{id}", s.job)

	return otelhttp.NewHandler(Chain(mux, Logger(s.log), Recover(s.log)), "offer-hunter")
}

type offersResponse struct {
	Count  int            `json:"count"`
	Offers []models.Offer `json:"offers"`
}

type triggerResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

func (s *Server) allOffers(w http.ResponseWriter, r *http.Request) {
	offers := s.offers.ReadAll(models.Sites()...)
	s.writeJSON(w, r, http.StatusOK, offersResponse{Count: len(offers), Offers: offers})
}

func (s *Server) siteOffers(w http.ResponseWriter, r *http.Request) {
	site, err := models.ParseSite(r.PathValue("site"))
	if err != nil {
		WriteNotFound(w, err.Error(), r.URL.Path)
		return
	}
	offers := s.offers.Read(site)
	s.writeJSON(w, r, http.StatusOK, offersResponse{Count: len(offers), Offers: offers})
}

func (s *Server) scrapeAll(w http.ResponseWriter, r *http.Request) {
	s.trigger(w, r, jobs.KindScrapeAll, "Scraping started")
}

func (s *Server) scrapeSite(w http.ResponseWriter, r *http.Request) {
	site, err := models.ParseSite(r.PathValue("site"))
	if err != nil {
		WriteNotFound(w, err.Error(), r.URL.Path)
		return
	}
	s.trigger(w, r, jobs.KindFor(site), fmt.Sprintf("Scraping %s started", site))
}

// trigger always answers with a job handle; a job that could not be dispatched
// reports the failure through its own status.
func (s *Server) trigger(w http.ResponseWriter, r *http.Request, kind jobs.Kind, message string) {
	id, err := s.queue.Enqueue(r.Context(), kind)
	if err != nil {
		s.log.Error("enqueue failed", "kind", kind, "job_id", id, "err", err)
	}
	s.writeJSON(w, r, http.StatusAccepted, triggerResponse{Message: message, JobID: id})
}

func (s *Server) job(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid job id %q.", id), r.URL.Path)
		return
	}
	job, err := s.jobs.Get(r.Context(), id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		WriteNotFound(w, "Job not found", r.URL.Path)
		return
	}
	if err != nil {
		WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	s.writeJSON(w, r, http.StatusOK, job)
}

func (s *Server) docs(w http.ResponseWriter, r *http.Request) {
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir(s.docsDir),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Offer Hunter API"),
		),
	)
	if err != nil {
		WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func (s *Server) throttle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := s.limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			WriteTooManyRequests(w, delay, r.URL.Path)
			return
		}
		next(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.log.Error("encoding response failed", "path", r.URL.Path, "err", err)
	}
}
