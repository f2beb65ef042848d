package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"offer-hunter/pkg/api"
	"offer-hunter/pkg/config"
	"offer-hunter/pkg/fetch"
	"offer-hunter/pkg/jobs"
	"offer-hunter/pkg/logger"
	"offer-hunter/pkg/scrapers"
	"offer-hunter/pkg/schedule"
	"offer-hunter/pkg/store"
	"offer-hunter/pkg/strategy"

	"github.com/nats-io/nats.go"
)

func main() {
	cfgFile := os.Getenv("OFFERS_CONFIG")
	if cfgFile == "" {
		cfgFile = config.DefaultFile
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr, err := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logr.Debug("configuration loaded", "sources", cfg.Sources)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logr)
	if err != nil {
		logr.Error("startup failed", "err", err)
		os.Exit(1)
	}

	if err := a.run(ctx); err != nil {
		logr.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

type app struct {
	cfg       config.Config
	log       *slog.Logger
	jobs      *jobs.Store
	queue     jobs.Queue
	nc        *nats.Conn
	scheduler *schedule.Scheduler
	handler   http.Handler
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	fetcher, err := fetch.New(fetch.Options{
		Mode:    cfg.FetchMode,
		Timeout: cfg.FetchTimeout(),
		Hosts:   scrapers.Hosts(),
		Logger:  log.With("component", "fetch"),
	})
	if err != nil {
		return nil, err
	}

	var engineOpts []strategy.Option
	if cfg.DebugDir != "" {
		engineOpts = append(engineOpts, strategy.WithRecorder(store.NewDebug(cfg.DebugDir, log.With("component", "debug"))))
	}
	engine := strategy.NewEngine(fetcher, log.With("component", "engine"), engineOpts...)
	offers := store.New(cfg.DataDir, log.With("component", "store"))

	jobStore, err := jobs.NewStore(cfg.JobsDBPath, cfg.JobTTL())
	if err != nil {
		return nil, fmt.Errorf("initialize job store: %w", err)
	}
	log.Info("job store initialized", "path", cfg.JobsDBPath, "ttl_minutes", cfg.JobTTLMinutes)

	jobsLog := log.With("component", "jobs")
	runner := jobs.NewRunner(engine, offers, scrapers.All(), jobsLog)
	pool := jobs.NewPool(ctx, jobs.NewProcessor(jobStore, runner, jobsLog), cfg.Workers, jobsLog)

	a := &app{cfg: cfg, log: log, jobs: jobStore}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("offer-hunter"))
		if err != nil {
			pool.Close()
			jobStore.Close()
			return nil, fmt.Errorf("connect to nats: %w", err)
		}
		q, err := jobs.NewNATSQueue(nc, cfg.NATSSubject, jobStore, pool, jobsLog)
		if err != nil {
			nc.Close()
			pool.Close()
			jobStore.Close()
			return nil, err
		}
		a.nc, a.queue = nc, q
		log.Info("job queue on nats", "url", cfg.NATSURL, "subject", cfg.NATSSubject)
	} else {
		a.queue = jobs.NewLocalQueue(jobStore, pool, jobsLog)
		log.Info("job queue in process", "workers", cfg.Workers)
	}

	a.scheduler = schedule.New(log.With("component", "schedule"))
	err = a.scheduler.Every(cfg.ScrapeSchedule, string(jobs.KindScrapeAll), func() {
		if _, err := a.queue.Enqueue(ctx, jobs.KindScrapeAll); err != nil {
			log.Error("scheduled scrape not queued", "err", err)
		}
	})
	if err == nil {
		err = a.scheduler.Every("@hourly", "prune-jobs", func() {
			if n, err := jobStore.Prune(ctx); err != nil {
				log.Error("pruning jobs failed", "err", err)
			} else if n > 0 {
				log.Info("expired jobs pruned", "count", n)
			}
		})
	}
	if err != nil {
		a.close()
		return nil, err
	}

	a.handler = api.NewServer(api.Options{
		Offers:     offers,
		Jobs:       jobStore,
		Queue:      a.queue,
		TriggerRPS: cfg.TriggerRPS,
		DocsDir:    cfg.DocsDir,
		Logger:     log.With("component", "api"),
	}).Handler()

	return a, nil
}

func (a *app) run(ctx context.Context) error {
	port := a.cfg.Port

	ip := GetOutboundIP()
	if ip != nil {
		fmt.Printf("Local Network URL: http://%s:%s\n", ip.String(), port)
	} else {
		fmt.Println("Could not determine local IP address.")
	}
	fmt.Printf("Access URL: http://localhost:%s\n", port)
	fmt.Printf("API Docs: http://localhost:%s/\n", port)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           a.handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	a.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
		a.scheduler.Stop(shutdownCtx)
	}

	a.close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *app) close() {
	if err := a.queue.Close(); err != nil {
		a.log.Warn("closing job queue", "err", err)
	}
	if a.nc != nil {
		a.nc.Close()
	}
	if err := a.jobs.Close(); err != nil {
		a.log.Warn("closing job store", "err", err)
	}
}

func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}
