// Package config resolves settings from built-in defaults, an optional json5
// file with a ".local" override next to it, and finally the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

const DefaultFile = "offers.json5"

type Config struct {
	Port                string  `json:"port"`
	DataDir             string  `json:"data_dir"`
	DebugDir            string  `json:"debug_dir"`
	JobsDBPath          string  `json:"jobs_db_path"`
	JobTTLMinutes       int     `json:"job_ttl_minutes"`
	FetchMode           string  `json:"fetch_mode"`
	FetchTimeoutSeconds int     `json:"fetch_timeout_seconds"`
	Workers             int     `json:"workers"`
	NATSURL             string  `json:"nats_url"`
	NATSSubject         string  `json:"nats_subject"`
	ScrapeSchedule      string  `json:"scrape_schedule"`
	TriggerRPS          float64 `json:"trigger_rps"`
	LogLevel            string  `json:"log_level"`
	LogFormat           string  `json:"log_format"`
	DocsDir             string  `json:"docs_dir"`

	// Sources lists the files that were read, in merge order.
	Sources []string `json:"-"`
}

func Defaults() Config {
	return Config{
		Port:                "9090",
		DataDir:             "./data",
		JobsDBPath:          "./jobs.db",
		JobTTLMinutes:       1440,
		FetchMode:           "http",
		FetchTimeoutSeconds: 30,
		Workers:             2,
		NATSSubject:         "offers.jobs",
		ScrapeSchedule:      "@every 6h",
		TriggerRPS:          1,
		LogLevel:            "info",
		LogFormat:           "json",
		DocsDir:             "./",
	}
}

func (c Config) JobTTL() time.Duration       { return time.Duration(c.JobTTLMinutes) * time.Minute }
func (c Config) FetchTimeout() time.Duration { return time.Duration(c.FetchTimeoutSeconds) * time.Second }

// Load reads the configuration. A missing file is not an error.
func Load(file string) (Config, error) {
	return load(file, os.LookupEnv)
}

func load(file string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()

	if file != "" {
		fromFile, sources, err := readFile(file)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config %s: %w", file, err)
		}
		if err := mergo.Merge(&cfg, fromFile, mergo.WithOverride); err != nil {
			return cfg, fmt.Errorf("merge config %s: %w", file, err)
		}
		cfg.Sources = sources
	}

	applyEnv(&cfg, lookup)

	if strings.EqualFold(cfg.ScrapeSchedule, "off") {
		cfg.ScrapeSchedule = ""
	}
	return cfg, cfg.validate()
}

// readFile merges <name>.<ext> with <name>.local.<ext>, the latter winning.
func readFile(name string) (Config, []string, error) {
	var out Config
	var sources []string

	data, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, nil, err
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &out); err != nil {
			return out, nil, err
		}
		sources = append(sources, name)
	}

	ext := filepath.Ext(name)
	local := strings.TrimSuffix(name, ext) + ".local" + ext
	data, err = os.ReadFile(local)
	if err != nil && !os.IsNotExist(err) {
		return out, sources, err
	}
	if len(data) > 0 {
		var override Config
		if err := json5.Unmarshal(data, &override); err != nil {
			return out, sources, err
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, sources, err
		}
		sources = append(sources, local)
	}

	if len(sources) == 0 {
		return out, nil, os.ErrNotExist
	}
	return out, sources, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	// invalid or non-positive numbers keep the previous value
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
				*dst = parsed
			}
		}
	}

	str("PORT", &cfg.Port)
	str("DATA_DIR", &cfg.DataDir)
	str("DEBUG_DIR", &cfg.DebugDir)
	str("JOBS_DB_PATH", &cfg.JobsDBPath)
	num("JOB_TTL_MINUTES", &cfg.JobTTLMinutes)
	str("FETCH_MODE", &cfg.FetchMode)
	num("FETCH_TIMEOUT_SECONDS", &cfg.FetchTimeoutSeconds)
	num("WORKERS", &cfg.Workers)
	str("NATS_URL", &cfg.NATSURL)
	str("NATS_SUBJECT", &cfg.NATSSubject)
	str("SCRAPE_SCHEDULE", &cfg.ScrapeSchedule)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("DOCS_DIR", &cfg.DocsDir)

	if v, ok := lookup("TRIGGER_RPS"); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && parsed > 0 {
			cfg.TriggerRPS = parsed
		}
	}
}

func (c Config) validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.JobsDBPath == "" {
		errs = append(errs, errors.New("jobs_db_path must not be empty"))
	}
	if c.FetchMode != "http" && c.FetchMode != "browser" {
		errs = append(errs, fmt.Errorf("fetch_mode %q must be http or browser", c.FetchMode))
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		errs = append(errs, errors.New("nats_subject is required when nats_url is set"))
	}
	if c.JobTTLMinutes <= 0 || c.FetchTimeoutSeconds <= 0 || c.Workers <= 0 || c.TriggerRPS <= 0 {
		errs = append(errs, errors.New("job_ttl_minutes, fetch_timeout_seconds, workers and trigger_rps must be positive"))
	}
	return errors.Join(errs...)
}
