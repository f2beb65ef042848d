// Command offers runs scrapes and inspects stored offers without the server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"offer-hunter/pkg/config"
	"offer-hunter/pkg/jobs"
	"offer-hunter/pkg/models"

	"github.com/spf13/cobra"
)

var (
	configFile string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:          "offers",
	Short:        "offers scrapes marketplace listings and shows the stored offers.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultFile, "configuration file (json5)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the offer data directory")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return cfg, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// parseTarget maps "all" or a site key to the job kind and sites it covers.
func parseTarget(arg string) (jobs.Kind, []models.Site, error) {
	if arg == "all" {
		return jobs.KindScrapeAll, models.Sites(), nil
	}
	site, err := models.ParseSite(arg)
	if err != nil {
		return "", nil, err
	}
	return jobs.KindFor(site), []models.Site{site}, nil
}
