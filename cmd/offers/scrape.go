package main

import (
	"os"

	"offer-hunter/pkg/fetch"
	"offer-hunter/pkg/jobs"
	"offer-hunter/pkg/logger"
	"offer-hunter/pkg/scrapers"
	"offer-hunter/pkg/store"
	"offer-hunter/pkg/strategy"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:       "scrape <all|magalu|amazon>",
	Short:     "Scrapes now, stores the results and prints a summary.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"all", "magalu", "amazon"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := logger.New(os.Stderr, cfg.LogLevel, logger.FormatPretty)
		if err != nil {
			return err
		}

		fetcher, err := fetch.New(fetch.Options{
			Mode:    cfg.FetchMode,
			Timeout: cfg.FetchTimeout(),
			Hosts:   scrapers.Hosts(),
			Logger:  log,
		})
		if err != nil {
			return err
		}
		var opts []strategy.Option
		if cfg.DebugDir != "" {
			opts = append(opts, strategy.WithRecorder(store.NewDebug(cfg.DebugDir, log)))
		}
		runner := jobs.NewRunner(
			strategy.NewEngine(fetcher, log, opts...),
			store.New(cfg.DataDir, log),
			scrapers.All(),
			log,
		)

		outcomes := runner.Execute(cmd.Context(), kind)

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Site", "Status", "Offers", "Message"})
		for _, site := range kind.Sites() {
			o := outcomes[site]
			t.AppendRow(table.Row{site, o.Status, o.Count, o.Message})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
