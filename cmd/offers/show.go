package main

import (
	"offer-hunter/pkg/logger"
	"offer-hunter/pkg/models"
	"offer-hunter/pkg/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var showURLs bool

func init() {
	showCmd.Flags().BoolVar(&showURLs, "urls", false, "include offer links")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:       "show <all|magalu|amazon>",
	Short:     "Prints the stored offers as a table.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"all", "magalu", "amazon"},
	RunE: func(cmd *cobra.Command, args []string) error {
		_, sites, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		offers := store.New(cfg.DataDir, logger.Discard())

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		header := table.Row{"Site", "Name", "Price", "Installment", "Available"}
		if showURLs {
			header = append(header, "URL")
		}
		t.AppendHeader(header)

		total := 0
		for _, site := range sites {
			for _, o := range offers.Read(site) {
				t.AppendRow(offerRow(site, o))
				total++
			}
		}
		t.AppendFooter(table.Row{"", "", "", "Total", total})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func offerRow(site models.Site, o models.Offer) table.Row {
	available := "yes"
	if !o.Available {
		available = "no"
	}
	row := table.Row{site, o.Name, o.PriceNow, o.PriceInstallment, available}
	if showURLs {
		row = append(row, o.URL)
	}
	return row
}
