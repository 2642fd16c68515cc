package cmd

import (
	"fmt"
	"os"

	"coverarr/internal/buildinfo"
	"coverarr/internal/config"
	"coverarr/internal/logger"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch the configured selection and list the aggregated covers",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		cfg := config.New(configPath, buildinfo.Version)
		log := logger.New(cfg.Config)

		agg, _, ok := fetchAggregate(ctx, cfg, log)
		if !ok {
			return
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Provider", "Volume", "Title", "Score", "Size", "Cropped", "Link"})

		for _, book := range agg.View() {
			score, size := "-", "-"
			if book.Meta != nil {
				score = fmt.Sprintf("%d", book.Meta.Score)
				size = fmt.Sprintf("%dx%d", book.Meta.Width, book.Meta.Height)
			}

			cropped := ""
			if book.Cropped() {
				cropped = "yes"
			}

			t.AppendRow(table.Row{
				book.ProviderID,
				book.VolumeName,
				book.Title,
				score,
				size,
				cropped,
				agg.CopyLink(book),
			})
		}

		t.Render()
	},
}
