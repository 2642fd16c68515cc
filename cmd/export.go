package cmd

import (
	"context"
	"os"
	"strings"

	"coverarr/internal/aggregator"
	"coverarr/internal/buildinfo"
	"coverarr/internal/catalog"
	"coverarr/internal/config"
	"coverarr/internal/domain"
	"coverarr/internal/export"
	"coverarr/internal/imageproxy"
	"coverarr/internal/logger"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch the configured selection and export the picked covers",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		cfg := config.New(configPath, buildinfo.Version)
		log := logger.New(cfg.Config)

		agg, client, ok := fetchAggregate(ctx, cfg, log)
		if !ok {
			return
		}

		books := agg.View()

		if len(selectedBooks) > 0 {
			books = restrictBooks(books, selectedBooks)
			if len(books) == 0 {
				log.Error().Msg("none of the requested books were found in the aggregate set")
				return
			}
		}

		packager := export.NewPackager(client, cfg.Config, agg.SeriesIndex(), log.With().Logger())

		result, errs := packager.Run(ctx, books)
		for _, err := range errs {
			log.Error().Err(err).Msg("error packaging covers")
		}

		if result == nil || result.Saved == 0 {
			log.Warn().Msg("no eligible covers to export")
			return
		}

		if result.Archive {
			log.Info().Msgf("exported %d covers to %q", result.Saved, result.OutputPath)
		} else {
			log.Info().Msgf("exported cover to %q", result.OutputPath)
		}
	},
}

// fetchAggregate runs the shared fetch flow of the export and list commands.
func fetchAggregate(ctx context.Context, cfg *config.AppConfig, log logger.Logger) (*aggregator.Aggregator, *catalog.Client, bool) {
	if err := cfg.UpdateConfig(); err != nil {
		log.Error().Err(err).Msgf("error updating config")
	}

	cfg.DynamicReload(log)

	if _, err := os.Stat(cfg.Config.DownloadLocation); err != nil {
		log.Fatal().Err(err).Msgf("invalid download location")
	}

	client := catalog.New(cfg.Config.CatalogURL, log.With().Logger())
	proxy := imageproxy.New(cfg.Config.ImageProxyURL)

	agg := aggregator.New(client, proxy, cfg.Config, log.With().Logger())

	for _, err := range agg.Initialize(ctx) {
		log.Error().Err(err).Msg("error aggregating catalog data")
	}

	if agg.State() != aggregator.StateReady {
		log.Error().Msg("aggregation did not complete")
		return nil, nil, false
	}

	if page > 1 {
		for _, err := range agg.ChangePage(ctx, page) {
			log.Error().Err(err).Msg("error changing page")
		}
	}

	if allPages {
		for agg.MaxPage() > page {
			page++
			for _, err := range agg.IncrementPage(ctx) {
				log.Error().Err(err).Msg("error fetching additional page")
			}
		}
	}

	if len(agg.Books()) == 0 {
		log.Warn().Msg("no books found for the configured selection")
		return nil, nil, false
	}

	return agg, client, true
}

// restrictBooks filters the view down to the requested <providerId>:<bookId>
// pairs.
func restrictBooks(books []*domain.Book, pairs []string) []*domain.Book {
	wanted := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		wanted[parts[1]+"|"+parts[0]] = true
	}

	var out []*domain.Book
	for _, book := range books {
		if wanted[book.Key()] {
			out = append(out, book)
		}
	}
	return out
}
