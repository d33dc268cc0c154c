package main

import (
	"fmt"
	"strings"

	"github.com/okian/survivor/internal/adapters/scrape"
	"github.com/okian/survivor/internal/adapters/storage"
	"github.com/okian/survivor/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	scrapeOut  string
	scrapeFrom int
	scrapeTo   int
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch standings or game results",
}

var scrapeStandingsCmd = &cobra.Command{
	Use:   "standings",
	Short: "Update current wins and games played in the teams file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		teams, err := storage.LoadTeams(cfg.Storage.TeamsPath)
		if err != nil {
			return err
		}
		standings, err := newScraper().Standings(cmd.Context(), cfg.Scrape.StandingsURL)
		if err != nil {
			return err
		}
		updated, unmatched := scrape.ApplyStandings(teams, standings)
		if len(unmatched) > 0 {
			logger.Get().Warn(cmd.Context(), "standings without a matching team",
				logger.String("names", strings.Join(unmatched, ", ")))
		}

		out := outPath(cfg.Storage.TeamsPath)
		if err := storage.SaveTeams(out, updated); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %d teams in %s\n", len(updated), out)
		return nil
	},
}

var scrapeResultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Fetch game results for a range of weeks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		to := scrapeTo
		if to == 0 {
			to = cfg.Season.LastWeek
		}
		results, err := newScraper().Results(cmd.Context(), cfg.Scrape.ResultsURLPrefix, scrapeFrom, to)
		if err != nil {
			return err
		}
		out := outPath(cfg.Storage.ResultsPath)
		if err := storage.SaveResults(out, results); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d results for weeks %d-%d to %s\n", len(results), scrapeFrom, to, out)
		return nil
	},
}

func init() {
	scrapeCmd.PersistentFlags().StringVarP(&scrapeOut, "out", "o", "", "output CSV (default: the configured storage path)")
	scrapeResultsCmd.Flags().IntVar(&scrapeFrom, "from", 1, "first week")
	scrapeResultsCmd.Flags().IntVar(&scrapeTo, "to", 0, "last week (default: season.last_week)")
	scrapeCmd.AddCommand(scrapeStandingsCmd, scrapeResultsCmd)
}

func newScraper() *scrape.Scraper {
	return scrape.New(
		scrape.WithDelay(cfg.Scrape.Delay),
		scrape.WithUserAgent(cfg.Scrape.UserAgent),
		scrape.WithLogger(logger.Get().Named("scrape")),
	)
}

func outPath(def string) string {
	if scrapeOut != "" {
		return scrapeOut
	}
	return def
}
