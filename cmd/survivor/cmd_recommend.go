package main

import (
	"encoding/json"
	"fmt"

	app "github.com/okian/survivor/internal/app"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	recommendFirstWeek int
	recommendLastWeek  int
	recommendTrials    int
	recommendSeed      uint64
	recommendBudget    string
	recommendJSON      bool
	recommendNoWrite   bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Search the remaining weeks and print the recommended picks",
	Example: `  survivor recommend
  survivor recommend --first-week 6 --trials 5000000 --budget 10m
  survivor recommend --json > run.json`,
	RunE: runRecommend,
}

func init() {
	f := recommendCmd.Flags()
	f.IntVar(&recommendFirstWeek, "first-week", 0, "first week to search (default: after the last locked pick)")
	f.IntVar(&recommendLastWeek, "last-week", 0, "last week to search (default: season.last_week)")
	f.IntVar(&recommendTrials, "trials", 0, "randomized trial count (default: search.trial_count)")
	f.Uint64Var(&recommendSeed, "seed", 0, "random seed; 0 seeds from the clock")
	f.StringVar(&recommendBudget, "budget", "", "wall-clock budget, e.g. 90s")
	f.BoolVar(&recommendJSON, "json", false, "print the recommendation as JSON")
	f.BoolVar(&recommendNoWrite, "no-write", false, "do not write picks.csv and weekly_options.txt")
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if recommendNoWrite {
		cfg.Storage.OutputDir = ""
	}

	svc, closeHistory, err := app.FromConfig(cfg, logger.Get())
	if err != nil {
		return err
	}
	defer func() { _ = closeHistory() }()
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	req := app.Request{FirstWeek: recommendFirstWeek, LastWeek: recommendLastWeek}
	over := &app.Overrides{TimeBudget: recommendBudget}
	if cmd.Flags().Changed("trials") {
		over.TrialCount = &recommendTrials
	}
	if cmd.Flags().Changed("seed") {
		over.Seed = &recommendSeed
	}
	req.Search = over

	rec, err := svc.Recommend(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if recommendJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	printPicks(cmd, rec.Picks)
	fmt.Fprintf(out, "\nSurvival probability: %.6g (%s engine", rec.Best.Score, rec.Stats.Engine)
	if rec.Stats.Truncated {
		fmt.Fprint(out, ", stopped by budget")
	}
	fmt.Fprintln(out, ")")
	if rec.ID != "" {
		fmt.Fprintf(out, "Run: %s\n", rec.ID)
	}
	if rec.OutputDir != "" {
		fmt.Fprintf(out, "Saved to %s\n", rec.OutputDir)
	}
	fmt.Fprintf(out, "\n%s", rec.Report)
	return nil
}

func printPicks(cmd *cobra.Command, picks []model.Pick) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-5s %-6s %-6s %s\n", "Week", "Pick", "Opp", "Win%")
	for _, p := range picks {
		fmt.Fprintf(out, "%-5d %-6s %-6s %.1f\n", p.Week, p.Competitor, p.Opponent, p.WinProb*100)
	}
}
