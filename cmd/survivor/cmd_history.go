package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/okian/survivor/internal/adapters/history"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

var errNoHistory = errors.New("storage.history_dsn is not set")

var historyCmd = &cobra.Command{
	Use:   "history [id|latest]",
	Short: "List stored runs or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.HistoryDSN == "" {
			return errNoHistory
		}
		store, err := history.Open(cfg.Storage.HistoryDSN)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		ctx := cmd.Context()
		if len(args) == 0 {
			runs, err := store.List(ctx, historyLimit)
			if err != nil {
				return err
			}
			if historyJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tWEEKS\tENGINE\tSCORE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%s\t%.6g\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.FirstWeek, r.LastWeek, r.Engine, r.BestScore)
			}
			return tw.Flush()
		}

		var run *history.Run
		if args[0] == "latest" {
			run, err = store.Latest(ctx)
		} else {
			run, err = store.Get(ctx, args[0])
		}
		if err != nil {
			return err
		}
		if historyJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(run)
		}
		picks := make([]model.Pick, 0, len(run.Picks))
		for _, p := range run.Picks {
			picks = append(picks, model.Pick{Week: p.Week, Competitor: p.Competitor, Opponent: p.Opponent, WinProb: p.WinProb})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s (%s engine, score %.6g)\n\n", run.ID, run.Engine, run.BestScore)
		printPicks(cmd, picks)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s", run.Report)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print JSON")
}
