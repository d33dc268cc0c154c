package main

import (
	"fmt"

	"github.com/okian/survivor/internal/adapters/storage"
	app "github.com/okian/survivor/internal/app"
	"github.com/spf13/cobra"
)

var predictOut string

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Compute the win probability table from the schedule and team strengths",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rows, err := app.Predict(cfg.Storage.SchedulePath, cfg.Storage.TeamsPath, cfg.Model)
		if err != nil {
			return err
		}
		out := predictOut
		if out == "" {
			out = cfg.Storage.ProbabilitiesPath
		}
		if out == "-" {
			return storage.WriteProbabilities(cmd.OutOrStdout(), rows)
		}
		if err := storage.SaveProbabilities(out, rows); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d games to %s\n", len(rows), out)
		return nil
	},
}

func init() {
	predictCmd.Flags().StringVarP(&predictOut, "out", "o", "", "output CSV, - for stdout (default: storage.probabilities_path)")
}
