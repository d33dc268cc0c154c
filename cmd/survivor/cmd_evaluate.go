package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/okian/survivor/internal/adapters/storage"
	"github.com/okian/survivor/internal/domain/evaluate"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/spf13/cobra"
)

var (
	evaluateThreshold float64
	evaluateSweep     bool
	evaluateJSON      bool
	evaluateSnapshots map[string]string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score past predictions against actual results",
	Example: `  survivor evaluate --threshold 0.65
  survivor evaluate --sweep
  survivor evaluate --snapshot 6=data/week6_probs.csv --snapshot 7=data/week7_probs.csv`,
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.Float64Var(&evaluateThreshold, "threshold", 0, "minimum favourite probability (default: search.admission_threshold)")
	f.BoolVar(&evaluateSweep, "sweep", false, "report accuracy for thresholds 0.50 to 0.90")
	f.BoolVar(&evaluateJSON, "json", false, "print JSON")
	f.StringToStringVar(&evaluateSnapshots, "snapshot", nil, "week=probabilities.csv used to judge that week")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	results, err := storage.LoadResults(cfg.Storage.ResultsPath)
	if err != nil {
		return err
	}
	probs, err := storage.LoadProbabilities(cfg.Storage.ProbabilitiesPath)
	if err != nil {
		return err
	}
	in := evaluate.Input{Results: results, Probabilities: probs, Aliases: aliases()}

	if len(evaluateSnapshots) > 0 {
		in.Snapshots = make(map[int][]model.ProbabilityRow, len(evaluateSnapshots))
		for w, path := range evaluateSnapshots {
			week, err := strconv.Atoi(w)
			if err != nil {
				return fmt.Errorf("snapshot week %q: %w", w, err)
			}
			if in.Snapshots[week], err = storage.LoadProbabilities(path); err != nil {
				return err
			}
		}
	}

	ev := evaluate.New(in)
	out := cmd.OutOrStdout()

	if evaluateSweep {
		points := ev.DefaultSweep()
		if evaluateJSON {
			return json.NewEncoder(out).Encode(points)
		}
		fmt.Fprint(out, evaluate.RenderSweep(points))
		return nil
	}

	threshold := evaluateThreshold
	if !cmd.Flags().Changed("threshold") {
		threshold = cfg.Search.AdmissionThreshold
	}
	season := ev.Season(threshold)
	if evaluateJSON {
		return json.NewEncoder(out).Encode(season)
	}
	fmt.Fprint(out, evaluate.RenderSeason(season))
	return nil
}

// aliases maps team names from the teams file to their codes. A missing
// teams file leaves results matched by code only.
func aliases() map[string]string {
	teams, err := storage.LoadTeams(cfg.Storage.TeamsPath)
	if err != nil {
		return nil
	}
	m := make(map[string]string, len(teams))
	for _, t := range teams {
		if t.Name != "" {
			m[t.Name] = t.Code
		}
	}
	return m
}
