package main

import (
	"errors"
	"fmt"

	"github.com/okian/survivor/internal/adapters/storage"
	"github.com/okian/survivor/internal/domain/schedule"
	"github.com/spf13/cobra"
)

var scheduleTeams bool

// errScheduleInvalid makes the command exit non-zero after printing issues.
var errScheduleInvalid = errors.New("schedule has issues")

var validateScheduleCmd = &cobra.Command{
	Use:   "validate-schedule [schedule.csv]",
	Short: "Check the schedule for duplicates, self matches and game counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Storage.SchedulePath
		if len(args) == 1 {
			path = args[0]
		}
		games, err := storage.LoadSchedule(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if scheduleTeams {
			fmt.Fprint(out, schedule.Render(schedule.Teams(games)))
		}

		rep := schedule.Check(games, cfg.Season.Rules())
		fmt.Fprintf(out, "%d games, %d teams, %d weeks\n", rep.Games, len(rep.TeamCounts), len(rep.WeekCounts))
		if rep.OK() {
			fmt.Fprintln(out, "Schedule is valid.")
			return nil
		}
		for _, issue := range rep.Issues {
			fmt.Fprintln(out, issue)
		}
		return fmt.Errorf("%w: %d found", errScheduleInvalid, len(rep.Issues))
	},
}

func init() {
	validateScheduleCmd.Flags().BoolVar(&scheduleTeams, "teams", false, "also print each team's schedule")
}
