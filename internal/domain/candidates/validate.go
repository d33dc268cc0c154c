package candidates

import (
	"errors"
	"math"

	"github.com/okian/survivor/internal/domain/model"
)

// probSumTolerance absorbs rounding of published probabilities.
const probSumTolerance = 0.01

// Validate reports every structural problem in the input. All returned
// errors wrap ErrInvalidInput.
func Validate(in Input) error {
	var errs []error

	if in.FirstWeek < 1 {
		errs = append(errs, invalid("first week %d must be at least 1", in.FirstWeek))
	}
	if in.LastWeek < in.FirstWeek {
		errs = append(errs, invalid("no weeks to search between %d and %d", in.FirstWeek, in.LastWeek))
	}
	if math.IsNaN(in.Threshold) || in.Threshold < 0 || in.Threshold >= 1 {
		errs = append(errs, invalid("admission threshold %v must be in [0,1)", in.Threshold))
	}

	errs = append(errs, validateRows(in.Rows)...)
	errs = append(errs, validatePicks(in)...)

	return errors.Join(errs...)
}

func validProb(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}

func validateRows(rows []model.ProbabilityRow) []error {
	var errs []error
	seen := make(map[int]map[string]bool)
	for i, r := range rows {
		if r.Week < 1 {
			errs = append(errs, invalid("row %d: week %d must be at least 1", i, r.Week))
		}
		if r.Home == "" || r.Away == "" {
			errs = append(errs, invalid("row %d: week %d has an empty competitor", i, r.Week))
			continue
		}
		if r.Home == r.Away {
			errs = append(errs, invalid("row %d: week %d %s plays itself", i, r.Week, r.Home))
		}
		if !validProb(r.HomeWinProb) || !validProb(r.AwayWinProb) {
			errs = append(errs, invalid("row %d: week %d %s vs %s probabilities %v/%v outside [0,1]",
				i, r.Week, r.Home, r.Away, r.HomeWinProb, r.AwayWinProb))
		} else if math.Abs(r.HomeWinProb+r.AwayWinProb-1) > probSumTolerance {
			errs = append(errs, invalid("row %d: week %d %s vs %s probabilities sum to %v",
				i, r.Week, r.Home, r.Away, r.HomeWinProb+r.AwayWinProb))
		}
		if seen[r.Week] == nil {
			seen[r.Week] = make(map[string]bool)
		}
		for _, c := range []string{r.Home, r.Away} {
			if seen[r.Week][c] {
				errs = append(errs, invalid("week %d: %s plays more than once", r.Week, c))
			}
			seen[r.Week][c] = true
		}
	}
	return errs
}

func validatePicks(in Input) []error {
	var errs []error

	playing := make(map[int]map[string]bool)
	for _, r := range in.Rows {
		if playing[r.Week] == nil {
			playing[r.Week] = make(map[string]bool)
		}
		playing[r.Week][r.Home] = true
		playing[r.Week][r.Away] = true
	}

	usedBy := make(map[string]int)
	check := func(kind string, w int, p model.Pick) {
		switch {
		case p.Competitor == "":
			errs = append(errs, invalid("%s pick week %d has no competitor", kind, w))
			return
		case p.Week != w:
			errs = append(errs, invalid("%s pick keyed by week %d says week %d", kind, w, p.Week))
		case !validProb(p.WinProb) || p.WinProb == 0:
			errs = append(errs, invalid("%s pick week %d %s has win probability %v outside (0,1]", kind, w, p.Competitor, p.WinProb))
		}

		inRange := w >= in.FirstWeek && w <= in.LastWeek
		if w > in.LastWeek {
			errs = append(errs, invalid("%s pick week %d is after the last week %d", kind, w, in.LastWeek))
		}
		if kind == "forced" && w < in.FirstWeek {
			errs = append(errs, invalid("forced pick week %d is before the first searched week %d", w, in.FirstWeek))
		}
		// Past weeks may be absent from the table entirely.
		if (inRange || len(playing[w]) > 0) && !playing[w][p.Competitor] {
			errs = append(errs, invalid("%s pick week %d: %s does not play that week", kind, w, p.Competitor))
		}

		if prev, ok := usedBy[p.Competitor]; ok && prev != w {
			errs = append(errs, invalid("%s pick week %d reuses %s already picked in week %d", kind, w, p.Competitor, prev))
		}
		usedBy[p.Competitor] = w
	}

	for _, w := range sortedWeeks(in.Locked) {
		check("locked", w, in.Locked[w])
	}
	for _, w := range sortedWeeks(in.Forced) {
		f := in.Forced[w]
		if l, ok := in.Locked[w]; ok {
			if l.Competitor != f.Competitor {
				errs = append(errs, invalid("week %d is locked to %s but forced to %s", w, l.Competitor, f.Competitor))
			}
			continue
		}
		check("forced", w, f)
	}

	return errs
}
