// Package candidates derives the per-week candidate table the search engines
// walk. The table is immutable once built and safe for concurrent reads.
package candidates

import (
	"fmt"
	"sort"

	"github.com/okian/survivor/internal/domain/model"
)

// Input is everything needed to derive a candidate table.
type Input struct {
	Rows      []model.ProbabilityRow
	FirstWeek int
	LastWeek  int
	// Locked picks are immutable past decisions keyed by week.
	Locked map[int]model.Pick
	// Forced picks override probabilistic derivation for a week.
	Forced map[int]model.Pick
	// Threshold is exclusive: a probability must be strictly greater.
	Threshold float64
}

// Week holds the candidates of one searched week as parallel slices in
// source order of games, home before away.
type Week struct {
	Week        int
	Competitors []string
	Opponents   []string
	Probs       []float64
	IDs         []int
	// Forced weeks carry a single entry that bypasses the used-set check.
	Forced bool
}

// Len returns the number of candidates.
func (w *Week) Len() int { return len(w.Competitors) }

// Pick returns candidate i as a pick.
func (w *Week) Pick(i int) model.Pick {
	return model.Pick{Week: w.Week, Competitor: w.Competitors[i], Opponent: w.Opponents[i], WinProb: w.Probs[i]}
}

// Table is the derived candidate table.
type Table struct {
	Weeks []Week
	// Prefix holds locked picks before the first searched week in week order.
	Prefix []model.Pick
	// Reserved lists competitor IDs already spoken for by locked or forced picks.
	Reserved []int

	names []string
	index map[string]int
}

// Competitors returns the number of distinct competitor IDs.
func (t *Table) Competitors() int { return len(t.names) }

// Name maps a competitor ID back to its code.
func (t *Table) Name(id int) string { return t.names[id] }

// ID returns the competitor ID for code.
func (t *Table) ID(code string) (int, bool) {
	id, ok := t.index[code]
	return id, ok
}

func (t *Table) intern(code string) int {
	if id, ok := t.index[code]; ok {
		return id
	}
	id := len(t.names)
	t.names = append(t.names, code)
	t.index[code] = id
	return id
}

// Build validates in and derives the candidate table.
func Build(in Input) (*Table, error) {
	in = normalize(in)
	if err := Validate(in); err != nil {
		return nil, err
	}

	t := &Table{index: make(map[string]int)}

	byWeek := groupByWeek(in.Rows)

	lockedWeeks := sortedWeeks(in.Locked)
	reserved := make(map[string]bool)
	for _, w := range lockedWeeks {
		p := in.Locked[w]
		reserved[p.Competitor] = true
		if w < in.FirstWeek {
			t.Prefix = append(t.Prefix, p)
		}
	}
	for _, p := range in.Forced {
		reserved[p.Competitor] = true
	}

	for w := in.FirstWeek; w <= in.LastWeek; w++ {
		wk := Week{Week: w}
		if p, ok := forcedFor(in, w); ok {
			wk.Forced = true
			wk.Competitors = []string{p.Competitor}
			wk.Opponents = []string{p.Opponent}
			wk.Probs = []float64{p.WinProb}
			wk.IDs = []int{t.intern(p.Competitor)}
			t.Weeks = append(t.Weeks, wk)
			continue
		}
		for _, r := range byWeek[w] {
			if r.HomeWinProb > in.Threshold && !reserved[r.Home] {
				wk.Competitors = append(wk.Competitors, r.Home)
				wk.Opponents = append(wk.Opponents, r.Away)
				wk.Probs = append(wk.Probs, r.HomeWinProb)
				wk.IDs = append(wk.IDs, t.intern(r.Home))
			}
			if r.AwayWinProb > in.Threshold && !reserved[r.Away] {
				wk.Competitors = append(wk.Competitors, r.Away)
				wk.Opponents = append(wk.Opponents, r.Home)
				wk.Probs = append(wk.Probs, r.AwayWinProb)
				wk.IDs = append(wk.IDs, t.intern(r.Away))
			}
		}
		t.Weeks = append(t.Weeks, wk)
	}

	codes := make([]string, 0, len(reserved))
	for c := range reserved {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		t.Reserved = append(t.Reserved, t.intern(c))
	}

	return t, nil
}

// forcedFor returns the single forced entry for an in-range week. Locked
// picks take precedence over forced overrides.
func forcedFor(in Input, week int) (model.Pick, bool) {
	if p, ok := in.Locked[week]; ok {
		return p, true
	}
	p, ok := in.Forced[week]
	return p, ok
}

// normalize fills pick weeks from map keys and missing opponents or
// probabilities from the table.
func normalize(in Input) Input {
	byWeek := groupByWeek(in.Rows)
	fill := func(src map[int]model.Pick) map[int]model.Pick {
		if len(src) == 0 {
			return src
		}
		out := make(map[int]model.Pick, len(src))
		for w, p := range src {
			if p.Week == 0 {
				p.Week = w
			}
			for _, r := range byWeek[w] {
				switch p.Competitor {
				case r.Home:
					if p.Opponent == "" {
						p.Opponent = r.Away
					}
					if p.WinProb == 0 {
						p.WinProb = r.HomeWinProb
					}
				case r.Away:
					if p.Opponent == "" {
						p.Opponent = r.Home
					}
					if p.WinProb == 0 {
						p.WinProb = r.AwayWinProb
					}
				}
			}
			out[w] = p
		}
		return out
	}
	in.Locked = fill(in.Locked)
	in.Forced = fill(in.Forced)
	return in
}

func groupByWeek(rows []model.ProbabilityRow) map[int][]model.ProbabilityRow {
	out := make(map[int][]model.ProbabilityRow)
	for _, r := range rows {
		out[r.Week] = append(out[r.Week], r)
	}
	return out
}

func sortedWeeks(m map[int]model.Pick) []int {
	weeks := make([]int, 0, len(m))
	for w := range m {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
