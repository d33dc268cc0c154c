// Package evaluate scores past probability tables against played games.
package evaluate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/survivor/internal/domain/model"
)

// Input holds everything an evaluation reads.
type Input struct {
	Results       []model.GameResult
	Probabilities []model.ProbabilityRow
	// Snapshots replace Probabilities for a week when present, so each week
	// is judged by the table that was current before it was played.
	Snapshots map[int][]model.ProbabilityRow
	// Aliases maps full team names in results to codes.
	Aliases map[string]string
}

// Outcome is one judged prediction.
type Outcome struct {
	Week      int     `json:"week"`
	Predicted string  `json:"predicted"`
	Opponent  string  `json:"opponent"`
	Actual    string  `json:"actual"`
	Prob      float64 `json:"prob"`
	Correct   bool    `json:"correct"`
}

// WeekSummary counts a week's predictions. Accuracy is nil when nothing qualified.
type WeekSummary struct {
	Week       int      `json:"week"`
	Correct    int      `json:"correct"`
	Considered int      `json:"considered"`
	Accuracy   *float64 `json:"accuracy"`
}

// Season is the evaluation at one threshold.
type Season struct {
	Threshold  float64       `json:"threshold"`
	Weeks      []WeekSummary `json:"weeks"`
	Correct    int           `json:"correct"`
	Considered int           `json:"considered"`
	Accuracy   *float64      `json:"accuracy"`
	// Brier is the mean squared error of the predicted side's probability
	// over considered games; nil when none qualified.
	Brier    *float64  `json:"brier"`
	Outcomes []Outcome `json:"outcomes"`
}

// SweepPoint is one row of a threshold sweep.
type SweepPoint struct {
	Threshold  float64  `json:"threshold"`
	Considered int      `json:"considered"`
	Accuracy   *float64 `json:"accuracy"`
}

// Evaluator judges tables against results.
type Evaluator struct {
	in    Input
	weeks []int
}

// New indexes the result weeks of in.
func New(in Input) *Evaluator {
	seen := make(map[int]bool)
	var weeks []int
	for _, r := range in.Results {
		if !seen[r.Week] {
			seen[r.Week] = true
			weeks = append(weeks, r.Week)
		}
	}
	sort.Ints(weeks)
	return &Evaluator{in: in, weeks: weeks}
}

func (e *Evaluator) normalize(name string) string {
	if code, ok := e.in.Aliases[name]; ok {
		return code
	}
	return name
}

// Week judges one week. A game qualifies when its larger probability is at
// least threshold; games without a result and drawn games are skipped.
func (e *Evaluator) Week(week int, threshold float64) []Outcome {
	rows := e.in.Probabilities
	if snap, ok := e.in.Snapshots[week]; ok {
		rows = snap
	}

	var out []Outcome
	for _, g := range rows {
		if g.Week != week || math.Max(g.HomeWinProb, g.AwayWinProb) < threshold {
			continue
		}
		predicted, opponent, prob := g.Away, g.Home, g.AwayWinProb
		if g.HomeWinProb > g.AwayWinProb {
			predicted, opponent, prob = g.Home, g.Away, g.HomeWinProb
		}

		actual, ok := e.winner(week, g.Home, g.Away)
		if !ok {
			continue
		}
		out = append(out, Outcome{
			Week:      week,
			Predicted: predicted,
			Opponent:  opponent,
			Actual:    actual,
			Prob:      prob,
			Correct:   predicted == actual,
		})
	}
	return out
}

func (e *Evaluator) winner(week int, home, away string) (string, bool) {
	for _, r := range e.in.Results {
		if r.Week != week {
			continue
		}
		w, l := e.normalize(r.Winner), e.normalize(r.Loser)
		if (w == home && l == away) || (w == away && l == home) {
			if r.Draw {
				return "", false
			}
			return w, true
		}
	}
	return "", false
}

// Season judges every week that has results.
func (e *Evaluator) Season(threshold float64) Season {
	s := Season{Threshold: threshold}
	var sq []float64
	for _, wk := range e.weeks {
		outcomes := e.Week(wk, threshold)
		ws := WeekSummary{Week: wk, Considered: len(outcomes)}
		for _, o := range outcomes {
			hit := 0.0
			if o.Correct {
				ws.Correct++
				hit = 1
			}
			sq = append(sq, (o.Prob-hit)*(o.Prob-hit))
		}
		ws.Accuracy = ratio(ws.Correct, ws.Considered)
		s.Weeks = append(s.Weeks, ws)
		s.Correct += ws.Correct
		s.Considered += ws.Considered
		s.Outcomes = append(s.Outcomes, outcomes...)
	}
	s.Accuracy = ratio(s.Correct, s.Considered)
	if len(sq) > 0 {
		brier := stat.Mean(sq, nil)
		s.Brier = &brier
	}
	return s
}

// Sweep evaluates evenly spaced thresholds from lo to hi inclusive.
func (e *Evaluator) Sweep(lo, hi, step float64) []SweepPoint {
	if step <= 0 || hi < lo {
		return nil
	}
	n := int(math.Round((hi-lo)/step)) + 1
	thresholds := make([]float64, n)
	if n == 1 {
		thresholds[0] = lo
	} else {
		floats.Span(thresholds, lo, hi)
	}

	points := make([]SweepPoint, 0, n)
	for _, t := range thresholds {
		t = math.Round(t*1000) / 1000
		s := e.Season(t)
		points = append(points, SweepPoint{Threshold: t, Considered: s.Considered, Accuracy: s.Accuracy})
	}
	return points
}

// DefaultSweep is 0.50 to 0.90 in steps of 0.05.
func (e *Evaluator) DefaultSweep() []SweepPoint { return e.Sweep(0.5, 0.9, 0.05) }

func ratio(n, d int) *float64 {
	if d == 0 {
		return nil
	}
	r := float64(n) / float64(d)
	return &r
}

func pct(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *p*100)
}

// RenderSeason formats a season summary.
func RenderSeason(s Season) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Week-by-week record (threshold %.2f):\n", s.Threshold)
	for _, w := range s.Weeks {
		fmt.Fprintf(&b, "Week %d: %d correct out of %d (%s)\n", w.Week, w.Correct, w.Considered, pct(w.Accuracy))
	}
	fmt.Fprintf(&b, "\nOverall accuracy: %s over %d games\n", pct(s.Accuracy), s.Considered)
	if s.Brier != nil {
		fmt.Fprintf(&b, "Brier score: %.4f\n", *s.Brier)
	}
	return b.String()
}

// RenderSweep formats a sweep as a table.
func RenderSweep(points []SweepPoint) string {
	var b strings.Builder
	b.WriteString("threshold  predictions  win%\n")
	for _, p := range points {
		fmt.Fprintf(&b, "%9.2f  %11d  %s\n", p.Threshold, p.Considered, pct(p.Accuracy))
	}
	return b.String()
}
