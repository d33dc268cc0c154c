// Package report assembles the chronological recommendation and renders
// the weekly frequency listing.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/internal/domain/ranking"
	"github.com/okian/survivor/internal/domain/search"
)

// TimestampLayout is used in the report header.
const TimestampLayout = "2006-01-02 15:04:05"

// Result is what a caller receives for one recommendation.
type Result struct {
	// Picks is the locked prefix followed by the best searched path.
	Picks       []model.Pick     `json:"picks"`
	Best        model.ScoredPath `json:"best"`
	Frequencies []ranking.Week   `json:"frequencies"`
	Text        string           `json:"report"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Assemble joins prefix with the best finalist and renders the report.
// Finalists must be ordered best first.
func Assemble(prefix []model.Pick, finalists []model.ScoredPath, now time.Time) (Result, error) {
	if len(finalists) == 0 {
		return Result{}, search.ErrNoFeasiblePath
	}

	head := make([]model.Pick, len(prefix))
	copy(head, prefix)
	sort.SliceStable(head, func(i, j int) bool { return head[i].Week < head[j].Week })

	best := finalists[0]
	picks := make([]model.Pick, 0, len(head)+len(best.Picks))
	picks = append(picks, head...)
	picks = append(picks, best.Picks...)

	freqs := ranking.Frequencies(finalists)
	return Result{
		Picks:       picks,
		Best:        best,
		Frequencies: freqs,
		Text:        Render(len(finalists), freqs, now),
		GeneratedAt: now,
	}, nil
}

// Render formats the frequency listing, one line per week:
//
//	Week 7: KC over LV (64% of paths, 82% to win), BUF over NE (35% of paths, 78% to win)
func Render(paths int, weeks []ranking.Week, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Top %d Paths (generated at %s):\n", paths, now.Format(TimestampLayout))
	for _, w := range weeks {
		if len(w.Options) == 0 {
			continue
		}
		parts := make([]string, len(w.Options))
		for i, o := range w.Options {
			parts[i] = fmt.Sprintf("%s over %s (%d%% of paths, %d%% to win)",
				o.Competitor, o.Opponent, o.Percent, int(o.WinProb*100))
		}
		fmt.Fprintf(&b, "Week %d: %s\n", w.Week, strings.Join(parts, ", "))
	}
	return b.String()
}
