// Package ranking aggregates per-week pick frequencies across finalist paths.
package ranking

import (
	"sort"

	"github.com/okian/survivor/internal/domain/model"
)

// Option is one competitor picked in a week by some finalists.
// Opponent and WinProb come from the last finalist seen picking it.
type Option struct {
	Competitor string  `json:"competitor"`
	Opponent   string  `json:"opponent"`
	WinProb    float64 `json:"win_prob"`
	Count      int     `json:"count"`
	// Percent is the truncated share of the week's picks.
	Percent int `json:"percent"`
}

// Week lists the options of one week by descending frequency; equal
// counts keep first-seen order.
type Week struct {
	Week    int      `json:"week"`
	Total   int      `json:"total"`
	Options []Option `json:"options"`
}

// Frequencies tallies finalists week by week, in week order.
func Frequencies(finalists []model.ScoredPath) []Week {
	byWeek := make(map[int]*Week)
	index := make(map[int]map[string]int)
	var order []int

	for _, p := range finalists {
		for _, pk := range p.Picks {
			w, ok := byWeek[pk.Week]
			if !ok {
				w = &Week{Week: pk.Week}
				byWeek[pk.Week] = w
				index[pk.Week] = make(map[string]int)
				order = append(order, pk.Week)
			}
			w.Total++
			i, seen := index[pk.Week][pk.Competitor]
			if !seen {
				i = len(w.Options)
				index[pk.Week][pk.Competitor] = i
				w.Options = append(w.Options, Option{Competitor: pk.Competitor})
			}
			o := &w.Options[i]
			o.Count++
			o.Opponent = pk.Opponent
			o.WinProb = pk.WinProb
		}
	}

	sort.Ints(order)
	out := make([]Week, 0, len(order))
	for _, wk := range order {
		w := byWeek[wk]
		for i := range w.Options {
			w.Options[i].Percent = w.Options[i].Count * 100 / w.Total
		}
		sort.SliceStable(w.Options, func(a, b int) bool { return w.Options[a].Count > w.Options[b].Count })
		out = append(out, *w)
	}
	return out
}
