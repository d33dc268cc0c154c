// Package winprob turns a schedule and team strengths into the per-game
// probability table consumed by the recommender.
//
// Strength is measured in season wins. The projection dominates early in
// the season and the observed pace takes over as games are played. Both
// sides are then adjusted for home field, injuries, rest, momentum and
// matchup effects before a scaled logistic maps the gap to a probability.
package winprob

import (
	"fmt"
	"math"

	"github.com/okian/survivor/internal/domain/model"
)

// Model computes win probabilities. It is safe for concurrent use.
type Model struct {
	params Params
	teams  map[string]model.Team
}

// New validates params and indexes teams by code.
func New(teams []model.Team, params Params) (*Model, error) {
	if params.Scale <= 0 || math.IsNaN(params.Scale) {
		return nil, fmt.Errorf("%w: scale must be positive, got %v", ErrInvalidParams, params.Scale)
	}
	if params.PriorGames < 0 {
		return nil, fmt.Errorf("%w: prior_games must not be negative", ErrInvalidParams)
	}
	if params.SeasonGames < 1 {
		return nil, fmt.Errorf("%w: season_games must be at least 1", ErrInvalidParams)
	}
	m := &Model{params: params, teams: make(map[string]model.Team, len(teams))}
	for _, t := range teams {
		m.teams[t.Code] = t
	}
	return m, nil
}

// Strength returns a team's blended win expectation before adjustments.
func (m *Model) Strength(code string) (float64, error) {
	t, ok := m.teams[code]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTeam, code)
	}
	if t.Played == 0 {
		return t.ProjectedWins, nil
	}
	played := float64(t.Played)
	pace := t.CurrentWins / played * float64(m.params.SeasonGames)
	w := played / (played + m.params.PriorGames)
	return (1-w)*t.ProjectedWins + w*pace, nil
}

// HomeWinProb returns the unrounded probability that home beats away in week.
// rested reports whether a team is coming off a bye.
func (m *Model) HomeWinProb(week int, home, away string, rested func(team string) bool) (float64, error) {
	h, err := m.side(week, home, rested)
	if err != nil {
		return 0, err
	}
	a, err := m.side(week, away, rested)
	if err != nil {
		return 0, err
	}
	h += m.params.HomeField + m.params.Home[home]

	// upset risk goes to the underdog only; ties count the home side as underdog
	if h <= a {
		h += m.params.UpsetRisk[home]
	} else {
		a += m.params.UpsetRisk[away]
	}

	if m.sameDivision(home, away) {
		switch {
		case h < a:
			h += m.params.DivisionalUnderdog
		case a < h:
			a += m.params.DivisionalUnderdog
		}
	}

	return logistic((h - a) / m.params.Scale), nil
}

// side is a team's strength with the adjustments that do not depend on the opponent.
func (m *Model) side(week int, code string, rested func(string) bool) (float64, error) {
	s, err := m.Strength(code)
	if err != nil {
		return 0, err
	}
	for _, inj := range m.params.Injuries[code] {
		if inj.FromWeek <= week && week <= inj.ToWeek {
			s += inj.Delta
		}
	}
	if rested != nil && rested(code) {
		s += m.params.ByeRest
	}
	s += m.params.Momentum[code]
	return s, nil
}

func (m *Model) sameDivision(a, b string) bool {
	da, db := m.teams[a].Division, m.teams[b].Division
	return da != "" && da == db
}

// Table computes the probability table for games, in schedule order.
// Probabilities are rounded to three decimals and the away side is the
// complement of the home side.
func (m *Model) Table(games []model.Game) ([]model.ProbabilityRow, error) {
	played := make(map[int]map[string]bool)
	first := math.MaxInt
	for _, g := range games {
		if played[g.Week] == nil {
			played[g.Week] = make(map[string]bool)
		}
		played[g.Week][g.Home] = true
		played[g.Week][g.Away] = true
		first = min(first, g.Week)
	}

	rows := make([]model.ProbabilityRow, 0, len(games))
	for _, g := range games {
		prev := played[g.Week-1]
		rested := func(team string) bool {
			return g.Week-1 >= first && !prev[team]
		}
		p, err := m.HomeWinProb(g.Week, g.Home, g.Away, rested)
		if err != nil {
			return nil, fmt.Errorf("week %d %s vs %s: %w", g.Week, g.Home, g.Away, err)
		}
		home := round3(p)
		rows = append(rows, model.ProbabilityRow{
			Week:        g.Week,
			Home:        g.Home,
			Away:        g.Away,
			HomeWinProb: home,
			AwayWinProb: round3(1 - home),
		})
	}
	return rows, nil
}

func logistic(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
