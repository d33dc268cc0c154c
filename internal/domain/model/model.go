// Package model contains domain models passed between layers.
package model

import (
	"math"
	"strconv"
	"strings"
)

// ProbabilityRow is one game of the probability table.
// HomeWinProb + AwayWinProb is 1 within rounding.
type ProbabilityRow struct {
	Week        int     `json:"week"`
	Home        string  `json:"home_team"`
	Away        string  `json:"away_team"`
	HomeWinProb float64 `json:"home_win_prob"`
	AwayWinProb float64 `json:"away_win_prob"`
}

// Game is a scheduled pairing without probabilities.
type Game struct {
	Week int    `json:"week"`
	Home string `json:"home_team"`
	Away string `json:"away_team"`
}

// Team carries the strength inputs of one competitor.
// CurrentWins counts ties as half a win.
type Team struct {
	Code          string  `json:"abbreviation"`
	Name          string  `json:"name,omitempty"`
	Division      string  `json:"division,omitempty"`
	ProjectedWins float64 `json:"projected_wins"`
	CurrentWins   float64 `json:"current_wins"`
	Played        int     `json:"games_played"`
}

// GameResult is a played game. Winner and Loser are arbitrary when Draw is set.
type GameResult struct {
	Week        int    `json:"week"`
	Winner      string `json:"winner"`
	WinnerScore int    `json:"winner_score"`
	Loser       string `json:"loser"`
	LoserScore  int    `json:"loser_score"`
	Draw        bool   `json:"draw"`
}

// Pick is a competitor selected to beat Opponent in Week.
// Locked picks, forced overrides, candidates and path steps all share it.
type Pick struct {
	Week       int     `json:"week"`
	Competitor string  `json:"competitor"`
	Opponent   string  `json:"opponent,omitempty"`
	WinProb    float64 `json:"win_prob"`
}

// ScoredPath is a complete pick sequence with its survival probability.
// LogScore stays finite when Score underflows on long horizons.
type ScoredPath struct {
	Key      string  `json:"key"`
	Score    float64 `json:"score"`
	LogScore float64 `json:"log_score"`
	Picks    []Pick  `json:"picks"`
}

// NewScoredPath copies picks and computes key and scores.
func NewScoredPath(picks []Pick) ScoredPath {
	cp := make([]Pick, len(picks))
	copy(cp, picks)
	score, logScore := 1.0, 0.0
	for _, p := range cp {
		score *= p.WinProb
		logScore += math.Log(p.WinProb)
	}
	return ScoredPath{Key: PathKey(cp), Score: score, LogScore: logScore, Picks: cp}
}

// PathKey identifies a path by its week-ordered picks, e.g. "1:KC|2:BUF".
func PathKey(picks []Pick) string {
	var b strings.Builder
	for i, p := range picks {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(p.Week))
		b.WriteByte(':')
		b.WriteString(p.Competitor)
	}
	return b.String()
}

// TrialBatch is a unit of randomized search work.
type TrialBatch struct {
	ID     int    `json:"id"`
	Trials int    `json:"trials"`
	Seed   uint64 `json:"seed"`
}
