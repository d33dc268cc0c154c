// Package schedule checks the structure of a league schedule and renders
// per-team views of it.
package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/survivor/internal/domain/model"
)

// Kind classifies a schedule problem.
type Kind string

const (
	KindDuplicate    Kind = "duplicate_game"
	KindSelfMatch    Kind = "self_match"
	KindTeamGames    Kind = "team_game_count"
	KindWeekGames    Kind = "week_game_count"
	KindDoubleBooked Kind = "double_booked"
)

// Issue is one schedule problem.
type Issue struct {
	Kind   Kind   `json:"kind"`
	Week   int    `json:"week,omitempty"`
	Team   string `json:"team,omitempty"`
	Detail string `json:"detail"`
}

func (i Issue) String() string { return fmt.Sprintf("%s: %s", i.Kind, i.Detail) }

// Rules holds the expected counts. Zero disables a count check.
type Rules struct {
	GamesPerTeam int `json:"games_per_team" koanf:"games_per_team"`
	GamesPerWeek int `json:"games_per_week" koanf:"games_per_week"`
}

// Report is the outcome of Check.
type Report struct {
	Games      int            `json:"games"`
	TeamCounts map[string]int `json:"team_counts"`
	WeekCounts map[int]int    `json:"week_counts"`
	Issues     []Issue        `json:"issues"`
}

// OK reports whether no issue was found.
func (r Report) OK() bool { return len(r.Issues) == 0 }

// Check inspects games against rules. Issues are ordered by kind, then week
// and team, so output is stable.
func Check(games []model.Game, rules Rules) Report {
	rep := Report{
		Games:      len(games),
		TeamCounts: make(map[string]int),
		WeekCounts: make(map[int]int),
	}

	seen := make(map[model.Game]bool, len(games))
	booked := make(map[int]map[string]int)
	for _, g := range games {
		dup := seen[g]
		if dup {
			rep.add(Issue{Kind: KindDuplicate, Week: g.Week, Detail: fmt.Sprintf("week %d %s vs %s listed twice", g.Week, g.Home, g.Away)})
		}
		seen[g] = true

		if g.Home == g.Away {
			rep.add(Issue{Kind: KindSelfMatch, Week: g.Week, Team: g.Home, Detail: fmt.Sprintf("week %d %s plays itself", g.Week, g.Home)})
		}

		rep.TeamCounts[g.Home]++
		rep.TeamCounts[g.Away]++
		rep.WeekCounts[g.Week]++

		// a repeated line is reported as a duplicate, not as double booking
		if dup {
			continue
		}
		if booked[g.Week] == nil {
			booked[g.Week] = make(map[string]int)
		}
		booked[g.Week][g.Home]++
		if g.Away != g.Home {
			booked[g.Week][g.Away]++
		}
	}

	for _, team := range sortedKeys(rep.TeamCounts) {
		if n := rep.TeamCounts[team]; rules.GamesPerTeam > 0 && n != rules.GamesPerTeam {
			rep.add(Issue{Kind: KindTeamGames, Team: team, Detail: fmt.Sprintf("%s has %d games, want %d", team, n, rules.GamesPerTeam)})
		}
	}
	for _, week := range sortedKeys(rep.WeekCounts) {
		if n := rep.WeekCounts[week]; rules.GamesPerWeek > 0 && n != rules.GamesPerWeek {
			rep.add(Issue{Kind: KindWeekGames, Week: week, Detail: fmt.Sprintf("week %d has %d games, want %d", week, n, rules.GamesPerWeek)})
		}
		for _, team := range sortedKeys(booked[week]) {
			if n := booked[week][team]; n > 1 {
				rep.add(Issue{Kind: KindDoubleBooked, Week: week, Team: team, Detail: fmt.Sprintf("week %d %s plays %d games", week, team, n)})
			}
		}
	}

	return rep
}

func (r *Report) add(i Issue) { r.Issues = append(r.Issues, i) }

// TeamView lists one team's games in week order.
type TeamView struct {
	Team  string   `json:"team"`
	Games []string `json:"games"`
}

// Teams renders every team's schedule as "W3: vs X" for home games and
// "W4: @ Y" for away games, teams sorted by code.
func Teams(games []model.Game) []TeamView {
	sorted := make([]model.Game, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Week < sorted[j].Week })

	byTeam := make(map[string][]string)
	for _, g := range sorted {
		byTeam[g.Home] = append(byTeam[g.Home], fmt.Sprintf("W%d: vs %s", g.Week, g.Away))
		byTeam[g.Away] = append(byTeam[g.Away], fmt.Sprintf("W%d: @ %s", g.Week, g.Home))
	}

	views := make([]TeamView, 0, len(byTeam))
	for _, team := range sortedKeys(byTeam) {
		views = append(views, TeamView{Team: team, Games: byTeam[team]})
	}
	return views
}

// Render formats views the way the CLI prints them.
func Render(views []TeamView) string {
	var b strings.Builder
	for _, v := range views {
		fmt.Fprintf(&b, "%s (%d games):\n", v.Team, len(v.Games))
		for _, g := range v.Games {
			fmt.Fprintf(&b, "   %s\n", g)
		}
	}
	return b.String()
}

func sortedKeys[K int | string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
