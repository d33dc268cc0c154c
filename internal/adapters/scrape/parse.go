package scrape

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/survivor/internal/domain/model"
)

// Standing is one team's record as published.
type Standing struct {
	Team   string `json:"team"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Ties   int    `json:"ties"`
}

// CurrentWins counts a tie as half a win.
func (s Standing) CurrentWins() float64 { return float64(s.Wins) + float64(s.Ties)/2 }

// Played is the number of finished games.
func (s Standing) Played() int { return s.Wins + s.Losses + s.Ties }

// ParseStandings reads the conference tables under div#all_AFC and
// div#all_NFC. Division header rows and rows without a numeric win count
// are skipped; playoff markers are trimmed from team names.
func ParseStandings(root *goquery.Selection) []Standing {
	var out []Standing
	root.Find("div#all_AFC table tbody tr, div#all_NFC table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.HasClass("thead") {
			return
		}
		team := strings.TrimSpace(tr.Find(`th[data-stat="team"]`).Text())
		team = strings.NewReplacer("*", "", "+", "").Replace(team)
		wins, err := strconv.Atoi(cell(tr, "wins"))
		if team == "" || err != nil {
			return
		}
		losses, _ := strconv.Atoi(cell(tr, "losses"))
		ties, _ := strconv.Atoi(cell(tr, "ties"))
		out = append(out, Standing{Team: team, Wins: wins, Losses: losses, Ties: ties})
	})
	return out
}

func cell(tr *goquery.Selection, stat string) string {
	return strings.TrimSpace(tr.Find(`td[data-stat="` + stat + `"]`).Text())
}

// ParseGames reads the week's game summaries. A summary with two draw rows
// is a tie; one without a winner and a loser row is not finished and is skipped.
func ParseGames(week int, root *goquery.Selection) []model.GameResult {
	var out []model.GameResult
	root.Find("div.game_summary table.teams").Each(func(_ int, tbl *goquery.Selection) {
		if draws := tbl.Find("tr.draw"); draws.Length() == 2 {
			t1, s1, ok1 := side(draws.Eq(0))
			t2, s2, ok2 := side(draws.Eq(1))
			if ok1 && ok2 {
				out = append(out, model.GameResult{Week: week, Winner: t1, WinnerScore: s1, Loser: t2, LoserScore: s2, Draw: true})
			}
			return
		}
		w, ws, okW := side(tbl.Find("tr.winner").First())
		l, ls, okL := side(tbl.Find("tr.loser").First())
		if !okW || !okL {
			return
		}
		out = append(out, model.GameResult{Week: week, Winner: w, WinnerScore: ws, Loser: l, LoserScore: ls})
	})
	return out
}

// side reads the team name and score cells of a result row.
func side(tr *goquery.Selection) (string, int, bool) {
	tds := tr.ChildrenFiltered("td")
	if tds.Length() < 2 {
		return "", 0, false
	}
	team := strings.TrimSpace(tds.Eq(0).Text())
	score, err := strconv.Atoi(strings.TrimSpace(tds.Eq(1).Text()))
	if team == "" || err != nil {
		return "", 0, false
	}
	return team, score, true
}

// ApplyStandings updates the records of teams whose Name or Code matches a
// standing and reports the names that matched nothing.
func ApplyStandings(teams []model.Team, standings []Standing) ([]model.Team, []string) {
	byName := make(map[string]Standing, len(standings))
	for _, s := range standings {
		byName[s.Team] = s
	}
	used := make(map[string]bool, len(standings))

	out := make([]model.Team, len(teams))
	for i, t := range teams {
		out[i] = t
		s, ok := byName[t.Name]
		key := t.Name
		if !ok {
			s, ok = byName[t.Code]
			key = t.Code
		}
		if !ok {
			continue
		}
		used[key] = true
		out[i].CurrentWins = s.CurrentWins()
		out[i].Played = s.Played()
	}

	var unmatched []string
	for _, s := range standings {
		if !used[s.Team] {
			unmatched = append(unmatched, s.Team)
		}
	}
	return out, unmatched
}
