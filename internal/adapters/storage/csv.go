// Package storage reads and writes the tabular files the recommender works
// from: probability tables, schedules, team strengths and game results, plus
// the per-run output directory.
package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okian/survivor/internal/domain/model"
)

// table is a header-indexed CSV body.
type table struct {
	name string
	cols map[string]int
	rows [][]string
}

func readTable(name string, r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s: missing header", ErrMalformed, name)
	}
	t := &table{name: name, cols: make(map[string]int), rows: records[1:]}
	for i, h := range records[0] {
		t.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range required {
		if _, ok := t.cols[c]; !ok {
			return nil, fmt.Errorf("%w: %s: missing column %q", ErrMalformed, name, c)
		}
	}
	return t, nil
}

// get returns the first present column among names, or "".
func (t *table) get(row []string, names ...string) string {
	for _, n := range names {
		if i, ok := t.cols[n]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
	}
	return ""
}

func (t *table) int(line int, row []string, names ...string) (int, error) {
	v := t.get(row, names...)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s line %d: %s %q", ErrMalformed, t.name, line, names[0], v)
	}
	return n, nil
}

func (t *table) float(line int, row []string, names ...string) (float64, error) {
	v := t.get(row, names...)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s line %d: %s %q", ErrMalformed, t.name, line, names[0], v)
	}
	return f, nil
}

func openRead[T any](path string, read func(io.Reader, string) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return read(f, path)
}

// ReadProbabilities parses week,home_team,away_team,home_win_prob,away_win_prob.
func ReadProbabilities(r io.Reader, name string) ([]model.ProbabilityRow, error) {
	t, err := readTable(name, r, "week", "home_team", "away_team", "home_win_prob", "away_win_prob")
	if err != nil {
		return nil, err
	}
	out := make([]model.ProbabilityRow, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		week, err := t.int(line, row, "week")
		if err != nil {
			return nil, err
		}
		home, err := t.float(line, row, "home_win_prob")
		if err != nil {
			return nil, err
		}
		away, err := t.float(line, row, "away_win_prob")
		if err != nil {
			return nil, err
		}
		out = append(out, model.ProbabilityRow{
			Week:        week,
			Home:        t.get(row, "home_team"),
			Away:        t.get(row, "away_team"),
			HomeWinProb: home,
			AwayWinProb: away,
		})
	}
	return out, nil
}

// LoadProbabilities reads a probability table file.
func LoadProbabilities(path string) ([]model.ProbabilityRow, error) {
	return openRead(path, ReadProbabilities)
}

// WriteProbabilities writes rows with three decimal probabilities.
func WriteProbabilities(w io.Writer, rows []model.ProbabilityRow) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"week", "home_team", "away_team", "home_win_prob", "away_win_prob"})
	for _, r := range rows {
		_ = cw.Write([]string{
			strconv.Itoa(r.Week), r.Home, r.Away,
			strconv.FormatFloat(r.HomeWinProb, 'f', -1, 64),
			strconv.FormatFloat(r.AwayWinProb, 'f', -1, 64),
		})
	}
	cw.Flush()
	return cw.Error()
}

// SaveProbabilities writes a probability table file.
func SaveProbabilities(path string, rows []model.ProbabilityRow) error {
	return createWrite(path, func(w io.Writer) error { return WriteProbabilities(w, rows) })
}

// ReadSchedule parses week,home_team,away_team.
func ReadSchedule(r io.Reader, name string) ([]model.Game, error) {
	t, err := readTable(name, r, "week", "home_team", "away_team")
	if err != nil {
		return nil, err
	}
	out := make([]model.Game, 0, len(t.rows))
	for i, row := range t.rows {
		week, err := t.int(i+2, row, "week")
		if err != nil {
			return nil, err
		}
		out = append(out, model.Game{Week: week, Home: t.get(row, "home_team"), Away: t.get(row, "away_team")})
	}
	return out, nil
}

// LoadSchedule reads a schedule file.
func LoadSchedule(path string) ([]model.Game, error) { return openRead(path, ReadSchedule) }

// ReadTeams parses team strengths. Required columns are abbreviation and
// projected_wins; team (full name), division, current_wins and
// games_played are optional.
func ReadTeams(r io.Reader, name string) ([]model.Team, error) {
	t, err := readTable(name, r, "abbreviation", "projected_wins")
	if err != nil {
		return nil, err
	}
	out := make([]model.Team, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		projected, err := t.float(line, row, "projected_wins")
		if err != nil {
			return nil, err
		}
		team := model.Team{
			Code:          t.get(row, "abbreviation"),
			Name:          t.get(row, "team", "name"),
			Division:      t.get(row, "division"),
			ProjectedWins: projected,
		}
		if t.get(row, "current_wins") != "" {
			if team.CurrentWins, err = t.float(line, row, "current_wins"); err != nil {
				return nil, err
			}
		}
		if t.get(row, "games_played") != "" {
			if team.Played, err = t.int(line, row, "games_played"); err != nil {
				return nil, err
			}
		}
		out = append(out, team)
	}
	return out, nil
}

// LoadTeams reads a team strength file.
func LoadTeams(path string) ([]model.Team, error) { return openRead(path, ReadTeams) }

// WriteTeams writes teams in the column order ReadTeams accepts.
func WriteTeams(w io.Writer, teams []model.Team) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"abbreviation", "team", "division", "projected_wins", "current_wins", "games_played"})
	for _, t := range teams {
		_ = cw.Write([]string{
			t.Code, t.Name, t.Division,
			strconv.FormatFloat(t.ProjectedWins, 'f', -1, 64),
			strconv.FormatFloat(t.CurrentWins, 'f', -1, 64),
			strconv.Itoa(t.Played),
		})
	}
	cw.Flush()
	return cw.Error()
}

// SaveTeams writes a team strength file.
func SaveTeams(path string, teams []model.Team) error {
	return createWrite(path, func(w io.Writer) error { return WriteTeams(w, teams) })
}

// ReadResults parses week,winner,winner_score,loser,loser_score[,draw].
func ReadResults(r io.Reader, name string) ([]model.GameResult, error) {
	t, err := readTable(name, r, "week", "winner", "winner_score", "loser", "loser_score")
	if err != nil {
		return nil, err
	}
	out := make([]model.GameResult, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		week, err := t.int(line, row, "week")
		if err != nil {
			return nil, err
		}
		ws, err := t.int(line, row, "winner_score")
		if err != nil {
			return nil, err
		}
		ls, err := t.int(line, row, "loser_score")
		if err != nil {
			return nil, err
		}
		draw, _ := strconv.ParseBool(t.get(row, "draw"))
		out = append(out, model.GameResult{
			Week:        week,
			Winner:      t.get(row, "winner"),
			WinnerScore: ws,
			Loser:       t.get(row, "loser"),
			LoserScore:  ls,
			Draw:        draw || (ws == ls && t.get(row, "draw") == ""),
		})
	}
	return out, nil
}

// LoadResults reads a game results file.
func LoadResults(path string) ([]model.GameResult, error) { return openRead(path, ReadResults) }

// WriteResults writes results in the column order ReadResults accepts.
func WriteResults(w io.Writer, results []model.GameResult) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"week", "winner", "winner_score", "loser", "loser_score", "draw"})
	for _, r := range results {
		_ = cw.Write([]string{
			strconv.Itoa(r.Week), r.Winner, strconv.Itoa(r.WinnerScore),
			r.Loser, strconv.Itoa(r.LoserScore), strconv.FormatBool(r.Draw),
		})
	}
	cw.Flush()
	return cw.Error()
}

// SaveResults writes a game results file.
func SaveResults(path string, results []model.GameResult) error {
	return createWrite(path, func(w io.Writer) error { return WriteResults(w, results) })
}

// WritePicks writes week,pick,opponent,win_prob.
func WritePicks(w io.Writer, picks []model.Pick) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"week", "pick", "opponent", "win_prob"})
	for _, p := range picks {
		_ = cw.Write([]string{
			strconv.Itoa(p.Week), p.Competitor, p.Opponent,
			strconv.FormatFloat(p.WinProb, 'f', -1, 64),
		})
	}
	cw.Flush()
	return cw.Error()
}

func createWrite(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
