package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/survivor/internal/domain/model"
)

// Run is what one recommendation leaves on disk.
type Run struct {
	// SecondChance selects the second_chance tree instead of first_chance.
	SecondChance bool
	// Week is the first searched week.
	Week   int
	Score  float64
	Picks  []model.Pick
	Report string
}

// RunDir returns <root>/<first|second>_chance/week<N>/<score digits>.
func RunDir(root string, run Run) string {
	entry := "first_chance"
	if run.SecondChance {
		entry = "second_chance"
	}
	return filepath.Join(root, entry, "week"+strconv.Itoa(run.Week), ScoreDigits(run.Score))
}

// ScoreDigits names a run directory after its score: the decimal digits
// with the point removed and the leading zero dropped, at most seven, so
// 0.0123456789 becomes "0123456".
func ScoreDigits(score float64) string {
	s := strings.Replace(strconv.FormatFloat(score, 'f', -1, 64), ".", "", 1)
	if len(s) <= 1 {
		return "0"
	}
	return s[1:min(len(s), 8)]
}

// WriteRun writes picks.csv and weekly_options.txt and returns the directory.
func WriteRun(root string, run Run) (string, error) {
	dir := RunDir(root, run)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	err := createWrite(filepath.Join(dir, "picks.csv"), func(w io.Writer) error {
		return WritePicks(w, run.Picks)
	})
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "weekly_options.txt"), []byte(run.Report), 0o644); err != nil { //nolint:gosec // report is not secret
		return "", fmt.Errorf("write report: %w", err)
	}
	return dir, nil
}
