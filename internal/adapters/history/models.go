package history

import (
	"time"
)

// Run is one stored recommendation.
type Run struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
	FirstWeek    int       `json:"first_week"`
	LastWeek     int       `json:"last_week"`
	Engine       string    `json:"engine"`
	BestScore    float64   `json:"best_score"`
	BestLogScore float64   `json:"best_log_score"`
	Trials       int64     `json:"trials"`
	Completed    int64     `json:"completed"`
	Pruned       int64     `json:"pruned"`
	Dead         int64     `json:"dead"`
	Finalists    int       `json:"finalists"`
	Truncated    bool      `json:"truncated"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	Report       string    `json:"report"`
	OutputDir    string    `json:"output_dir,omitempty"`
	Picks        []RunPick `json:"picks,omitempty" gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// RunPick is one row of a stored pick sequence.
type RunPick struct {
	ID         uint    `json:"-" gorm:"primaryKey"`
	RunID      string  `json:"-" gorm:"index;size:36"`
	Position   int     `json:"-"`
	Week       int     `json:"week"`
	Competitor string  `json:"competitor"`
	Opponent   string  `json:"opponent"`
	WinProb    float64 `json:"win_prob"`
	Locked     bool    `json:"locked"`
}
