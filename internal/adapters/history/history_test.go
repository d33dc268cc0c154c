package history

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/survivor/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithWriter(io.Discard))
	m.Run()
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(week int, at time.Time) *Run {
	return &Run{
		CreatedAt: at,
		FirstWeek: week,
		LastWeek:  18,
		Engine:    "randomized",
		BestScore: 0.0123,
		Trials:    1000,
		Completed: 400,
		Finalists: 100,
		Report:    "Top 100 Paths",
		Picks: []RunPick{
			{Week: week - 1, Competitor: "GB", Opponent: "CIN", WinProb: 1, Locked: true},
			{Week: week, Competitor: "KC", Opponent: "LV", WinProb: 0.8},
			{Week: week + 1, Competitor: "BUF", Opponent: "NE", WinProb: 0.7},
		},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	run := sampleRun(7, time.Now())
	require.NoError(t, s.Save(ctx, run))
	require.NotEmpty(t, run.ID)
	assert.Len(t, run.ID, 36)

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.FirstWeek)
	assert.Equal(t, int64(1000), got.Trials)
	require.Len(t, got.Picks, 3)
	assert.Equal(t, "GB", got.Picks[0].Competitor)
	assert.True(t, got.Picks[0].Locked)
	assert.Equal(t, "BUF", got.Picks[2].Competitor)
}

func TestStore_NotFound(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LatestAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	for i, week := range []int{6, 7, 8} {
		require.NoError(t, s.Save(ctx, sampleRun(week, base.Add(time.Duration(i)*time.Hour))))
	}

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, latest.FirstWeek)
	assert.Len(t, latest.Picks, 3)

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 8, runs[0].FirstWeek)
	assert.Equal(t, 7, runs[1].FirstWeek)
	assert.Empty(t, runs[0].Picks)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_ExplicitID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	run := sampleRun(9, time.Now())
	run.ID = "fixed-id"
	require.NoError(t, s.Save(ctx, run))
	assert.Error(t, s.Save(ctx, sampleRunWithID("fixed-id")), "duplicate primary key")
}

func sampleRunWithID(id string) *Run {
	r := sampleRun(10, time.Now())
	r.ID = id
	return r
}
