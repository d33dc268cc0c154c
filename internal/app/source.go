package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/okian/survivor/internal/adapters/storage"
	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/internal/domain/winprob"
)

// Source supplies the probability table.
type Source func(ctx context.Context) ([]model.ProbabilityRow, error)

// StaticSource always returns rows.
func StaticSource(rows []model.ProbabilityRow) Source {
	return func(context.Context) ([]model.ProbabilityRow, error) { return rows, nil }
}

// FileSource reads the probability table at probabilities. When that file
// does not exist the table is predicted from the schedule and team files.
func FileSource(probabilities, schedulePath, teamsPath string, params winprob.Params) Source {
	return func(ctx context.Context) ([]model.ProbabilityRow, error) {
		rows, err := storage.LoadProbabilities(probabilities)
		if err == nil {
			return rows, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Predict(schedulePath, teamsPath, params)
	}
}

// Predict computes the probability table from a schedule and team strengths.
func Predict(schedulePath, teamsPath string, params winprob.Params) ([]model.ProbabilityRow, error) {
	games, err := storage.LoadSchedule(schedulePath)
	if err != nil {
		return nil, err
	}
	teams, err := storage.LoadTeams(teamsPath)
	if err != nil {
		return nil, err
	}
	m, err := winprob.New(teams, params)
	if err != nil {
		return nil, err
	}
	rows, err := m.Table(games)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", schedulePath, err)
	}
	return rows, nil
}
