// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Warmer rebuilds the leaderboard cache.
type Warmer interface {
	WarmLeaderboard(ctx context.Context) error
}

// LeaderboardRefresh periodically rebuilds the cached leaderboards from the
// ratings stored in the database.
type LeaderboardRefresh struct {
	warmer   Warmer
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron
}

func NewLeaderboardRefresh(warmer Warmer, schedule string, logger *zap.Logger) *LeaderboardRefresh {
	return &LeaderboardRefresh{
		warmer:   warmer,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the refresh. ctx is handed to every run.
func (j *LeaderboardRefresh) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.schedule, func() { j.Run(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule leaderboard refresh: %w", err)
	}
	j.cron.Start()
	j.logger.Info("leaderboard refresh scheduled", zap.String("schedule", j.schedule))
	return nil
}

// Run performs a single refresh.
func (j *LeaderboardRefresh) Run(ctx context.Context) {
	if err := j.warmer.WarmLeaderboard(ctx); err != nil {
		j.logger.Warn("leaderboard refresh failed", zap.Error(err))
		return
	}
	j.logger.Debug("leaderboard refreshed")
}

// Stop waits for a running refresh to finish.
func (j *LeaderboardRefresh) Stop() {
	<-j.cron.Stop().Done()
}
