package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// HistoryPruner deletes price history recorded before a cutoff
type HistoryPruner interface {
	DeleteHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PrunePriceHistoryJob keeps the price history bounded to a retention window
type PrunePriceHistoryJob struct {
	log       zerolog.Logger
	pruner    HistoryPruner
	retention time.Duration
	now       func() time.Time
}

// NewPrunePriceHistoryJob creates a job deleting history older than retention
func NewPrunePriceHistoryJob(pruner HistoryPruner, retention time.Duration, log zerolog.Logger) *PrunePriceHistoryJob {
	return &PrunePriceHistoryJob{
		log:       log.With().Str("job", "prune_price_history").Logger(),
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *PrunePriceHistoryJob) Name() string {
	return "prune_price_history"
}

// Run deletes expired history points
func (j *PrunePriceHistoryJob) Run() error {
	if j.retention <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.pruner.DeleteHistoryBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune price history: %w", err)
	}

	j.log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Pruned price history")
	return nil
}
