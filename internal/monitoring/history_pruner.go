package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// historyPruneStore is the slice of the history service the pruner needs.
type historyPruneStore interface {
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// HistoryPruner deletes weather-history records older than the retention
// window, on a cron schedule.
type HistoryPruner struct {
	history   historyPruneStore
	schedule  cron.Schedule
	retention time.Duration
	nextRun   time.Time
	ticker    *time.Ticker
	done      chan bool
}

// NewHistoryPruner creates a pruner from a standard cron expression and a
// retention window in days.
func NewHistoryPruner(history historyPruneStore, cronExpr string, retentionDays int) (*HistoryPruner, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", cronExpr, err)
	}

	return &HistoryPruner{
		history:   history,
		schedule:  schedule,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		nextRun:   schedule.Next(time.Now()),
		done:      make(chan bool),
	}, nil
}

// Run starts the pruner's ticking loop.
func (p *HistoryPruner) Run() {
	log.Info().Time("next_run", p.nextRun).Msg("Starting history pruner...")
	p.ticker = time.NewTicker(1 * time.Minute)
	defer p.ticker.Stop()

	for {
		select {
		case <-p.done:
			log.Info().Msg("Stopping history pruner.")
			return
		case <-p.ticker.C:
			p.runDue(time.Now())
		}
	}
}

// Stop halts the pruner.
func (p *HistoryPruner) Stop() {
	p.done <- true
}

// runDue prunes if the schedule has come around, then advances it.
func (p *HistoryPruner) runDue(now time.Time) {
	if now.Before(p.nextRun) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	pruned, err := p.history.Prune(ctx, now.Add(-p.retention))
	if err != nil {
		log.Error().Err(err).Msg("History prune failed")
	} else if pruned > 0 {
		log.Info().Int64("records", pruned).Msg("Pruned old weather history")
	}

	p.nextRun = p.schedule.Next(now)
}
