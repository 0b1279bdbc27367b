package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/models"
	"github.com/noah-isme/sma-fees-api/pkg/jobs"
)

const summaryJobType = "term_summary"

type summaryRefresher interface {
	RefreshTermSummary(ctx context.Context, year int, term models.Term) (*dto.TermSummary, error)
}

// SummaryWarmer recomputes cached term summaries in the background.
type SummaryWarmer struct {
	refresher summaryRefresher
	queue     *jobs.Queue
	logger    *zap.Logger
}

// NewSummaryWarmer builds the warmer and its queue. The queue is not started.
func NewSummaryWarmer(refresher summaryRefresher, cfg jobs.QueueConfig, logger *zap.Logger) *SummaryWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &SummaryWarmer{refresher: refresher, logger: logger}
	cfg.Logger = logger
	w.queue = jobs.NewQueue("summary-warmer", w.handle, cfg)
	return w
}

// Start launches the workers.
func (w *SummaryWarmer) Start(ctx context.Context) { w.queue.Start(ctx) }

// Stop waits for workers to exit.
func (w *SummaryWarmer) Stop() { w.queue.Stop() }

// Enqueue schedules a refresh for the period. A refresh already pending for
// the same period absorbs the request.
func (w *SummaryWarmer) Enqueue(year int, term models.Term) error {
	err := w.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Key:     summaryCacheKey(year, term),
		Type:    summaryJobType,
		Payload: models.Period{Year: year, Term: term},
	})
	if errors.Is(err, jobs.ErrDuplicate) {
		return nil
	}
	return err
}

func (w *SummaryWarmer) handle(ctx context.Context, job jobs.Job) error {
	period, ok := job.Payload.(models.Period)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	if _, err := w.refresher.RefreshTermSummary(ctx, period.Year, period.Term); err != nil {
		return err
	}
	w.logger.Debug("term summary warmed", zap.Int("year", period.Year), zap.String("term", string(period.Term)))
	return nil
}
