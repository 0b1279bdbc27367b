package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/fees"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type receiptCounter interface {
	Next(ctx context.Context, dayKey string) (int64, error)
}

// ReceiptAllocator mints receipt numbers from the per-day counter.
type ReceiptAllocator struct {
	counter receiptCounter
	loc     *time.Location
	metrics *MetricsService
	logger  *zap.Logger
}

// NewReceiptAllocator constructs a ReceiptAllocator for the institution zone.
func NewReceiptAllocator(counter receiptCounter, loc *time.Location, metrics *MetricsService, logger *zap.Logger) *ReceiptAllocator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptAllocator{counter: counter, loc: loc, metrics: metrics, logger: logger}
}

// Allocate returns the next receipt number for the local day of paidAt.
func (a *ReceiptAllocator) Allocate(ctx context.Context, paidAt time.Time) (string, error) {
	dayKey := fees.DayKey(paidAt, a.loc)
	seq, err := a.counter.Next(ctx, dayKey)
	if err != nil {
		a.logger.Error("allocate receipt number", zap.String("day", dayKey), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate receipt number")
	}
	a.metrics.ReceiptAllocated()
	return fees.FormatReceipt(dayKey, seq), nil
}
