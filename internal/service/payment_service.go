package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/fees"
	"github.com/noah-isme/sma-fees-api/internal/models"
	"github.com/noah-isme/sma-fees-api/internal/repository"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type paymentMutator interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	ListEdits(ctx context.Context, paymentID string) ([]models.PaymentEdit, error)
	Void(ctx context.Context, id, reason, by string, at time.Time) error
	Update(ctx context.Context, payment *models.Payment, edit *models.PaymentEdit) error
}

type summaryInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// PaymentService voids and edits recorded payments.
type PaymentService struct {
	repo      paymentMutator
	cache     summaryInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(repo paymentMutator, cache summaryInvalidator, metrics *MetricsService, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PaymentService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, loc: loc, now: time.Now}
}

// Void marks a payment voided. A voided payment stays on file and keeps its
// receipt number but no longer counts towards any total.
func (s *PaymentService) Void(ctx context.Context, id string, req dto.VoidPaymentRequest, actor string) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "void reason is required")
	}
	reason := strings.TrimSpace(req.Reason)
	if err := s.repo.Void(ctx, id, reason, actor, s.now().UTC()); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		case errors.Is(err, repository.ErrPaymentVoided):
			return nil, appErrors.ErrAlreadyVoided
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to void payment")
	}

	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	s.metrics.PaymentVoided()
	s.invalidate(ctx)
	s.logger.Info("payment voided",
		zap.String("payment_id", id),
		zap.String("receipt_no", payment.ReceiptNo),
		zap.String("voided_by", actor),
		zap.String("reason", reason))
	return payment, nil
}

// Edit changes amount, method, date or category of a payment and appends a
// snapshot of the changed fields to its audit trail. The receipt number never
// changes, even when the date moves to another day.
func (s *PaymentService) Edit(ctx context.Context, id string, req dto.EditPaymentRequest, actor string) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "edit reason is required")
	}

	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.IsVoided {
		return nil, appErrors.ErrAlreadyVoided
	}

	changes := make(map[string]models.PaymentChange)

	if req.AmountPaid != nil {
		amount, err := fees.ParseAmount(req.AmountPaid, false)
		if err != nil || !amount.IsPositive() {
			return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "amountPaid must be a positive number")
		}
		if !amount.Equal(payment.Amount) {
			changes["amountPaid"] = models.PaymentChange{From: payment.Amount, To: amount}
			payment.Amount = amount
		}
	}

	if req.PaymentMethod != nil {
		method, ok := normalizeMethod(*req.PaymentMethod)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported payment method")
		}
		if method != payment.Method {
			changes["paymentMethod"] = models.PaymentChange{From: payment.Method, To: method}
			payment.Method = method
		}
	}

	if req.DatePaid != nil {
		if strings.TrimSpace(*req.DatePaid) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "datePaid cannot be blank")
		}
		paidAt, err := fees.ParsePaidDate(*req.DatePaid, s.now(), s.loc)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "datePaid must be YYYY-MM-DD or RFC 3339")
		}
		paidAt = paidAt.UTC()
		if !paidAt.Equal(payment.DatePaid) {
			changes["datePaid"] = models.PaymentChange{From: payment.DatePaid, To: paidAt}
			payment.DatePaid = paidAt
		}
	}

	if req.Category != nil {
		category, err := normalizeCategory(*req.Category)
		if err != nil {
			return nil, err
		}
		if category != payment.Category {
			changes["category"] = models.PaymentChange{From: payment.Category, To: category}
			payment.Category = category
		}
	}

	if len(changes) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields changed")
	}

	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode edit")
	}
	edit := &models.PaymentEdit{
		EditedBy: actor,
		Reason:   strings.TrimSpace(req.Reason),
		Changes:  raw,
	}
	if err := s.repo.Update(ctx, payment, edit); err != nil {
		if errors.Is(err, repository.ErrPaymentVoided) {
			return nil, appErrors.ErrAlreadyVoided
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}

	edits, err := s.repo.ListEdits(ctx, payment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment edits")
	}
	payment.Edits = edits

	s.invalidate(ctx)
	s.logger.Info("payment edited",
		zap.String("payment_id", payment.ID),
		zap.String("receipt_no", payment.ReceiptNo),
		zap.String("edited_by", actor),
		zap.Int("fields", len(changes)))
	return payment, nil
}

func (s *PaymentService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, summaryCachePattern)
}
