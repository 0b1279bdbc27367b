package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/fees"
	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type adjustmentRepository interface {
	Create(ctx context.Context, adj *models.Adjustment) error
	ListFiltered(ctx context.Context, filter models.AdjustmentFilter) ([]models.Adjustment, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AdjustmentService records opening balances and manual corrections.
type AdjustmentService struct {
	repo      adjustmentRepository
	students  studentLookup
	cache     summaryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdjustmentService constructs AdjustmentService.
func NewAdjustmentService(repo adjustmentRepository, students studentLookup, cache summaryInvalidator, validate *validator.Validate, logger *zap.Logger) *AdjustmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdjustmentService{repo: repo, students: students, cache: cache, validator: validate, logger: logger}
}

// Create stores a signed adjustment. Negative amounts are credits.
func (s *AdjustmentService) Create(ctx context.Context, req dto.CreateAdjustmentRequest, actor string) (*models.Adjustment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment payload")
	}
	amount, err := fees.ParseAmount(req.Amount, true)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "amount must be a number")
	}
	if amount.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "amount cannot be zero")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	adj := &models.Adjustment{
		StudentID: req.StudentID,
		Year:      req.Year,
		Term:      models.Term(req.Term),
		Kind:      models.AdjustmentKind(req.Type),
		Amount:    amount,
		Note:      strings.TrimSpace(req.Note),
		CreatedBy: actor,
	}
	if err := s.repo.Create(ctx, adj); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create adjustment")
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, summaryCachePattern)
	}
	s.logger.Info("adjustment recorded",
		zap.String("student_id", adj.StudentID),
		zap.String("type", string(adj.Kind)),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("created_by", actor))
	return adj, nil
}

// List returns adjustments matching filter with their signed total.
func (s *AdjustmentService) List(ctx context.Context, filter models.AdjustmentFilter) (*dto.AdjustmentList, error) {
	if filter.Term != nil && !filter.Term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid term")
	}
	items, err := s.repo.ListFiltered(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list adjustments")
	}
	if items == nil {
		items = []models.Adjustment{}
	}
	return &dto.AdjustmentList{Items: items, Total: fees.SumAdjustments(items)}, nil
}
