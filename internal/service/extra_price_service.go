package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/fees"
	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

var chargeKeyPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

type extraPriceRepository interface {
	List(ctx context.Context, filter models.ExtraPriceFilter) ([]models.ExtraPrice, error)
	Upsert(ctx context.Context, price *models.ExtraPrice) error
}

// ExtraPriceService maintains the scoped price table for extra charges.
type ExtraPriceService struct {
	repo      extraPriceRepository
	cache     summaryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExtraPriceService constructs ExtraPriceService.
func NewExtraPriceService(repo extraPriceRepository, cache summaryInvalidator, validate *validator.Validate, logger *zap.Logger) *ExtraPriceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtraPriceService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Upsert creates or replaces the price row for a key and scope. The class is
// stored in canonical form, or ALL for a class-wide row.
func (s *ExtraPriceService) Upsert(ctx context.Context, req dto.UpsertExtraPriceRequest) (*models.ExtraPrice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid extra price payload")
	}
	key := strings.ToUpper(strings.TrimSpace(req.Key))
	if !chargeKeyPattern.MatchString(key) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "key may contain only A-Z, 0-9 and underscore")
	}
	amount, err := fees.ParseAmount(req.Amount, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "amount must be a non-negative number")
	}

	class := strings.TrimSpace(req.Class)
	if strings.EqualFold(class, models.AllClasses) {
		class = models.AllClasses
	} else {
		class = fees.NormalizeGradeLabel(class)
	}

	price := &models.ExtraPrice{
		Key:        key,
		ClassLabel: class,
		Year:       req.Year,
		Amount:     amount,
		IsActive:   true,
	}
	if req.Term != nil {
		t := models.Term(*req.Term)
		price.Term = &t
	}
	if req.IsActive != nil {
		price.IsActive = *req.IsActive
	}

	if err := s.repo.Upsert(ctx, price); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save extra price")
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, summaryCachePattern)
	}
	s.logger.Info("extra price saved",
		zap.String("key", key),
		zap.String("class", class),
		zap.String("amount", amount.StringFixed(2)),
		zap.Bool("active", price.IsActive))
	return price, nil
}

// List returns price rows matching filter.
func (s *ExtraPriceService) List(ctx context.Context, filter models.ExtraPriceFilter) ([]models.ExtraPrice, error) {
	if filter.Term != nil && !filter.Term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid term")
	}
	filter.Key = strings.ToUpper(strings.TrimSpace(filter.Key))
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list extra prices")
	}
	if rows == nil {
		rows = []models.ExtraPrice{}
	}
	return rows, nil
}
