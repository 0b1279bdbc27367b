package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/repository"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

// WipeConfirmation must be echoed back before a wipe runs.
const WipeConfirmation = "NUKE"

// Wipe scopes.
const (
	WipeScopePayments    = "payments"
	WipeScopeAdjustments = "adjustments"
	WipeScopeAll         = "all"
)

var wipeScopes = map[string][]repository.WipeTarget{
	WipeScopePayments:    {repository.WipePaymentEdits, repository.WipeChargeEvents, repository.WipePayments},
	WipeScopeAdjustments: {repository.WipeAdjustments},
	WipeScopeAll:         {repository.WipePaymentEdits, repository.WipeChargeEvents, repository.WipePayments, repository.WipeAdjustments},
}

type maintenanceRepository interface {
	Count(ctx context.Context, targets []repository.WipeTarget) (map[repository.WipeTarget]int64, error)
	Wipe(ctx context.Context, targets []repository.WipeTarget) (map[repository.WipeTarget]int64, error)
}

// MaintenanceService runs administrative ledger resets.
type MaintenanceService struct {
	repo   maintenanceRepository
	cache  summaryInvalidator
	logger *zap.Logger
}

// NewMaintenanceService constructs MaintenanceService.
func NewMaintenanceService(repo maintenanceRepository, cache summaryInvalidator, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{repo: repo, cache: cache, logger: logger}
}

// Wipe clears the tables of a scope in one transaction, or only counts them on
// a dry run. Receipt counters are never cleared.
func (s *MaintenanceService) Wipe(ctx context.Context, req dto.WipeRequest, actor string) (*dto.WipeResult, error) {
	if req.Confirm != WipeConfirmation {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "confirm=NUKE is required")
	}
	scope := strings.ToLower(strings.TrimSpace(req.Scope))
	if scope == "" {
		scope = WipeScopeAll
	}
	targets, ok := wipeScopes[scope]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scope must be payments, adjustments or all")
	}

	var (
		counts map[repository.WipeTarget]int64
		err    error
	)
	if req.DryRun {
		counts, err = s.repo.Count(ctx, targets)
	} else {
		counts, err = s.repo.Wipe(ctx, targets)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to wipe ledger")
	}

	result := &dto.WipeResult{Scope: scope, DryRun: req.DryRun, Counts: make(map[string]int64, len(counts))}
	for target, n := range counts {
		result.Counts[string(target)] = n
	}

	if !req.DryRun {
		if s.cache != nil {
			_ = s.cache.Invalidate(ctx, summaryCachePattern)
		}
		s.logger.Warn("ledger wiped", zap.String("scope", scope), zap.String("actor", actor), zap.Any("counts", result.Counts))
	}
	return result, nil
}
