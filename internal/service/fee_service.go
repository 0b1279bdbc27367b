package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/fees"
	"github.com/noah-isme/sma-fees-api/internal/models"
	"github.com/noah-isme/sma-fees-api/internal/repository"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

const (
	summaryCachePattern = "fees:summary:*"
	defaultBatchSize    = 50
)

type feeStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListActive(ctx context.Context) ([]models.Student, error)
	ListClassLabels(ctx context.Context) ([]string, error)
}

type tuitionReader interface {
	FindByClass(ctx context.Context, classLabel string, year int, term models.Term) (*models.FeeSchedule, error)
	ListClassLabels(ctx context.Context, year int, term models.Term) ([]string, error)
}

type activePriceLister interface {
	ListActiveByKey(ctx context.Context, key string) ([]models.ExtraPrice, error)
}

type periodAdjustmentLister interface {
	List(ctx context.Context, studentID string, year int, term models.Term) ([]models.Adjustment, error)
}

type feePaymentRepository interface {
	CreateWithCharges(ctx context.Context, payment *models.Payment, charges []models.ChargeEvent) error
	SumNonVoided(ctx context.Context, studentID string, year int, term models.Term, upTo *time.Time) (decimal.Decimal, error)
	ListByStudent(ctx context.Context, studentID string, year *int, term *models.Term) ([]models.Payment, error)
	FindByReceipt(ctx context.Context, receiptNo string) (*models.Payment, error)
	ListEdits(ctx context.Context, paymentID string) ([]models.PaymentEdit, error)
	DailyTotals(ctx context.Context, from, to time.Time) ([]models.MethodTotal, error)
	DailyDetails(ctx context.Context, from, to time.Time, method *models.PaymentMethod) ([]models.PaymentWithStudent, error)
	TermTotals(ctx context.Context, year int, term models.Term) (models.PaymentTotals, error)
}

type chargeHistoryReader interface {
	ChargedOnceKeys(ctx context.Context, studentID string, year int, term models.Term) ([]string, error)
	ChargedInYearKeys(ctx context.Context, studentID string, year int, term models.Term) ([]string, error)
	ChargedInPeriodKeys(ctx context.Context, studentID string, year int, term models.Term) ([]string, error)
}

type receiptMinter interface {
	Allocate(ctx context.Context, paidAt time.Time) (string, error)
}

type summaryCache interface {
	Remember(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func(context.Context) (interface{}, error)) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// FeeServiceConfig carries the tunables of the fee engine.
type FeeServiceConfig struct {
	Location                     *time.Location
	AssumePromotionIfMissingPrev bool
	SummaryBatchSize             int
	SummaryCacheTTL              time.Duration
	Currency                     string
	School                       dto.SchoolHeader
	Rules                        []fees.Rule
}

// FeeService records payments and produces statements and collection reports.
type FeeService struct {
	students    feeStudentReader
	tuition     tuitionReader
	prices      activePriceLister
	adjustments periodAdjustmentLister
	payments    feePaymentRepository
	history     chargeHistoryReader
	receipts    receiptMinter
	cache       summaryCache
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         FeeServiceConfig
	calc        *fees.Calculator
	now         func() time.Time
}

// NewFeeService constructs FeeService.
func NewFeeService(
	students feeStudentReader,
	tuition tuitionReader,
	prices activePriceLister,
	adjustments periodAdjustmentLister,
	payments feePaymentRepository,
	history chargeHistoryReader,
	receipts receiptMinter,
	cache summaryCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg FeeServiceConfig,
) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SummaryBatchSize <= 0 {
		cfg.SummaryBatchSize = defaultBatchSize
	}
	return &FeeService{
		students:    students,
		tuition:     tuition,
		prices:      prices,
		adjustments: adjustments,
		payments:    payments,
		history:     history,
		receipts:    receipts,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		calc:        fees.NewCalculator(cfg.Rules),
		now:         time.Now,
	}
}

type ledgerInput struct {
	student       *models.Student
	year          int
	term          models.Term
	previousClass string
	demand        []string
	upTo          *time.Time
}

type ledgerResult struct {
	class       string
	ledger      fees.Ledger
	adjustments []models.Adjustment
}

// RecordPayment stores a payment with a fresh receipt number and returns the
// updated ledger. Extras billed by the computation are recorded as charge
// events in the same transaction as the payment.
func (s *FeeService) RecordPayment(ctx context.Context, req dto.RecordPaymentRequest, actor string) (*dto.PaymentReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	amount, err := fees.ParseAmount(req.AmountPaid, false)
	if err != nil || !amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "amountPaid must be a positive number")
	}
	method, ok := normalizeMethod(req.PaymentMethod)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported payment method %q", req.PaymentMethod))
	}
	category, err := normalizeCategory(req.Category)
	if err != nil {
		return nil, err
	}
	term := models.Term(req.Term)

	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	paidAt, err := fees.ParsePaidDate(strings.TrimSpace(req.DatePaid), s.now(), s.cfg.Location)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "datePaid must be YYYY-MM-DD or RFC 3339")
	}

	res, err := s.computeLedger(ctx, ledgerInput{
		student:       student,
		year:          req.Year,
		term:          term,
		previousClass: req.PreviousClass,
		demand:        req.Demand,
	})
	if err != nil {
		return nil, err
	}

	receiptNo, err := s.receipts.Allocate(ctx, paidAt)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		StudentID:  student.ID,
		ReceiptNo:  receiptNo,
		Amount:     amount,
		Method:     method,
		DatePaid:   paidAt.UTC(),
		Year:       req.Year,
		Term:       term,
		Category:   category,
		RecordedBy: actor,
	}
	charges := make([]models.ChargeEvent, 0, len(res.ledger.Due.Extras))
	for _, item := range res.ledger.Due.Extras {
		charges = append(charges, models.ChargeEvent{
			StudentID: student.ID,
			Key:       item.Key,
			Year:      req.Year,
			Term:      term,
			Amount:    item.Amount,
		})
	}

	if err := s.payments.CreateWithCharges(ctx, payment, charges); err != nil {
		if errors.Is(err, repository.ErrDuplicateReceipt) {
			s.metrics.ReceiptDuplicate()
			s.logger.Error("receipt number collision", zap.String("receipt_no", receiptNo), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateReceiptNumber.Code, appErrors.ErrDuplicateReceiptNumber.Status, appErrors.ErrDuplicateReceiptNumber.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.metrics.PaymentRecorded(string(method), amount.InexactFloat64())
	s.invalidateSummaries(ctx)

	after := fees.Reconcile(res.ledger.Due, res.adjustments, res.ledger.TotalPaid.Add(amount))
	res.ledger = after

	s.logger.Info("payment recorded",
		zap.String("receipt_no", receiptNo),
		zap.String("student_id", student.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("method", string(method)),
		zap.String("recorded_by", actor))

	return &dto.PaymentReceipt{
		Payment:   *payment,
		AppliedTo: appliedToLabel(category),
		Statement: s.toStatement(student, req.Year, term, res, nil),
		School:    s.cfg.School,
	}, nil
}

// Statement computes the current ledger of one learner for a period.
func (s *FeeService) Statement(ctx context.Context, q dto.StatementQuery) (*dto.Statement, error) {
	if q.Year <= 0 || !q.Term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year and term are required")
	}
	student, err := s.loadStudent(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}
	res, err := s.computeLedger(ctx, ledgerInput{
		student:       student,
		year:          q.Year,
		term:          q.Term,
		previousClass: q.PreviousClass,
		demand:        q.Demand,
	})
	if err != nil {
		return nil, err
	}
	statement := s.toStatement(student, q.Year, q.Term, res, nil)
	return &statement, nil
}

// ReceiptStatement reconstructs the ledger as it stood when a receipt was
// issued: only payments dated on or before it count.
func (s *FeeService) ReceiptStatement(ctx context.Context, receiptNo string) (*dto.PaymentReceipt, error) {
	payment, err := s.payments.FindByReceipt(ctx, strings.TrimSpace(receiptNo))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receipt")
	}
	student, err := s.loadStudent(ctx, payment.StudentID)
	if err != nil {
		return nil, err
	}
	edits, err := s.payments.ListEdits(ctx, payment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment edits")
	}
	payment.Edits = edits

	asOf := payment.DatePaid
	res, err := s.computeLedger(ctx, ledgerInput{
		student: student,
		year:    payment.Year,
		term:    payment.Term,
		upTo:    &asOf,
	})
	if err != nil {
		return nil, err
	}

	return &dto.PaymentReceipt{
		Payment:   *payment,
		AppliedTo: appliedToLabel(payment.Category),
		Statement: s.toStatement(student, payment.Year, payment.Term, res, &asOf),
		School:    s.cfg.School,
	}, nil
}

// ListPayments returns a learner's payments with the non-voided total.
func (s *FeeService) ListPayments(ctx context.Context, studentID string, year *int, term *models.Term) (*dto.StudentPayments, error) {
	if term != nil && !term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid term")
	}
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByStudent(ctx, studentID, year, term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	total := decimal.Zero
	for _, p := range payments {
		if !p.IsVoided {
			total = total.Add(p.Amount)
		}
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return &dto.StudentPayments{StudentID: studentID, Payments: payments, Total: fees.Round(total), Count: len(payments)}, nil
}

// TermSummary returns the collection summary for a period, from cache when
// possible. The boolean reports a cache hit.
func (s *FeeService) TermSummary(ctx context.Context, year int, term models.Term) (*dto.TermSummary, bool, error) {
	if year <= 0 || !term.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "year and term are required")
	}
	if s.cache == nil {
		summary, err := s.buildTermSummary(ctx, year, term)
		return summary, false, err
	}
	var summary dto.TermSummary
	hit, err := s.cache.Remember(ctx, summaryCacheKey(year, term), &summary, s.cfg.SummaryCacheTTL,
		func(ctx context.Context) (interface{}, error) {
			return s.buildTermSummary(ctx, year, term)
		})
	if err != nil {
		return nil, false, err
	}
	return &summary, hit, nil
}

// RefreshTermSummary recomputes the summary and stores it in the cache.
func (s *FeeService) RefreshTermSummary(ctx context.Context, year int, term models.Term) (*dto.TermSummary, error) {
	summary, err := s.buildTermSummary(ctx, year, term)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, summaryCacheKey(year, term), summary, s.cfg.SummaryCacheTTL)
	}
	return summary, nil
}

// buildTermSummary walks active learners in fixed-size batches, waiting for
// each batch before starting the next. Learners whose class has no tuition row
// are counted and skipped; any other failure aborts the summary.
func (s *FeeService) buildTermSummary(ctx context.Context, year int, term models.Term) (*dto.TermSummary, error) {
	started := time.Now()
	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	var (
		mu          sync.Mutex
		expected    = decimal.Zero
		outstanding = decimal.Zero
		overpaid    = decimal.Zero
		missing     int
	)

	batch := s.cfg.SummaryBatchSize
	for from := 0; from < len(students); from += batch {
		to := from + batch
		if to > len(students) {
			to = len(students)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := from; i < to; i++ {
			student := &students[i]
			g.Go(func() error {
				res, err := s.computeLedger(gctx, ledgerInput{student: student, year: year, term: term})
				if err != nil {
					if appErrors.Is(err, appErrors.ErrMissingTuitionRow) {
						mu.Lock()
						missing++
						mu.Unlock()
						return nil
					}
					return fmt.Errorf("student %s: %w", student.ID, err)
				}
				mu.Lock()
				expected = expected.Add(res.ledger.TotalDue)
				outstanding = outstanding.Add(res.ledger.Balance)
				overpaid = overpaid.Add(res.ledger.Overpayment)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute term summary")
		}
	}

	totals, err := s.payments.TermTotals(ctx, year, term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total payments")
	}

	summary := &dto.TermSummary{
		Year:             year,
		Term:             term,
		Students:         len(students),
		TotalExpected:    fees.Round(expected),
		TotalReceived:    fees.Round(totals.Total),
		TotalOutstanding: fees.Round(outstanding),
		TotalOverpaid:    fees.Round(overpaid),
		ReceiptsCount:    totals.Count,
		CollectionRate:   fees.CollectionRate(expected, totals.Total),
		MissingFeeRows:   missing,
		Currency:         s.cfg.Currency,
		School:           s.cfg.School,
		GeneratedAt:      s.now().UTC(),
	}
	if missing > 0 {
		summary.Note = fmt.Sprintf("%d students missing fee rows", missing)
	}

	s.metrics.ObserveTermSummary(time.Since(started))
	s.logger.Info("term summary computed",
		zap.Int("year", year),
		zap.String("term", string(term)),
		zap.Int("students", len(students)),
		zap.Int("missing_fee_rows", missing),
		zap.Duration("took", time.Since(started)))
	return summary, nil
}

// DailyCollections totals one local day's payments per method. An empty date
// means today in the institution zone.
func (s *FeeService) DailyCollections(ctx context.Context, date string) (*dto.DailyCollections, error) {
	date, from, to, err := s.dayRange(date)
	if err != nil {
		return nil, err
	}
	rows, err := s.payments.DailyTotals(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total daily payments")
	}

	out := &dto.DailyCollections{Date: date, ByMethod: make([]dto.MethodTotal, 0, len(rows)), GrandTotal: decimal.Zero, Currency: s.cfg.Currency}
	for _, row := range rows {
		out.ByMethod = append(out.ByMethod, dto.MethodTotal{Method: row.Method, Total: fees.Round(row.Total), Count: row.Count})
		out.GrandTotal = out.GrandTotal.Add(row.Total)
		out.Count += row.Count
	}
	out.GrandTotal = fees.Round(out.GrandTotal)
	return out, nil
}

// DailyDetails lists one local day's payments, optionally for a single method.
func (s *FeeService) DailyDetails(ctx context.Context, date, method string) (*dto.DailyDetails, error) {
	date, from, to, err := s.dayRange(date)
	if err != nil {
		return nil, err
	}
	var filter *models.PaymentMethod
	if strings.TrimSpace(method) != "" {
		m, ok := normalizeMethod(method)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported payment method %q", method))
		}
		filter = &m
	}

	rows, err := s.payments.DailyDetails(ctx, from, to, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list daily payments")
	}

	out := &dto.DailyDetails{Date: date, Payments: make([]dto.DailyPaymentLine, 0, len(rows)), Total: decimal.Zero}
	if filter != nil {
		out.Method = string(*filter)
	}
	for _, row := range rows {
		out.Payments = append(out.Payments, dto.DailyPaymentLine{
			PaymentID:     row.ID,
			ReceiptNo:     row.ReceiptNo,
			StudentID:     row.StudentID,
			StudentName:   strings.TrimSpace(row.FirstName + " " + row.SecondName),
			Class:         row.ClassLabel,
			AmountPaid:    row.Amount,
			PaymentMethod: row.Method,
			Category:      row.Category,
			DatePaid:      row.DatePaid,
			RecordedBy:    row.RecordedBy,
		})
		out.Total = out.Total.Add(row.Amount)
	}
	out.Total = fees.Round(out.Total)
	return out, nil
}

// MissingClasses compares the class labels of active learners with the classes
// that have a tuition row for the period.
func (s *FeeService) MissingClasses(ctx context.Context, year int, term models.Term) (*dto.MissingClasses, error) {
	if year <= 0 || !term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year and term are required")
	}
	studentLabels, err := s.students.ListClassLabels(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student classes")
	}
	feeLabels, err := s.tuition.ListClassLabels(ctx, year, term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee classes")
	}

	priced := make(map[string]bool, len(feeLabels))
	for _, l := range feeLabels {
		priced[strings.ToLower(l)] = true
	}

	out := &dto.MissingClasses{
		Year:           year,
		Term:           term,
		StudentClasses: make([]dto.ClassMapping, 0, len(studentLabels)),
		FeeClasses:     feeLabels,
		Missing:        []string{},
	}
	if out.FeeClasses == nil {
		out.FeeClasses = []string{}
	}
	seen := make(map[string]bool)
	for _, raw := range studentLabels {
		normalized := fees.NormalizeGradeLabel(raw)
		has := priced[strings.ToLower(raw)] || priced[strings.ToLower(normalized)]
		out.StudentClasses = append(out.StudentClasses, dto.ClassMapping{Raw: raw, Normalized: normalized, HasFeeRow: has})
		if !has && !seen[normalized] {
			seen[normalized] = true
			out.Missing = append(out.Missing, normalized)
		}
	}
	return out, nil
}

// InvalidateSummaries drops cached term summaries after a ledger change.
func (s *FeeService) InvalidateSummaries(ctx context.Context) {
	s.invalidateSummaries(ctx)
}

func (s *FeeService) invalidateSummaries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, summaryCachePattern)
}

func (s *FeeService) computeLedger(ctx context.Context, in ledgerInput) (*ledgerResult, error) {
	student := in.student
	class := fees.NormalizeGradeLabel(student.ClassLabel)

	tuition, err := s.findTuition(ctx, student.ClassLabel, class, in.year, in.term)
	if err != nil {
		return nil, err
	}

	ec, err := s.enrollmentContext(ctx, in, class)
	if err != nil {
		return nil, err
	}

	due, err := s.calc.ComputeDue(tuition, ec, s.pricer(ctx, class, in.year, in.term))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to price extras")
	}
	for _, key := range due.InferredPromotions {
		s.metrics.InferredPromotion(key)
		s.logger.Info("charge applied by assumed promotion",
			zap.String("student_id", student.ID),
			zap.String("class", class),
			zap.String("key", key),
			zap.Int("year", in.year),
			zap.String("term", string(in.term)))
	}

	adjustments, err := s.adjustments.List(ctx, student.ID, in.year, in.term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load adjustments")
	}
	paid, err := s.payments.SumNonVoided(ctx, student.ID, in.year, in.term, in.upTo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total payments")
	}

	return &ledgerResult{
		class:       class,
		ledger:      fees.Reconcile(due, adjustments, paid),
		adjustments: adjustments,
	}, nil
}

// findTuition tries the raw class label first and then its normalised form.
func (s *FeeService) findTuition(ctx context.Context, raw, normalized string, year int, term models.Term) (*models.FeeSchedule, error) {
	row, err := s.tuition.FindByClass(ctx, strings.TrimSpace(raw), year, term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class fee")
	}
	if row == nil && !strings.EqualFold(strings.TrimSpace(raw), normalized) {
		row, err = s.tuition.FindByClass(ctx, normalized, year, term)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class fee")
		}
	}
	if row == nil {
		s.metrics.MissingTuitionRow()
		msg := fmt.Sprintf("no class fee set for %s in %s %d", normalized, term, year)
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrMissingTuitionRow, msg), map[string]interface{}{
			"wanted":     raw,
			"normalized": normalized,
			"year":       year,
			"term":       term,
		})
	}
	return row, nil
}

func (s *FeeService) enrollmentContext(ctx context.Context, in ledgerInput, class string) (fees.EnrollmentContext, error) {
	studentID := in.student.ID
	once, err := s.history.ChargedOnceKeys(ctx, studentID, in.year, in.term)
	if err != nil {
		return fees.EnrollmentContext{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load charge history")
	}
	thisYear, err := s.history.ChargedInYearKeys(ctx, studentID, in.year, in.term)
	if err != nil {
		return fees.EnrollmentContext{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load charge history")
	}
	billed, err := s.history.ChargedInPeriodKeys(ctx, studentID, in.year, in.term)
	if err != nil {
		return fees.EnrollmentContext{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load charge history")
	}

	previous := ""
	if strings.TrimSpace(in.previousClass) != "" {
		previous = fees.NormalizeGradeLabel(in.previousClass)
	}

	return fees.EnrollmentContext{
		CurrentClass:                 class,
		PreviousClass:                previous,
		Term:                         in.term,
		IsAdmissionTerm:              in.student.IsAdmissionTerm(in.year, in.term),
		AssumePromotionIfMissingPrev: s.cfg.AssumePromotionIfMissingPrev,
		ChargedOnce:                  fees.NewKeySet(once...),
		ChargedThisYear:              fees.NewKeySet(thisYear...),
		Requested:                    fees.NewKeySet(in.demand...),
		BilledThisPeriod:             fees.NewKeySet(billed...),
	}, nil
}

func (s *FeeService) pricer(ctx context.Context, class string, year int, term models.Term) fees.Pricer {
	return fees.PricerFunc(func(key string) (fees.Resolution, error) {
		rows, err := s.prices.ListActiveByKey(ctx, key)
		if err != nil {
			return fees.Resolution{}, err
		}
		res := fees.Resolve(key, class, year, term, rows)
		if res.Ambiguous {
			s.metrics.PriceAmbiguity(key)
			s.logger.Warn("several extra price rows share the winning scope",
				zap.String("key", key),
				zap.String("class", class),
				zap.Int("year", year),
				zap.String("term", string(term)),
				zap.String("chosen_id", res.Row.ID))
		}
		return res, nil
	})
}

func (s *FeeService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *FeeService) dayRange(date string) (string, time.Time, time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.now().In(s.cfg.Location).Format("2006-01-02")
	}
	from, to, err := fees.DayBounds(date, s.cfg.Location)
	if err != nil {
		return "", time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	return date, from, to, nil
}

func (s *FeeService) toStatement(student *models.Student, year int, term models.Term, res *ledgerResult, asOf *time.Time) dto.Statement {
	l := res.ledger
	extras := l.Due.Extras
	if extras == nil {
		extras = []fees.ExtraItem{}
	}
	adjustments := res.adjustments
	if adjustments == nil {
		adjustments = []models.Adjustment{}
	}
	return dto.Statement{
		StudentID:   student.ID,
		StudentName: student.FullName(),
		Class:       res.class,
		Year:        year,
		Term:        term,
		Tuition:     l.Due.Tuition,
		Extras:      extras,
		ExtrasTotal: l.Due.ExtrasTotal,
		Adjustments: dto.AdjustmentsSummary{Total: l.AdjustmentsTotal, Items: adjustments},
		Total:       l.TotalDue,
		TotalPaid:   l.TotalPaid,
		Balance:     l.Balance,
		Overpayment: l.Overpayment,
		Currency:    s.cfg.Currency,
		AsOf:        asOf,
	}
}

func summaryCacheKey(year int, term models.Term) string {
	return fmt.Sprintf("fees:summary:%d:%s", year, term)
}

// normalizeMethod maps loosely typed payment methods onto the accepted set.
func normalizeMethod(raw string) (models.PaymentMethod, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	v = strings.Join(strings.Fields(v), " ")
	switch v {
	case "CASH":
		return models.PaymentCash, true
	case "M-PESA", "MPESA", "M PESA":
		return models.PaymentMPesa, true
	case "PAYBILL", "PAY BILL":
		return models.PaymentPaybill, true
	case "TILL", "BUY GOODS":
		return models.PaymentTill, true
	case "TOWER SACCO", "TOWER", "SACCO":
		return models.PaymentTowerSacco, true
	}
	return "", false
}

// normalizeCategory accepts FEES, EXTRAS or EXTRA:<KEY>; blank means FEES.
func normalizeCategory(raw string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case v == "":
		return models.DefaultPaymentCategory, nil
	case v == models.DefaultPaymentCategory, v == "EXTRAS":
		return v, nil
	case strings.HasPrefix(v, "EXTRA:") && len(v) > len("EXTRA:"):
		return v, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported category %q", raw))
}

func appliedToLabel(category string) string {
	switch {
	case category == "" || category == models.DefaultPaymentCategory:
		return "School fees"
	case category == "EXTRAS":
		return "Extras"
	case strings.HasPrefix(category, "EXTRA:"):
		return fees.Label(strings.TrimPrefix(category, "EXTRA:"))
	}
	return category
}
