package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry: HTTP and cache instrumentation
// plus counters for notable fee ledger events.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	paymentsRecorded   *prometheus.CounterVec
	paymentAmount      *prometheus.CounterVec
	paymentsVoided     prometheus.Counter
	receiptsAllocated  prometheus.Counter
	receiptDuplicates  prometheus.Counter
	inferredPromotions *prometheus.CounterVec
	priceAmbiguities   *prometheus.CounterVec
	missingTuitionRows prometheus.Counter
	summaryDuration    prometheus.Observer

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	paymentsRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fees_payments_recorded_total",
		Help: "Payments recorded, by method",
	}, []string{"method"})

	paymentAmount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fees_payment_amount_total",
		Help: "Sum of recorded payment amounts, by method",
	}, []string{"method"})

	paymentsVoided := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fees_payments_voided_total",
		Help: "Payments voided",
	})

	receiptsAllocated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fees_receipts_allocated_total",
		Help: "Receipt numbers handed out",
	})

	receiptDuplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fees_receipt_duplicates_total",
		Help: "Receipt numbers rejected by storage as already issued",
	})

	inferredPromotions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fees_inferred_promotions_total",
		Help: "Extra charges applied by assuming promotion for learners without a previous class",
	}, []string{"key"})

	priceAmbiguities := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fees_price_ambiguity_total",
		Help: "Price resolutions where several rows shared the winning score",
	}, []string{"key"})

	missingTuitionRows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fees_missing_tuition_rows_total",
		Help: "Ledger computations that found no tuition row",
	})

	summaryDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fees_term_summary_seconds",
		Help:    "Time spent computing term summaries",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		paymentsRecorded, paymentAmount, paymentsVoided, receiptsAllocated, receiptDuplicates,
		inferredPromotions, priceAmbiguities, missingTuitionRows, summaryDuration, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		paymentsRecorded:   paymentsRecorded,
		paymentAmount:      paymentAmount,
		paymentsVoided:     paymentsVoided,
		receiptsAllocated:  receiptsAllocated,
		receiptDuplicates:  receiptDuplicates,
		inferredPromotions: inferredPromotions,
		priceAmbiguities:   priceAmbiguities,
		missingTuitionRows: missingTuitionRows,
		summaryDuration:    summaryDuration,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// PaymentRecorded counts a recorded payment and its amount.
func (m *MetricsService) PaymentRecorded(method string, amount float64) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(method).Inc()
	m.paymentAmount.WithLabelValues(method).Add(amount)
}

// PaymentVoided counts a voided payment.
func (m *MetricsService) PaymentVoided() {
	if m == nil {
		return
	}
	m.paymentsVoided.Inc()
}

// ReceiptAllocated counts an issued receipt number.
func (m *MetricsService) ReceiptAllocated() {
	if m == nil {
		return
	}
	m.receiptsAllocated.Inc()
}

// ReceiptDuplicate counts a receipt number collision reported by storage.
func (m *MetricsService) ReceiptDuplicate() {
	if m == nil {
		return
	}
	m.receiptDuplicates.Inc()
}

// InferredPromotion counts a charge applied through the missing-history heuristic.
func (m *MetricsService) InferredPromotion(key string) {
	if m == nil {
		return
	}
	m.inferredPromotions.WithLabelValues(key).Inc()
}

// PriceAmbiguity counts a tie among equally specific price rows.
func (m *MetricsService) PriceAmbiguity(key string) {
	if m == nil {
		return
	}
	m.priceAmbiguities.WithLabelValues(key).Inc()
}

// MissingTuitionRow counts a ledger computation without tuition.
func (m *MetricsService) MissingTuitionRow() {
	if m == nil {
		return
	}
	m.missingTuitionRows.Inc()
}

// ObserveTermSummary records how long a term summary took.
func (m *MetricsService) ObserveTermSummary(duration time.Duration) {
	if m == nil {
		return
	}
	m.summaryDuration.Observe(duration.Seconds())
}
