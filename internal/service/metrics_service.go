package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the moderation workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheHitRatio prometheus.Gauge
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter

	competitionDecisions   *prometheus.CounterVec
	participationDecisions *prometheus.CounterVec
	joins                  prometheus.Counter
	bulkApproved           prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
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

	competitionDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "competition_decisions_total",
		Help: "Competition approve/reject decisions",
	}, []string{"decision"})

	participationDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "participation_decisions_total",
		Help: "Participation approve/reject decisions",
	}, []string{"decision"})

	joins := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "participation_joins_total",
		Help: "Total registration requests",
	})

	bulkApproved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "participation_bulk_approved_total",
		Help: "Participants approved through bulk approval",
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHitRatio, cacheHits,
		cacheMisses, competitionDecisions, participationDecisions, joins, bulkApproved)

	return &MetricsService{
		registry:               registry,
		handler:                promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:        requestDuration,
		requestTotal:           requestTotal,
		cacheHitRatio:          cacheHitRatio,
		cacheHits:              cacheHits,
		cacheMisses:            cacheMisses,
		competitionDecisions:   competitionDecisions,
		participationDecisions: participationDecisions,
		joins:                  joins,
		bulkApproved:           bulkApproved,
	}
}

// Handler returns the Prometheus scrape handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records request duration and count.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// RecordCacheHit tracks listing cache effectiveness.
func (s *MetricsService) RecordCacheHit(hit bool) {
	if hit {
		s.cacheHits.Inc()
		atomic.AddUint64(&s.cacheHitCount, 1)
	} else {
		s.cacheMisses.Inc()
		atomic.AddUint64(&s.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&s.cacheHitCount)
	total := hits + atomic.LoadUint64(&s.cacheMissCount)
	if total > 0 {
		s.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordCompetitionDecision counts an approve/reject on a competition.
func (s *MetricsService) RecordCompetitionDecision(decision string) {
	s.competitionDecisions.With(prometheus.Labels{"decision": decision}).Inc()
}

// RecordParticipationDecision counts an approve/reject on a participation.
func (s *MetricsService) RecordParticipationDecision(decision string) {
	s.participationDecisions.With(prometheus.Labels{"decision": decision}).Inc()
}

// RecordJoin counts a registration request.
func (s *MetricsService) RecordJoin() {
	s.joins.Inc()
}

// RecordBulkApproval counts participants flipped by a bulk approval.
func (s *MetricsService) RecordBulkApproval(count int) {
	s.bulkApproved.Add(float64(count))
}
