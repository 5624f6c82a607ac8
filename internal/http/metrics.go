package http

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	tokensIssuedTotal   *prometheus.CounterVec
)

// RegisterMetrics inicializa las métricas HTTP y devuelve el handler para
// /metrics. Idempotente: los registros duplicados se ignoran.
func RegisterMetrics(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		tokensIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_tokens_issued_total",
			Help: "Tokens emitidos por operación (authorize|token|retoken)",
		}, []string{"operation"})

		for _, c := range []prometheus.Collector{httpRequestsTotal, httpRequestDuration, tokensIssuedTotal} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}
	return promhttp.Handler(), nil
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// WithMetrics instrumenta requests HTTP (contadores y latencia).
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpRequestsTotal == nil || httpRequestDuration == nil {
			next.ServeHTTP(w, r)
			return
		}
		method := strings.ToUpper(r.Method)
		pathLabel := normalizePath(r.URL.Path)
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
	})
}

// RecordTokenIssued cuenta una emisión exitosa.
func RecordTokenIssued(operation string) {
	if tokensIssuedTotal != nil {
		tokensIssuedTotal.WithLabelValues(operation).Inc()
	}
}

var (
	uuidSegmentRE  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}$`)
	tokenSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
)

// normalizePath colapsa segmentos dinámicos (ids, tokens) para acotar la
// cardinalidad de las labels.
func normalizePath(p string) string {
	clean := strings.SplitN(p, "?", 2)[0]
	segments := strings.Split(clean, "/")
	var out []string
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if isDynamicSegment(seg) {
			out = append(out, ":param")
		} else {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

func isDynamicSegment(seg string) bool {
	if len(seg) > 48 {
		return true
	}
	if uuidSegmentRE.MatchString(seg) || tokenSegmentRE.MatchString(seg) {
		return true
	}
	if _, err := strconv.Atoi(seg); err == nil {
		return true
	}
	return false
}
