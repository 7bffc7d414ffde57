// Package metrics provides Prometheus instrumentation for the sales service.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SalesTotal counts logged sales, partitioned by payment mode.
	SalesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mrf_sales_total",
		Help: "Total number of material sales logged",
	}, []string{"payment_mode"})

	// SaleValue accumulates the final amount (GST inclusive) of logged sales.
	SaleValue = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mrf_sale_value_inr_total",
		Help: "Cumulative sale value in rupees, GST inclusive",
	}, []string{"payment_mode"})

	// SoldWeight accumulates billed tonnage per material.
	SoldWeight = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mrf_sold_weight_tons_total",
		Help: "Cumulative billing weight sold in tons",
	}, []string{"material"})

	// SettlementRejections counts sales refused at commit time.
	SettlementRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mrf_settlement_rejections_total",
		Help: "Sales rejected by settlement validation or the store",
	}, []string{"reason"})

	// PartnersCreated counts partners added to the directory.
	PartnersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mrf_partners_created_total",
		Help: "Partners created through the sales service",
	}, []string{"type"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mrf_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mrf_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mrf_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern prefers the matched chi pattern so IDs in the URL do not
// blow up label cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection over for WebSocket upgrades.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Flush lets streamed exports pass through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
