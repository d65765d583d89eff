package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg              *prometheus.Registry
	ImportsTotal     prometheus.Counter
	ImportsSkipped   prometheus.Counter
	ImportsRejected  prometheus.Counter
	ImportRows       prometheus.Counter
	ImportLatencySec prometheus.Histogram
	OrdersStored     prometheus.Gauge
	ExportsTotal     prometheus.Counter
	LoginFailures    prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	imports := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbook_imports_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbook_imports_skipped_total"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbook_imports_rejected_total"})
	importRows := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbook_import_rows_total"})
	importLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orderbook_import_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	stored := prometheus.NewGauge(prometheus.GaugeOpts{Name: "orderbook_orders_stored"})
	exports := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbook_exports_total"})
	loginFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbook_login_failures_total"})

	r.MustRegister(imports, skipped, rejected, importRows, importLatency, stored, exports, loginFailures)
	return &Registry{
		reg:              r,
		ImportsTotal:     imports,
		ImportsSkipped:   skipped,
		ImportsRejected:  rejected,
		ImportRows:       importRows,
		ImportLatencySec: importLatency,
		OrdersStored:     stored,
		ExportsTotal:     exports,
		LoginFailures:    loginFailures,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
