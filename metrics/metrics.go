// Package metrics は Prometheus のメトリクスを定義します。
//
//   - stockroom_http_requests_total{route, code, method} (Counter)
//   - stockroom_http_request_duration_seconds{route, method} (Histogram)
//   - stockroom_reports_generated_total{format} (Counter)
//   - stockroom_products_imported_total (Counter)
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockroom_http_requests_total",
			Help: "HTTP requests by route, status code and method",
		},
		[]string{"route", "code", "method"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockroom_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// ReportsGenerated はダウンロードされたレポート数です (format: xlsx / csv / pdf)。
	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockroom_reports_generated_total",
			Help: "Reports generated by format",
		},
		[]string{"format"},
	)

	// ProductsImported は CSV 取込で登録・更新された品目数です。
	ProductsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockroom_products_imported_total",
			Help: "Products inserted or updated by CSV import",
		},
	)
)

// Instrument はハンドラーにルート名ラベル付きのリクエスト数・処理時間の計測を付けます。
func Instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerDuration(
		requestDuration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(requestsTotal.MustCurryWith(labels), h),
	)
}

// Handler は /metrics 用のハンドラーです。
func Handler() http.Handler {
	return promhttp.Handler()
}
