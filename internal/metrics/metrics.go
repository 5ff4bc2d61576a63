// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ストアとAPIクライアントから利用する。
type MetricsCollector interface {
	RecordMutationSuccess(operation string)
	RecordMutationFailure(operation string, category string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordNotificationSet(kind string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	mutationSuccess *prometheus.CounterVec
	mutationFail    *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	notificationSet *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		mutationSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloglist_mutation_success_total",
			Help: "サーバーに反映された変更操作の合計数",
		}, []string{"operation"}),
		mutationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloglist_mutation_fail_total",
			Help: "失敗した変更操作のエラーカテゴリ別合計数",
		}, []string{"operation", "category"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloglist_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloglist_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		notificationSet: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloglist_notification_set_total",
			Help: "設定された通知の種別別合計数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.mutationSuccess,
		c.mutationFail,
		c.httpStatus,
		c.requestLatency,
		c.notificationSet,
	)

	return c
}

// RecordMutationSuccess は変更操作の成功を記録する。
func (c *Collector) RecordMutationSuccess(operation string) {
	c.mutationSuccess.WithLabelValues(operation).Inc()
}

// RecordMutationFailure は変更操作の失敗をエラーカテゴリ付きで記録する。
func (c *Collector) RecordMutationFailure(operation string, category string) {
	c.mutationFail.WithLabelValues(operation, category).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はAPIリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordNotificationSet は通知の設定を記録する。
func (c *Collector) RecordNotificationSet(kind string) {
	c.notificationSet.WithLabelValues(kind).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop は何も記録しないMetricsCollector。
// メトリクスが不要な構成やテストで使用する。
type Noop struct{}

func (Noop) RecordMutationSuccess(string)         {}
func (Noop) RecordMutationFailure(string, string) {}
func (Noop) RecordHTTPStatus(int)                 {}
func (Noop) RecordRequestLatency(time.Duration)   {}
func (Noop) RecordNotificationSet(string)         {}
