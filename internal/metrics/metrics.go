// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// identity.MetricsRecorderとledger.MetricsRecorderを満たす。
type Collector struct {
	signupTotal     *prometheus.CounterVec
	loginTotal      *prometheus.CounterVec
	providerLatency prometheus.Histogram
	txCreated       *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bonnex_signup_total",
			Help: "サインアップ試行の合計数（結果別）",
		}, []string{"result"}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bonnex_login_total",
			Help: "ログイン試行の合計数（結果別）",
		}, []string{"result"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bonnex_identity_provider_latency_seconds",
			Help:    "外部IdP呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		txCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bonnex_transactions_created_total",
			Help: "作成された取引の合計数（種別別）",
		}, []string{"type"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bonnex_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.signupTotal,
		c.loginTotal,
		c.providerLatency,
		c.txCreated,
		c.httpStatus,
	)

	return c
}

// RecordSignUp はサインアップ試行の結果を記録する。
func (c *Collector) RecordSignUp(success bool) {
	c.signupTotal.WithLabelValues(resultLabel(success)).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	c.loginTotal.WithLabelValues(resultLabel(success)).Inc()
}

// RecordProviderLatency は外部IdP呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(d time.Duration) {
	c.providerLatency.Observe(d.Seconds())
}

// RecordTransactionCreated は取引作成を種別別に記録する。
func (c *Collector) RecordTransactionCreated(txType string) {
	c.txCreated.WithLabelValues(txType).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
