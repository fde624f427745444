// ============================================================================
// TalentHub Metrics - Prometheus 監控指標
// ============================================================================
//
// Package: internal/metrics
// 文件: metrics.go
// 功能: 收集客戶端與遠端服務互動的指標，支持 Prometheus 監控
//
// 指標分類:
//
//   1. 請求指標 (RED 方法):
//      - talenthub_api_requests_total{method,resource,code}: 請求總數
//        * code 為 HTTP 狀態碼，連線失敗時為 "error"
//      - talenthub_api_request_duration_seconds{method,resource}: 請求延遲分佈
//
//   2. 畫面狀態指標 (Counter):
//      - talenthub_guard_outcomes_total{role,outcome}: 路由守衛的判定結果
//      - talenthub_pager_stale_responses_total{resource}: 被丟棄的過期分頁回應
//      - talenthub_mutations_total{kind,result}: 新增、修改、刪除、申請、審核
//
// Prometheus 查詢示例:
//
//   # 錯誤率
//   sum(rate(talenthub_api_requests_total{code=~"4..|5..|error"}[5m]))
//     / sum(rate(talenthub_api_requests_total[5m]))
//
//   # 95 分位延遲
//   histogram_quantile(0.95, sum by (le) (rate(talenthub_api_request_duration_seconds_bucket[5m])))
//
// HTTP 端點:
//   metrics.enabled 時於 /metrics 暴露，命令執行期間有效
//
// ============================================================================

package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = slog.Default()

// Mutation 結果標籤
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Collector Prometheus 指標收集器
type Collector struct {
	// 請求指標
	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec

	// 畫面狀態指標
	guardOutcomes  *prometheus.CounterVec
	staleResponses *prometheus.CounterVec
	mutations      *prometheus.CounterVec
}

// NewCollector 創建新的指標收集器並註冊到 prometheus.DefaultRegisterer
func NewCollector() *Collector {
	c := &Collector{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talenthub_api_requests_total",
			Help: "Total number of requests sent to the TalentHub service",
		}, []string{"method", "resource", "code"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "talenthub_api_request_duration_seconds",
			Help:    "TalentHub request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "resource"}),
		guardOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talenthub_guard_outcomes_total",
			Help: "Route guard decisions by required role and outcome",
		}, []string{"role", "outcome"}),
		staleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talenthub_pager_stale_responses_total",
			Help: "Page responses discarded because a newer load superseded them",
		}, []string{"resource"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talenthub_mutations_total",
			Help: "Create, update, delete, apply and review operations by result",
		}, []string{"kind", "result"}),
	}

	// 註冊所有指標
	prometheus.MustRegister(c.apiRequests)
	prometheus.MustRegister(c.apiDuration)
	prometheus.MustRegister(c.guardOutcomes)
	prometheus.MustRegister(c.staleResponses)
	prometheus.MustRegister(c.mutations)

	return c
}

// ObserveRequest 記錄一次 API 請求，code 為 0 表示連線失敗
func (c *Collector) ObserveRequest(method, resource string, code int, duration time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	c.apiRequests.WithLabelValues(method, resource, label).Inc()
	c.apiDuration.WithLabelValues(method, resource).Observe(duration.Seconds())
}

// RecordGuardOutcome 記錄路由守衛判定
func (c *Collector) RecordGuardOutcome(role, outcome string) {
	c.guardOutcomes.WithLabelValues(role, outcome).Inc()
}

// RecordStaleResponse 記錄被丟棄的過期回應
func (c *Collector) RecordStaleResponse(resource string) {
	c.staleResponses.WithLabelValues(resource).Inc()
}

// RecordMutation 記錄一次變更操作，err 為 nil 時視為成功
func (c *Collector) RecordMutation(kind string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	c.mutations.WithLabelValues(kind, result).Inc()
}

// Server /metrics HTTP 伺服器
type Server struct {
	srv *http.Server
}

// StartServer 在背景啟動 Prometheus metrics HTTP 伺服器
//
// 參數：
//   - port: HTTP 伺服器端口
//
// 伺服器在 Shutdown 前持續運作；監聽失敗只記錄 log，不影響命令本身。
func StartServer(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", "port", port, "error", err)
		}
	}()
	log.Info("metrics server started", "port", port)
	return &Server{srv: srv}
}

// Shutdown 停止 metrics 伺服器
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
