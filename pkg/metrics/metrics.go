package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		LLMDuration, LLMTotal,
		PromptLength, MemoryItems, MemoryEvictions,
		ChatMessagesTotal,
		RateLimitWaitSeconds, HTTPRequestsTotal,
	)
}

// LLMDuration LLM 调用耗时（秒）
var LLMDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pmo_llm_duration_seconds",
		Help:    "LLM 调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider"},
)

// LLMTotal LLM 调用总数（按结果）
var LLMTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pmo_llm_total",
		Help: "LLM 调用总数（按结果）",
	},
	[]string{"provider", "status"}, // ok | error
)

// PromptLength 合成 prompt 字符数
var PromptLength = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "pmo_prompt_length_chars",
		Help:    "合成 prompt 字符数",
		Buckets: []float64{500, 1000, 2500, 5000, 10000, 15000, 20000},
	},
)

// MemoryItems 当前内存条目数
var MemoryItems = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "pmo_memory_items",
		Help: "当前内存条目数",
	},
)

// MemoryEvictions 容量淘汰总数（按结构）
var MemoryEvictions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pmo_memory_evictions_total",
		Help: "容量淘汰总数（按结构）",
	},
	[]string{"kind"}, // item | chat
)

// ChatMessagesTotal 会话消息入账总数（按角色）
var ChatMessagesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pmo_chat_messages_total",
		Help: "会话消息入账总数（按角色）",
	},
	[]string{"role"},
)

// RateLimitWaitSeconds 限流等待耗时（秒），仅记录超过 100ms 的等待
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pmo_rate_limit_wait_seconds",
		Help:    "限流等待耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"component", "provider"},
)

// HTTPRequestsTotal HTTP 请求总数
var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pmo_http_requests_total",
		Help: "HTTP 请求总数",
	},
	[]string{"method", "path", "status"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
