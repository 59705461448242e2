// Package metrics Prometheus 指标：HTTP 请求与业务指标（活动事件、限额拒绝、邀请状态迁移、后台任务）.
//
// 指标变量在包初始化时创建，未启用时照常计数但不暴露.
//
//	metrics.LimitRejections.WithLabelValues("storage").Inc()
package metrics

import (
	"fmt"
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/teamvault/pkg/configs"
)

const namespace = "teamvault"

var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of active connections",
		},
	)

	// ActivityEvents 已写入的活动记录，按事件类型.
	ActivityEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_total",
			Help:      "Activity rows recorded, by event type",
		},
		[]string{"event_type"},
	)

	// EventsConsumed 消费者处理的消息，result 为 ok 或 error.
	EventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Messages handled by the event consumer",
		},
		[]string{"topic", "result"},
	)

	// LimitRejections 因计划上限被拒绝的操作.
	LimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_limit_rejections_total",
			Help:      "Operations rejected by plan limits, by limit type",
		},
		[]string{"limit_type"},
	)

	// InviteTransitions 邀请状态迁移.
	InviteTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invite_transitions_total",
			Help:      "Invite state transitions, by target status",
		},
		[]string{"status"},
	)

	// JobRuns 后台任务执行次数.
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job executions",
		},
		[]string{"job", "result"},
	)

	registry = prometheus.NewRegistry()

	registerOnce sync.Once
)

func collectorsToRegister() []prometheus.Collector {
	return []prometheus.Collector{
		RequestCounter, RequestDuration, ActiveConnections,
		ActivityEvents, EventsConsumed, LimitRejections, InviteTransitions, JobRuns,
	}
}

// InitMetrics 注册业务指标，重复调用只注册一次.
// ConstLabels 通过包装 Registerer 附加，不改变指标定义.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	var err error

	registerOnce.Do(func() {
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		reg := prometheus.WrapRegistererWith(prometheus.Labels(config.ConstLabels), registry)
		for _, c := range collectorsToRegister() {
			if e := reg.Register(c); e != nil {
				err = fmt.Errorf("register metric: %w", e)
				return
			}
		}
	})

	return err
}

// Gatherer 合并本包注册表与默认注册表（GORM、watermill 插件注册在默认注册表）.
func Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{registry, prometheus.DefaultGatherer}
}

// StartMetricsServer 在引擎上注册指标端点与可选的 pprof.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine, pprof bool) error {
	if !config.Enabled {
		return nil
	}

	engine.GET(config.MetricsPath(), gin.WrapH(promhttp.HandlerFor(Gatherer(), promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})))

	if pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}
