package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 案件创建数
	casesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cases_created_total",
			Help: "Total number of approval cases created",
		},
	)

	// 导师审核数
	advisorDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_decisions_total",
			Help: "Total number of advisor gate decisions",
		},
		[]string{"decision"}, // approve, reject
	)

	// 投票数
	votesCastTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_cast_total",
			Help: "Total number of committee votes cast",
		},
		[]string{"choice"}, // approve, reject
	)

	// 法定票数决议数
	quorumResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_resolutions_total",
			Help: "Total number of quorum resolutions",
		},
		[]string{"outcome"}, // committee_approved, committee_rejected
	)

	// 管理员覆盖操作数
	overridesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overrides_total",
			Help: "Total number of administrative override operations",
		},
		[]string{"action"}, // force_status, cancel, set_outcome
	)

	// CAS 版本冲突数
	casConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cas_conflicts_total",
			Help: "Total number of compare-and-swap version conflicts",
		},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 案件状态分布
	casesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cases_by_status",
			Help: "Number of approval cases by status",
		},
		[]string{"status"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(casesCreatedTotal)
	prometheus.MustRegister(advisorDecisionsTotal)
	prometheus.MustRegister(votesCastTotal)
	prometheus.MustRegister(quorumResolutionsTotal)
	prometheus.MustRegister(overridesTotal)
	prometheus.MustRegister(casConflictsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(casesByStatus)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		// 尝试注册 Go 运行时指标，如果已注册则忽略错误
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordCaseCreated 记录案件创建
func RecordCaseCreated() {
	casesCreatedTotal.Inc()
}

// RecordAdvisorDecision 记录导师审核
func RecordAdvisorDecision(decision string) {
	advisorDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordVoteCast 记录委员投票
func RecordVoteCast(choice string) {
	votesCastTotal.WithLabelValues(choice).Inc()
}

// RecordQuorumResolution 记录法定票数决议
func RecordQuorumResolution(outcome string) {
	quorumResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordOverride 记录管理员覆盖操作
func RecordOverride(action string) {
	overridesTotal.WithLabelValues(action).Inc()
}

// RecordCASConflict 记录 CAS 版本冲突
func RecordCASConflict() {
	casConflictsTotal.Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateCasesByStatus 更新案件状态分布指标
func UpdateCasesByStatus(status string, count float64) {
	casesByStatus.WithLabelValues(status).Set(count)
}
