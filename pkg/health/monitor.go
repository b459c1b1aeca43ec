// Package health runs periodic dependency checks and logs state
// transitions. The HTTP health endpoint answers on demand; the monitor
// catches degradation between requests.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/metime/identity/pkg/redis"
)

// Status represents health check status
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "HEALTHY"
	case StatusUnhealthy:
		return "UNHEALTHY"
	default:
		return "UNKNOWN"
	}
}

// CheckResult represents the result of one health check
type CheckResult struct {
	Name         string
	Status       Status
	Latency      time.Duration
	LastCheck    time.Time
	LastError    error
	CheckCount   int
	FailureCount int
}

// Checker interface for dependency checks
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// DatabaseChecker pings the Postgres connection.
type DatabaseChecker struct {
	DB *gorm.DB
}

func (c *DatabaseChecker) Name() string { return "database" }

func (c *DatabaseChecker) Check(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RedisChecker pings the cache.
type RedisChecker struct {
	Client *redis.Client
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) error {
	return c.Client.Ping(ctx)
}

// Monitor runs registered checkers on an interval.
type Monitor struct {
	mu       sync.RWMutex
	checkers []Checker
	results  map[string]*CheckResult
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
}

// NewMonitor creates a new dependency monitor
func NewMonitor(interval time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		results:  make(map[string]*CheckResult),
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds a checker. Must be called before Start.
func (m *Monitor) Register(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkers = append(m.checkers, checker)
	m.results[checker.Name()] = &CheckResult{Name: checker.Name()}

	m.logger.Info("Registered health checker",
		zap.String("name", checker.Name()),
	)
}

// Start starts the periodic checks
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	go m.runChecks()
}

// Stop stops the monitor
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.running = false
	m.cancel()
}

// Results returns a snapshot of the latest check results.
func (m *Monitor) Results() map[string]CheckResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]CheckResult, len(m.results))
	for name, result := range m.results {
		out[name] = *result
	}
	return out
}

func (m *Monitor) runChecks() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.checkAll()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.checkAll()
		}
	}
}

func (m *Monitor) checkAll() {
	m.mu.RLock()
	checkers := make([]Checker, len(m.checkers))
	copy(checkers, m.checkers)
	m.mu.RUnlock()

	for _, checker := range checkers {
		m.runCheck(checker)
	}
}

func (m *Monitor) runCheck(checker Checker) {
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := checker.Check(ctx)
	latency := time.Since(start)

	status := StatusHealthy
	if err != nil {
		status = StatusUnhealthy
	}

	m.mu.Lock()
	result := m.results[checker.Name()]
	previous := result.Status
	result.Status = status
	result.Latency = latency
	result.LastCheck = start
	result.LastError = err
	result.CheckCount++
	if err != nil {
		result.FailureCount++
	}
	m.mu.Unlock()

	if status != previous {
		m.logger.Warn("Dependency health changed",
			zap.String("name", checker.Name()),
			zap.String("from", previous.String()),
			zap.String("to", status.String()),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
	} else if err != nil {
		m.logger.Error("Dependency check failed",
			zap.String("name", checker.Name()),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
	}
}
