package recovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/log"
	"github.com/LerianStudio/lib-resilience/resilience/metrics"
	"github.com/google/uuid"
)

// Record is one logged failure for an (operation, service) pair.
type Record struct {
	ID        string    `json:"id"`
	Err       error     `json:"-"`
	Message   string    `json:"message"`
	Operation string    `json:"operation"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

// RiskLevel classifies cascade risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// CascadeAssessment is the result of a cascade-risk check.
type CascadeAssessment struct {
	Risk           RiskLevel `json:"risk"`
	RecentErrors   int       `json:"recent_errors"`
	Recommendation string    `json:"recommendation"`
}

// Manager runs prioritized recovery actions and tracks error history.
type Manager interface {
	// RegisterAction adds an action to the ordered collection. Actions are
	// re-sorted by descending priority on each registration.
	RegisterAction(action Action) error

	// ExecuteRecovery records the failure, then runs the highest-priority
	// eligible action. With no eligible action (or a failing one) the
	// original error is returned unchanged.
	ExecuteRecovery(err error, rctx Context) (any, error)

	// RecordError logs the failure into history without running any action.
	RecordError(err error, rctx Context)

	// GetErrorHistory returns the recorded failures for the pair, newest last.
	GetErrorHistory(operation, service string) []Record

	// CheckCascadeRisk scores recent error volume for the pair. An empty
	// service matches every service seen for the operation.
	CheckCascadeRisk(operation, service string) CascadeAssessment

	// ClearHistory drops all recorded failures.
	ClearHistory()
}

// Defaults for the history window and per-key retention.
const (
	DefaultWindow           = 5 * time.Minute
	DefaultMaxRecordsPerKey = 100

	mediumRiskThreshold = 4
	highRiskThreshold   = 8
)

// historyKeySeparator joins operation and service into a history key.
const historyKeySeparator = "::"

type manager struct {
	actionsMu sync.RWMutex
	actions   []Action

	historyMu sync.Mutex
	history   map[string][]Record

	window         time.Duration
	maxPerKey      int
	logger         log.Logger
	metricsFactory *metrics.MetricsFactory
	now            func() time.Time
}

// Option configures a Manager at construction time.
type Option func(*manager)

// WithWindow overrides the rolling history window.
func WithWindow(window time.Duration) Option {
	return func(m *manager) {
		if window > 0 {
			m.window = window
		}
	}
}

// WithMaxRecordsPerKey overrides how many records are retained per
// (operation, service) pair.
func WithMaxRecordsPerKey(limit int) Option {
	return func(m *manager) {
		if limit > 0 {
			m.maxPerKey = limit
		}
	}
}

// WithMetricsFactory attaches an OpenTelemetry metrics factory for recovery
// action counters.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(m *manager) {
		m.metricsFactory = factory
	}
}

// NewManager creates a recovery manager. A nil logger is replaced with a
// no-op logger.
func NewManager(logger log.Logger, opts ...Option) Manager {
	if logger == nil {
		logger = &log.NoneLogger{}
	}

	m := &manager{
		actions:   make([]Action, 0),
		history:   make(map[string][]Record),
		window:    DefaultWindow,
		maxPerKey: DefaultMaxRecordsPerKey,
		logger:    logger,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *manager) RegisterAction(action Action) error {
	if action == nil {
		return ErrNilAction
	}

	if action.Name() == "" {
		return ErrEmptyActionName
	}

	m.actionsMu.Lock()
	defer m.actionsMu.Unlock()

	m.actions = append(m.actions, action)
	sort.SliceStable(m.actions, func(i, j int) bool {
		return m.actions[i].Priority() > m.actions[j].Priority()
	})

	m.logger.Infof("Registered recovery action: %s (priority %d, total %d)",
		action.Name(), action.Priority(), len(m.actions))

	return nil
}

func (m *manager) ExecuteRecovery(err error, rctx Context) (any, error) {
	if err == nil {
		return nil, nil
	}

	if rctx.Timestamp.IsZero() {
		rctx.Timestamp = m.now()
	}

	m.record(err, rctx)

	m.actionsMu.RLock()
	actions := make([]Action, len(m.actions))
	copy(actions, m.actions)
	m.actionsMu.RUnlock()

	for _, action := range actions {
		if !action.ShouldExecute(err, rctx) {
			continue
		}

		result, actionErr := action.Execute(err, rctx)
		if actionErr != nil {
			// A failing recovery action never masks the original error.
			m.logger.Warnf("Recovery action %s failed for %s/%s: %v",
				action.Name(), rctx.Operation, rctx.Service, actionErr)
			m.recordActionOutcome(action.Name(), "error")

			return nil, err
		}

		m.logger.Infof("Recovery action %s resolved failure of %s/%s",
			action.Name(), rctx.Operation, rctx.Service)
		m.recordActionOutcome(action.Name(), "success")

		return result, nil
	}

	m.logger.Debugf("No recovery action matched failure of %s/%s: %v",
		rctx.Operation, rctx.Service, err)

	return nil, err
}

func (m *manager) RecordError(err error, rctx Context) {
	if err == nil {
		return
	}

	if rctx.Timestamp.IsZero() {
		rctx.Timestamp = m.now()
	}

	m.record(err, rctx)
}

func (m *manager) GetErrorHistory(operation, service string) []Record {
	key := historyKey(operation, service)

	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	m.pruneLocked(key, m.now())

	records := m.history[key]
	out := make([]Record, len(records))
	copy(out, records)

	return out
}

func (m *manager) CheckCascadeRisk(operation, service string) CascadeAssessment {
	now := m.now()

	m.historyMu.Lock()

	recent := 0

	if service != "" {
		key := historyKey(operation, service)
		m.pruneLocked(key, now)
		recent = len(m.history[key])
	} else {
		prefix := operation + historyKeySeparator

		for key := range m.history {
			if !strings.HasPrefix(key, prefix) {
				continue
			}

			m.pruneLocked(key, now)
			recent += len(m.history[key])
		}
	}

	m.historyMu.Unlock()

	return m.assess(operation, recent)
}

func (m *manager) ClearHistory() {
	m.historyMu.Lock()
	m.history = make(map[string][]Record)
	m.historyMu.Unlock()

	m.logger.Infof("Recovery error history cleared")
}

func (m *manager) record(err error, rctx Context) {
	key := historyKey(rctx.Operation, rctx.Service)

	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	m.pruneLocked(key, rctx.Timestamp)

	records := append(m.history[key], Record{
		ID:        uuid.NewString(),
		Err:       err,
		Message:   err.Error(),
		Operation: rctx.Operation,
		Service:   rctx.Service,
		Timestamp: rctx.Timestamp,
	})

	// Bounded retention: drop the oldest overflow.
	if len(records) > m.maxPerKey {
		records = records[len(records)-m.maxPerKey:]
	}

	m.history[key] = records
}

// pruneLocked drops records older than the window. Caller holds historyMu.
func (m *manager) pruneLocked(key string, now time.Time) {
	records, exists := m.history[key]
	if !exists {
		return
	}

	cutoff := now.Add(-m.window)

	firstRecent := len(records)

	for i, record := range records {
		if record.Timestamp.After(cutoff) {
			firstRecent = i
			break
		}
	}

	if firstRecent == 0 {
		return
	}

	if firstRecent == len(records) {
		delete(m.history, key)
		return
	}

	m.history[key] = records[firstRecent:]
}

func (m *manager) assess(operation string, recent int) CascadeAssessment {
	switch {
	case recent >= highRiskThreshold:
		return CascadeAssessment{
			Risk:         RiskHigh,
			RecentErrors: recent,
			Recommendation: fmt.Sprintf(
				"Error volume critical for %s: enable or check the circuit breaker for the affected service and shed non-essential load",
				operation),
		}
	case recent >= mediumRiskThreshold:
		return CascadeAssessment{
			Risk:         RiskMedium,
			RecentErrors: recent,
			Recommendation: fmt.Sprintf(
				"Elevated error volume for %s: monitor closely and verify fallbacks are in place", operation),
		}
	default:
		return CascadeAssessment{
			Risk:           RiskLow,
			RecentErrors:   recent,
			Recommendation: "Error volume within normal bounds; no action required",
		}
	}
}

func (m *manager) recordActionOutcome(actionName, outcome string) {
	if m.metricsFactory == nil {
		return
	}

	m.metricsFactory.Counter(metrics.MetricRecoveryActions).
		WithLabels(map[string]string{"action": actionName, "outcome": outcome}).
		AddOne(context.Background())
}

func historyKey(operation, service string) string {
	return operation + historyKeySeparator + service
}
