package logging

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Metrics records named timers and numeric metrics for a single run. It is
// created alongside the run's logger and summarized when the run finishes;
// independent runs own independent recorders.
type Metrics struct {
	mu      sync.Mutex
	started map[string]time.Time
	timers  map[string]time.Duration
	values  map[string]float64
	counts  map[string]int
	clock   func() time.Time
}

// NewMetrics returns an empty metrics recorder.
func NewMetrics() *Metrics {
	return &Metrics{
		started: make(map[string]time.Time),
		timers:  make(map[string]time.Duration),
		values:  make(map[string]float64),
		counts:  make(map[string]int),
		clock:   time.Now,
	}
}

// StartTimer begins (or restarts) the named timer.
func (m *Metrics) StartTimer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[name] = m.clock()
}

// StopTimer stops the named timer and accumulates its elapsed duration.
// Stopping a timer that was never started records zero.
func (m *Metrics) StopTimer(name string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	start, ok := m.started[name]
	if !ok {
		return 0
	}
	delete(m.started, name)
	elapsed := m.clock().Sub(start)
	m.timers[name] += elapsed
	return elapsed
}

// Record stores the latest value for a named numeric metric and bumps its
// observation count.
func (m *Metrics) Record(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
	m.counts[name]++
}

// Timer returns the accumulated duration for a named timer.
func (m *Metrics) Timer(name string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[name]
}

// Value returns the most recent recorded value and whether the metric exists.
func (m *Metrics) Value(name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	return v, ok
}

// LogSummary emits one record per timer and metric at debug level plus a
// single info roll-up, keeping run-end output readable.
func (m *Metrics) LogSummary(logger *slog.Logger) {
	if logger == nil {
		return
	}
	m.mu.Lock()
	timerNames := sortedKeys(m.timers)
	valueNames := sortedKeys(m.values)
	timers := make(map[string]time.Duration, len(m.timers))
	for k, v := range m.timers {
		timers[k] = v
	}
	values := make(map[string]float64, len(m.values))
	for k, v := range m.values {
		values[k] = v
	}
	m.mu.Unlock()

	for _, name := range timerNames {
		logger.Debug("timer", String("name", name), Duration("elapsed", timers[name]))
	}
	for _, name := range valueNames {
		logger.Debug("metric", String("name", name), Float64("value", values[name]))
	}
	logger.Info("run metrics",
		Int("timers", len(timerNames)),
		Int("metrics", len(valueNames)),
	)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
