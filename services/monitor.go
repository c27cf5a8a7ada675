package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cctv-monitoring/be/config"

	"go.uber.org/zap"
)

type MonitorState string

const (
	MonitorIdle     MonitorState = "idle"
	MonitorRunning  MonitorState = "running"
	MonitorSleeping MonitorState = "sleeping"
	MonitorStopped  MonitorState = "stopped"
)

// Monitor drives StreamMonitor on a fixed cadence. Sessions never outlive
// the cycle that opened them, and cycles never overlap, including ad hoc
// RunCycle calls.
type Monitor struct {
	sessions     SessionFactory
	streams      *StreamMonitor
	hub          *StatusHub
	interval     time.Duration
	backoff      time.Duration
	cycleTimeout time.Duration
	logger       *zap.Logger

	sem chan struct{}

	mu    sync.RWMutex
	state MonitorState
	last  *CycleResult

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewMonitor(sessions SessionFactory, streams *StreamMonitor, cfg config.MonitorConfig, hub *StatusHub, logger *zap.Logger) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 40 * time.Second
	}
	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = interval
	}
	return &Monitor{
		sessions:     sessions,
		streams:      streams,
		hub:          hub,
		interval:     interval,
		backoff:      backoff,
		cycleTimeout: cfg.CycleTimeout,
		logger:       logger.Named("monitor"),
		sem:          make(chan struct{}, 1),
		state:        MonitorIdle,
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Run loops until ctx is cancelled or Stop is called. A running cycle is
// allowed to finish; cancellation is observed between cycles and while sleeping.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.done)
	defer m.setState(MonitorStopped)

	m.logger.Info("CCTV monitor started",
		zap.Duration("interval", m.interval),
		zap.Duration("error_backoff", m.backoff),
	)

	for {
		if m.stopRequested(ctx) {
			m.logger.Info("CCTV monitor stopped")
			return
		}

		m.setState(MonitorRunning)
		result := m.RunCycle(ctx)

		wait := m.interval
		if result.Err != nil {
			wait = m.backoff
		}

		m.setState(MonitorSleeping)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("CCTV monitor stopped")
			return
		case <-m.stopCh:
			timer.Stop()
			m.logger.Info("CCTV monitor stopped")
			return
		case <-timer.C:
		}
	}
}

// Stop asks Run to exit. It does not wait; use Done for that.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.logger.Info("Stopping CCTV monitor...")
		close(m.stopCh)
	})
}

func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) State() MonitorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LastResult returns the most recent cycle result, or nil before the first cycle.
func (m *Monitor) LastResult() *CycleResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// RunCycle performs one monitoring cycle. It waits for any cycle already in
// progress; ctx only bounds that wait. Once started, the cycle runs to
// completion detached from ctx so a caller going away cannot cut the probe
// fan-out short. Failures never escape: they are reported through
// CycleResult.Err and any open session is rolled back.
func (m *Monitor) RunCycle(ctx context.Context) (result CycleResult) {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return CycleResult{StartedAt: time.Now(), Err: ctx.Err()}
	}
	defer func() { <-m.sem }()

	ctx = context.WithoutCancel(ctx)
	if m.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cycleTimeout)
		defer cancel()
	}

	startedAt := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = CycleResult{
				StartedAt: startedAt,
				Duration:  time.Since(startedAt),
				Err:       fmt.Errorf("monitor cycle panic: %v", r),
			}
			m.logger.Error("Error in CCTV monitor", zap.Error(result.Err))
		}
		m.record(result)
	}()

	result = m.streams.Cycle(ctx, m.sessions)
	if result.Err != nil {
		m.logger.Error("Error in CCTV monitor, cycle rolled back", zap.Error(result.Err))
	}
	return result
}

func (m *Monitor) record(result CycleResult) {
	m.mu.Lock()
	m.last = &result
	m.mu.Unlock()

	if m.hub != nil {
		m.hub.Publish(result)
	}
}

func (m *Monitor) setState(state MonitorState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

func (m *Monitor) stopRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-m.stopCh:
		return true
	default:
		return false
	}
}
