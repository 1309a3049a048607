// Package monitor runs a single check of the target site and, when it
// fails, gathers a screenshot and sends the alert.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/osbits/sitewatch/internal/capture"
	"github.com/osbits/sitewatch/internal/checks"
	"github.com/osbits/sitewatch/internal/config"
	"github.com/osbits/sitewatch/internal/notifier"
)

// ExitCrashDetected is the process status used when FailOnCrash is set and
// the site was found unhealthy.
const ExitCrashDetected = 2

// State is the terminal state of a pass.
type State string

const (
	StateHealthy State = "healthy"
	StateAlerted State = "alerted"
	StateSkipped State = "skipped"
	// StateCancelled marks a pass interrupted before the check finished.
	StateCancelled State = "cancelled"
)

// HealthChecker probes a URL once.
type HealthChecker interface {
	Check(ctx context.Context, url string) checks.Result
}

// Capturer produces screenshot evidence.
type Capturer interface {
	Capture(ctx context.Context, url string) (*capture.Evidence, error)
}

// Outcome records what a pass did.
type Outcome struct {
	State      State
	Result     checks.Result
	Evidence   *capture.Evidence
	CaptureErr error
}

// Crashed reports whether the site was found unhealthy.
func (o Outcome) Crashed() bool {
	return o.State == StateAlerted
}

// ExitCode maps an outcome to a process exit status. Detected crashes only
// change the status when failOnCrash is set.
func ExitCode(o Outcome, failOnCrash bool) int {
	if failOnCrash && o.Crashed() {
		return ExitCrashDetected
	}
	return 0
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithErrorReporter registers a callback for contained capture failures.
func WithErrorReporter(fn func(error)) Option {
	return func(m *Monitor) {
		m.report = fn
	}
}

// Monitor sequences check, capture and notify.
type Monitor struct {
	target      string
	checker     HealthChecker
	capturer    Capturer
	notifier    notifier.Notifier
	logger      *slog.Logger
	location    *time.Location
	maintenance []window
	report      func(error)
	now         func() time.Time
}

// New constructs a monitor for cfg.Target.
func New(cfg *config.Config, checker HealthChecker, capturer Capturer, n notifier.Notifier, logger *slog.Logger, location *time.Location, opts ...Option) (*Monitor, error) {
	if location == nil {
		location = time.UTC
	}
	maintenance, err := parseMaintenance(cfg.Service.MaintenanceWindows, location, cfg.Service.MaintenanceDuration.Duration)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		target:      cfg.Target.URL,
		checker:     checker,
		capturer:    capturer,
		notifier:    n,
		logger:      logger,
		location:    location,
		maintenance: maintenance,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Run performs exactly one check. Capture and notification failures are
// logged and never stop the alert from being attempted.
func (m *Monitor) Run(ctx context.Context) Outcome {
	if m.inMaintenance(m.now().In(m.location)) {
		m.logger.Info("skipping check due to maintenance window", "url", m.target)
		return Outcome{State: StateSkipped}
	}

	m.logger.Info("checking site", "url", m.target)
	result := m.checker.Check(ctx, m.target)
	out := Outcome{Result: result}

	if !result.Success && ctx.Err() != nil {
		out.State = StateCancelled
		m.logger.Warn("check cancelled", "url", m.target, "error", ctx.Err())
		return out
	}

	if result.Success {
		out.State = StateHealthy
		m.logger.Info("site is healthy", "url", m.target, "reason", result.Reason, "latency", result.Latency)
		m.logger.Info("check complete")
		return out
	}

	out.State = StateAlerted
	attrs := []any{"url", m.target, "reason", result.Reason, "kind", result.Kind.String()}
	if result.StatusCode != 0 {
		attrs = append(attrs, "status", result.StatusCode)
	}
	m.logger.Warn("detected crash", attrs...)

	evidence, err := m.capturer.Capture(ctx, m.target)
	if err != nil {
		out.CaptureErr = err
		m.logger.Error("screenshot capture failed", "url", m.target, "error", err)
		if m.report != nil {
			m.report(err)
		}
		evidence = nil
	}
	out.Evidence = evidence

	m.notifier.Notify(ctx, result.Reason, evidence)
	m.logger.Info("check complete")
	return out
}

func (m *Monitor) inMaintenance(now time.Time) bool {
	for _, mw := range m.maintenance {
		if mw.contains(now) {
			return true
		}
	}
	return false
}
