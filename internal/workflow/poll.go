package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cdpops/segment-copier/internal/models"
)

// PollConfig tunes attempt monitoring. Intervals back off multiplicatively
// while an attempt keeps running and snap back to Initial after a transient
// status-check error so recovery is noticed quickly.
type PollConfig struct {
	Initial   time.Duration
	Max       time.Duration
	Factor    float64
	MaxErrors int           // consecutive status-check failures before giving up on an attempt
	Timeout   time.Duration // wall-clock cap over the whole wait
	Tick      time.Duration // scheduler granularity
}

// DefaultPollConfig matches production pacing for long-running table copies.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Initial:   30 * time.Second,
		Max:       300 * time.Second,
		Factor:    1.5,
		MaxErrors: 40,
		Timeout:   2 * time.Hour,
		Tick:      time.Second,
	}
}

// Attempt is one running workflow under observation.
type Attempt struct {
	ID       string
	Database string

	interval  time.Duration
	lastCheck time.Time
	errors    int
}

var terminalSuccess = map[string]bool{"success": true, "completed": true}
var terminalFailure = map[string]bool{"error": true, "killed": true, "failed": true}

// WaitAll polls every attempt until all reach a terminal state or the global
// timeout lapses. Returns completed and failed counts; the only error is
// context cancellation.
func (m *Manager) WaitAll(ctx context.Context, attempts []*Attempt, cfg PollConfig, emit func(models.Event)) (completed, failed int, err error) {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	for _, a := range attempts {
		a.interval = cfg.Initial
	}
	pending := append([]*Attempt(nil), attempts...)
	deadline := m.clock().Add(cfg.Timeout)

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	for len(pending) > 0 && m.clock().Before(deadline) {
		select {
		case <-ctx.Done():
			return completed, failed, ctx.Err()
		case <-ticker.C:
		}

		remaining := pending[:0]
		for _, a := range pending {
			if m.clock().Sub(a.lastCheck) < a.interval {
				remaining = append(remaining, a)
				continue
			}

			status, serr := m.AttemptStatus(ctx, a.ID)
			a.lastCheck = m.clock()
			if serr != nil {
				a.errors++
				m.Logger.Warn("attempt status check failed",
					zap.String("database", a.Database),
					zap.Int("consecutive", a.errors),
					zap.Error(serr))
				if a.errors >= cfg.MaxErrors {
					emit(models.ErrorEvent("Giving up on workflow for %s after repeated status failures", a.Database))
					failed++
					continue
				}
				a.interval = cfg.Initial
				remaining = append(remaining, a)
				continue
			}
			a.errors = 0

			switch {
			case terminalSuccess[status]:
				emit(models.Progress("Data copy for %s completed", a.Database))
				completed++
			case terminalFailure[status]:
				emit(models.ErrorEvent("Data copy for %s failed: %s", a.Database, status))
				failed++
			default:
				a.interval = time.Duration(float64(a.interval) * cfg.Factor)
				if a.interval > cfg.Max {
					a.interval = cfg.Max
				}
				emit(models.Progress("Data copy for %s: %s", a.Database, status))
				remaining = append(remaining, a)
			}
		}
		pending = remaining
	}

	for _, a := range pending {
		emit(models.ErrorEvent("Data copy for %s timed out", a.Database))
		failed++
	}
	return completed, failed, nil
}
