package pipeline

import (
	"context"
	"errors"
	"time"

	"tapedeck/internal/logging"
	"tapedeck/internal/queue"
)

var errAlreadyRunning = errors.New("pipeline already running")

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	drainNotified := true
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.reclaimStale(ctx)

		jobs, err := m.store.NextPending(ctx, m.maxJobs)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch pending jobs",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue file access"),
			)
			m.sleep(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second)
			continue
		}

		if len(jobs) == 0 {
			if !drainNotified {
				m.notifyDrained(ctx)
				drainNotified = true
			}
			m.sleep(ctx, m.pollInterval)
			continue
		}

		drainNotified = false
		for _, job := range jobs {
			if ctx.Err() != nil {
				return
			}
			m.processJob(ctx, job)
		}
	}
}

// reclaimStale returns jobs stuck in processing beyond the configured
// staleness window to pending. A crashed run leaves processing rows behind;
// this is what makes the queue self-healing across restarts.
func (m *Manager) reclaimStale(ctx context.Context) {
	staleAfter := time.Duration(m.cfg.Workflow.StaleJobMinutes) * time.Minute
	if staleAfter <= 0 {
		return
	}
	cutoff := time.Now().Add(-staleAfter)
	reclaimed, err := m.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		m.logger.Warn("reclaim stale processing failed; stuck jobs may remain",
			logging.Error(err),
			logging.String(logging.FieldEventType, "stale_reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check queue file access"),
		)
		return
	}
	if reclaimed > 0 {
		m.logger.Info("reclaimed stale processing jobs", logging.Int64("count", reclaimed))
	}
}

func (m *Manager) notifyDrained(ctx context.Context) {
	m.mu.Lock()
	processed, failed := m.processed, m.failed
	m.processed, m.failed = 0, 0
	m.mu.Unlock()

	if processed == 0 && failed == 0 {
		return
	}
	if err := m.notifier.NotifyQueueDrained(ctx, processed, failed); err != nil {
		m.logger.Warn("queue drained notification failed", logging.Error(err))
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// FailInFlight marks all processing jobs as failed with the daemon stop
// reason. The daemon calls this after Stop during shutdown.
func (m *Manager) FailInFlight(ctx context.Context) error {
	failed, err := m.store.FailProcessing(ctx, queue.DaemonStopReason)
	if err != nil {
		return err
	}
	if failed > 0 {
		m.logger.Info("failed in-flight jobs on shutdown", logging.Int64("count", failed))
	}
	return nil
}
