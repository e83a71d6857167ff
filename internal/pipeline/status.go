package pipeline

import (
	"context"

	"tapedeck/internal/queue"
)

// StatusSummary is a point-in-time snapshot of the processing loop and the
// queue behind it.
type StatusSummary struct {
	Running   bool        `json:"running"`
	LastJobID string      `json:"last_job_id,omitempty"`
	LastError string      `json:"last_error,omitempty"`
	Queue     queue.Stats `json:"queue"`
}

// Status reports the current pipeline and queue state.
func (m *Manager) Status(ctx context.Context) (StatusSummary, error) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return StatusSummary{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := StatusSummary{
		Running:   m.running,
		LastJobID: m.lastJobID,
		Queue:     stats,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	return summary, nil
}
