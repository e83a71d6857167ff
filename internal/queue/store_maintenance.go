package queue

import (
	"context"
	"time"
)

// RetryFailed returns failed jobs to pending so the pipeline picks them up
// again. With ids it retries only those jobs; without, every failed job. The
// previous error message is kept on the job and recorded under the
// "last_error" metadata key.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	var retried int64
	err := s.mutate(func(doc *Document) (bool, error) {
		now := s.now()
		for _, job := range doc.Jobs {
			if job.Status != StatusFailed {
				continue
			}
			if len(idSet) > 0 {
				if _, ok := idSet[job.ID]; !ok {
					continue
				}
			}
			if job.Error != "" {
				if job.Metadata == nil {
					job.Metadata = make(map[string]string, 1)
				}
				job.Metadata["last_error"] = job.Error
			}
			job.Status = StatusPending
			job.UpdatedAt = now
			retried++
		}
		return retried > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return retried, nil
}

// ReclaimStaleProcessing returns processing jobs whose last update predates
// the cutoff to pending. Run at daemon startup and before each poll cycle to
// recover jobs orphaned by a crash.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	var reclaimed int64
	err := s.mutate(func(doc *Document) (bool, error) {
		now := s.now()
		for _, job := range doc.Jobs {
			if job.Status != StatusProcessing || !job.UpdatedAt.Before(cutoff) {
				continue
			}
			job.Status = StatusPending
			job.UpdatedAt = now
			reclaimed++
		}
		return reclaimed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		s.logger.Warn("reclaimed stale processing jobs",
			"count", reclaimed,
			"cutoff", cutoff,
		)
	}
	return reclaimed, nil
}

// FailProcessing marks every processing job failed with the given reason.
// Used when the daemon stops and an in-flight stage cannot complete.
func (s *Store) FailProcessing(ctx context.Context, reason string) (int64, error) {
	if reason == "" {
		reason = DaemonStopReason
	}

	var failed int64
	err := s.mutate(func(doc *Document) (bool, error) {
		now := s.now()
		for _, job := range doc.Jobs {
			if job.Status != StatusProcessing {
				continue
			}
			if err := applyTransition(job, StatusFailed, Transition{Error: reason}, now); err != nil {
				return false, err
			}
			failed++
		}
		return failed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return failed, nil
}

// RemoveOlderThan drops terminal jobs whose last update predates the cutoff.
func (s *Store) RemoveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := s.mutate(func(doc *Document) (bool, error) {
		kept := doc.Jobs[:0]
		for _, job := range doc.Jobs {
			if job.Status.IsTerminal() && job.UpdatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, job)
		}
		doc.Jobs = kept
		return removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Stats aggregates queue counts and processing durations of completed jobs.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.view(func(doc *Document) error {
		var durations []float64
		for _, job := range doc.Jobs {
			stats.Total++
			switch job.Status {
			case StatusPending:
				stats.Pending++
			case StatusProcessing:
				stats.Processing++
			case StatusCompleted:
				stats.Completed++
				if job.StartedAt != nil && job.CompletedAt != nil {
					if d := job.CompletedAt.Sub(*job.StartedAt).Seconds(); d >= 0 {
						durations = append(durations, d)
					}
				}
			case StatusFailed:
				stats.Failed++
			}
		}
		if len(durations) > 0 {
			minimum, maximum, total := durations[0], durations[0], 0.0
			for _, d := range durations {
				if d < minimum {
					minimum = d
				}
				if d > maximum {
					maximum = d
				}
				total += d
			}
			stats.AvgProcessingSeconds = total / float64(len(durations))
			stats.MinProcessingSeconds = minimum
			stats.MaxProcessingSeconds = maximum
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}
