package queue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewJobInput carries validated intake fields for Add.
type NewJobInput struct {
	SourceRefs []string
	SourceLink string
	Manual     bool
	FormatHint string
	Priority   *int
	Options    Options
	OutputDest string
	Metadata   map[string]string
}

func (in *NewJobInput) validate() error {
	refs := make([]string, 0, len(in.SourceRefs))
	for _, ref := range in.SourceRefs {
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			refs = append(refs, trimmed)
		}
	}
	in.SourceRefs = refs
	in.SourceLink = strings.TrimSpace(in.SourceLink)

	if in.Manual {
		if in.SourceLink == "" && len(in.SourceRefs) == 0 {
			return fmt.Errorf("%w: manual job requires a source link", ErrInvalidJob)
		}
		return nil
	}
	if len(in.SourceRefs) == 0 {
		return fmt.Errorf("%w: job requires at least one source reference", ErrInvalidJob)
	}
	return nil
}

// Add validates the input and appends a new pending job to the document.
func (s *Store) Add(ctx context.Context, input NewJobInput) (*Job, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	priority := DefaultPriority
	if input.Priority != nil {
		priority = *input.Priority
	}
	hint := strings.ToLower(strings.TrimSpace(input.FormatHint))
	if hint == "" {
		hint = FormatAuto
	}

	job := &Job{
		ID:         uuid.NewString(),
		Status:     StatusPending,
		Priority:   priority,
		CreatedAt:  now,
		UpdatedAt:  now,
		Manual:     input.Manual,
		SourceRefs: input.SourceRefs,
		SourceLink: input.SourceLink,
		FormatHint: hint,
		Options:    input.Options.clone(),
		OutputDest: strings.TrimSpace(input.OutputDest),
	}
	if len(input.Metadata) > 0 {
		job.Metadata = make(map[string]string, len(input.Metadata))
		for k, v := range input.Metadata {
			job.Metadata[k] = v
		}
	}

	err := s.mutate(func(doc *Document) (bool, error) {
		doc.Jobs = append(doc.Jobs, job)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return job.Clone(), nil
}

// Get returns a copy of the job with the given id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	var found *Job
	err := s.view(func(doc *Document) error {
		if job := doc.findJob(id); job != nil {
			found = job.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// List returns copies of jobs matching any of the provided statuses; with no
// statuses it returns the whole queue in document order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	filter := make(map[Status]struct{}, len(statuses))
	for _, status := range statuses {
		filter[status] = struct{}{}
	}

	var out []*Job
	err := s.view(func(doc *Document) error {
		for _, job := range doc.Jobs {
			if len(filter) > 0 {
				if _, ok := filter[job.Status]; !ok {
					continue
				}
			}
			out = append(out, job.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByStatus returns up to limit jobs in the given status, most recently
// updated first. limit <= 0 means no limit.
func (s *Store) ListByStatus(ctx context.Context, status Status, limit int) ([]*Job, error) {
	jobs, err := s.List(ctx, status)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].UpdatedAt.After(jobs[j].UpdatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// NextPending returns up to limit pending jobs ordered by ascending priority
// then creation time. Equal keys keep their queue insertion order.
func (s *Store) NextPending(ctx context.Context, limit int) ([]*Job, error) {
	jobs, err := s.List(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Priority != jobs[j].Priority {
			return jobs[i].Priority < jobs[j].Priority
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Transition carries the optional fields persisted alongside a status change.
type Transition struct {
	FormatHint string
	Outputs    []string
	Error      string
	Metadata   map[string]string
}

// Transition moves a job to the given status, stamping lifecycle timestamps
// once and merging the extra fields. Completion requires a non-empty output
// list; failure requires an error message.
func (s *Store) Transition(ctx context.Context, id string, status Status, change Transition) (*Job, error) {
	if _, ok := statusSet[status]; !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidJob, status)
	}

	var updated *Job
	err := s.mutate(func(doc *Document) (bool, error) {
		job := doc.findJob(id)
		if job == nil {
			return false, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err := applyTransition(job, status, change, s.now()); err != nil {
			return false, err
		}
		updated = job.Clone()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyTransition(job *Job, status Status, change Transition, now time.Time) error {
	if hint := strings.TrimSpace(change.FormatHint); hint != "" {
		job.FormatHint = hint
	}
	if change.Outputs != nil {
		job.Outputs = append([]string(nil), change.Outputs...)
	}
	if msg := strings.TrimSpace(change.Error); msg != "" {
		job.Error = msg
	}
	if len(change.Metadata) > 0 {
		if job.Metadata == nil {
			job.Metadata = make(map[string]string, len(change.Metadata))
		}
		for k, v := range change.Metadata {
			job.Metadata[k] = v
		}
	}

	switch status {
	case StatusCompleted:
		if len(job.Outputs) == 0 {
			return fmt.Errorf("%w: cannot complete job %s without outputs", ErrInvalidJob, job.ID)
		}
	case StatusFailed:
		if job.Error == "" {
			job.Error = "unknown error"
		}
	}

	job.Status = status
	job.UpdatedAt = now
	stampOnce(&job.StartedAt, status == StatusProcessing, now)
	stampOnce(&job.CompletedAt, status == StatusCompleted, now)
	stampOnce(&job.FailedAt, status == StatusFailed, now)
	return nil
}

// stampOnce sets the timestamp the first time its transition fires and never
// rewrites it afterwards.
func stampOnce(field **time.Time, active bool, now time.Time) {
	if !active || *field != nil {
		return
	}
	stamp := now
	*field = &stamp
}

// Remove deletes a job from the document. It reports whether a job was
// removed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.mutate(func(doc *Document) (bool, error) {
		for i, job := range doc.Jobs {
			if job.ID == id {
				doc.Jobs = append(doc.Jobs[:i], doc.Jobs[i+1:]...)
				removed = true
				return true, nil
			}
		}
		return false, nil
	})
	return removed, err
}

// Clear removes jobs in the given statuses and returns how many were dropped.
// With no statuses it empties the queue.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	filter := make(map[Status]struct{}, len(statuses))
	for _, status := range statuses {
		filter[status] = struct{}{}
	}

	var removed int64
	err := s.mutate(func(doc *Document) (bool, error) {
		kept := doc.Jobs[:0]
		for _, job := range doc.Jobs {
			drop := len(filter) == 0
			if !drop {
				_, drop = filter[job.Status]
			}
			if drop {
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
