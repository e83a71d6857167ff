package api

import (
	"context"
	"errors"

	"tapedeck/internal/queue"
)

// QueueService exposes queue operations over a store in view form.
type QueueService struct {
	store *queue.Store
}

// NewQueueService wraps a queue store.
func NewQueueService(store *queue.Store) *QueueService {
	return &QueueService{store: store}
}

// List returns job views filtered by the optional statuses.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]JobView, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe returns the job with the given id, or nil when absent.
func (s *QueueService) Describe(ctx context.Context, id string) (*JobView, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	view := FromJob(job)
	return &view, nil
}

// Add enqueues a job from an intake request.
func (s *QueueService) Add(ctx context.Context, req IntakeRequest) (*JobView, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	job, err := s.store.Add(ctx, req.ToNewJobInput())
	if err != nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// Remove deletes a job; it reports whether one existed.
func (s *QueueService) Remove(ctx context.Context, id string) (bool, error) {
	if s == nil || s.store == nil {
		return false, errors.New("queue store unavailable")
	}
	return s.store.Remove(ctx, id)
}

// Retry resets failed jobs (optionally a subset) to pending.
func (s *QueueService) Retry(ctx context.Context, ids ...string) (int64, error) {
	if s == nil || s.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return s.store.RetryFailed(ctx, ids...)
}

// Clear removes jobs in the given statuses, or all jobs with none given.
func (s *QueueService) Clear(ctx context.Context, statuses ...queue.Status) (int64, error) {
	if s == nil || s.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return s.store.Clear(ctx, statuses...)
}

// Stats aggregates queue counts and processing durations.
func (s *QueueService) Stats(ctx context.Context) (queue.Stats, error) {
	if s == nil || s.store == nil {
		return queue.Stats{}, errors.New("queue store unavailable")
	}
	return s.store.Stats(ctx)
}
