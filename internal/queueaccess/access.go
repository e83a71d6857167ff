// Package queueaccess gives CLI commands one queue surface regardless of
// whether a daemon is running: the daemon HTTP API when reachable, the
// queue file directly otherwise.
package queueaccess

import (
	"context"

	"tapedeck/internal/api"
	"tapedeck/internal/queue"
)

// Access provides queue operations regardless of API or direct store backing.
type Access interface {
	Stats(ctx context.Context) (queue.Stats, error)
	List(ctx context.Context, statuses []string) ([]api.JobView, error)
	Describe(ctx context.Context, id string) (*api.JobView, error)
	Add(ctx context.Context, req api.IntakeRequest) (*api.JobView, error)
	Remove(ctx context.Context, id string) (bool, error)
	Retry(ctx context.Context, ids []string) (int64, error)
	Clear(ctx context.Context, statuses []string) (int64, error)
}

// NewAPIAccess returns an Access backed by the daemon HTTP API.
func NewAPIAccess(client *api.Client) Access {
	return &apiAccess{client: client}
}

// NewStoreAccess returns an Access backed by the queue file directly.
func NewStoreAccess(store *queue.Store) Access {
	return &storeAccess{store: store, service: api.NewQueueService(store)}
}

type apiAccess struct {
	client *api.Client
}

func (a *apiAccess) Stats(ctx context.Context) (queue.Stats, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return queue.Stats{}, err
	}
	return status.Pipeline.Queue, nil
}

func (a *apiAccess) List(ctx context.Context, statuses []string) ([]api.JobView, error) {
	return a.client.List(ctx, statuses...)
}

func (a *apiAccess) Describe(ctx context.Context, id string) (*api.JobView, error) {
	return a.client.Describe(ctx, id)
}

func (a *apiAccess) Add(ctx context.Context, req api.IntakeRequest) (*api.JobView, error) {
	return a.client.Add(ctx, req)
}

func (a *apiAccess) Remove(ctx context.Context, id string) (bool, error) {
	return a.client.Remove(ctx, id)
}

func (a *apiAccess) Retry(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for _, id := range ids {
		updated, err := a.client.Retry(ctx, id)
		if err != nil {
			return total, err
		}
		total += updated
	}
	return total, nil
}

// Clear is intentionally store-only: draining the whole queue while the
// daemon is processing invites half-removed jobs, so the API does not
// expose it.
func (a *apiAccess) Clear(ctx context.Context, statuses []string) (int64, error) {
	return 0, errClearRequiresStore
}

type storeAccess struct {
	store   *queue.Store
	service *api.QueueService
}

func (a *storeAccess) Stats(ctx context.Context) (queue.Stats, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.JobView, error) {
	return a.service.List(ctx, parseStatuses(statuses)...)
}

func (a *storeAccess) Describe(ctx context.Context, id string) (*api.JobView, error) {
	return a.service.Describe(ctx, id)
}

func (a *storeAccess) Add(ctx context.Context, req api.IntakeRequest) (*api.JobView, error) {
	return a.service.Add(ctx, req)
}

func (a *storeAccess) Remove(ctx context.Context, id string) (bool, error) {
	return a.service.Remove(ctx, id)
}

func (a *storeAccess) Retry(ctx context.Context, ids []string) (int64, error) {
	return a.service.Retry(ctx, ids...)
}

func (a *storeAccess) Clear(ctx context.Context, statuses []string) (int64, error) {
	return a.service.Clear(ctx, parseStatuses(statuses)...)
}

func parseStatuses(values []string) []queue.Status {
	var statuses []queue.Status
	for _, value := range values {
		if parsed, ok := queue.ParseStatus(value); ok {
			statuses = append(statuses, parsed)
		}
	}
	return statuses
}
