package queueaccess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tapedeck/internal/api"
	"tapedeck/internal/config"
	"tapedeck/internal/logging"
	"tapedeck/internal/queue"
)

var errClearRequiresStore = errors.New("clearing the queue requires direct store access; stop the daemon first")

// Session represents a queue access handle and its cleanup function.
type Session struct {
	Access Access
	Daemon bool
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open probes the daemon API first and falls back to opening the queue
// file directly when no daemon answers.
func Open(cfg *config.Config) (Session, error) {
	client := api.NewClient(cfg.Paths.APIBind)

	probeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Status(probeCtx); err == nil {
		return Session{Access: NewAPIAccess(client), Daemon: true}, nil
	}

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(store),
		close:  store.Close,
	}, nil
}
