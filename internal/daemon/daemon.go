// Package daemon hosts the pipeline manager and the HTTP API behind a
// single-instance lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tapedeck/internal/config"
	"tapedeck/internal/logging"
	"tapedeck/internal/pipeline"
	"tapedeck/internal/preflight"
	"tapedeck/internal/queue"
	"tapedeck/internal/staging"
)

// Daemon coordinates background processing and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	pipeline *pipeline.Manager

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	QueueFilePath string
	LockFilePath  string
	Pipeline      pipeline.StatusSummary
	Tools         []preflight.ToolStatus
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, manager *pipeline.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, pipeline manager, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "tapedeck.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		pipeline: manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, verifies the environment, sweeps stale
// workspaces, and launches the pipeline and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tapedeck daemon instance is already running")
	}

	checks := preflight.RunAll(d.cfg)
	preflight.LogSnapshot(d.logger, checks)
	if !preflight.AllPassed(checks) {
		logging.WarnWithContext(d.logger, "preflight checks failed, jobs may fail until resolved", "preflight_failed",
			logging.String(logging.FieldErrorHint, "run the status command for details"),
			logging.String(logging.FieldImpact, "pipeline stages depending on missing tools will fail"),
		)
	}

	retention := time.Duration(d.cfg.Workflow.WorkspaceRetentionHours) * time.Hour
	if retention > 0 {
		staging.CleanStale(d.cfg.Paths.WorkDir, retention, d.logger)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.pipeline.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start pipeline: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.pipeline.Stop()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("tapedeck daemon started",
		logging.String("lock", d.lockPath),
		logging.String("queue", d.store.Path()),
	)
	return nil
}

// Stop halts processing, fails in-flight jobs with the shutdown reason, and
// releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pipeline.Stop()
	if err := d.pipeline.FailInFlight(context.Background()); err != nil {
		d.logger.Warn("failed to settle in-flight jobs", logging.Error(err))
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("tapedeck daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// StartProcessing resumes the pipeline loop after a StopProcessing call.
func (d *Daemon) StartProcessing() error {
	if !d.running.Load() || d.ctx == nil {
		return errors.New("daemon is not running")
	}
	return d.pipeline.Start(d.ctx)
}

// StopProcessing pauses the pipeline loop without shutting the daemon down.
func (d *Daemon) StopProcessing() {
	d.pipeline.Stop()
}

// APIAddr returns the bound API address, empty until Start succeeds.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	summary, err := d.pipeline.Status(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		QueueFilePath: d.store.Path(),
		LockFilePath:  d.lockPath,
		Pipeline:      summary,
		Tools:         preflight.CheckTools(d.cfg),
	}, nil
}
