// Package pipeline coordinates the tape conversion workflow: acquire,
// classify, transform, enhance, publish.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tapedeck/internal/config"
	"tapedeck/internal/detect"
	"tapedeck/internal/logging"
	"tapedeck/internal/notifications"
	"tapedeck/internal/queue"
)

// TransferClient moves media between the remote store and the workspace.
type TransferClient interface {
	Acquire(ctx context.Context, refs []string, destDir, jobID string) ([]string, error)
	Publish(ctx context.Context, paths []string, destFolder, jobID string) ([]string, error)
}

// TransformClient converts acquired captures into deliverable outputs.
type TransformClient interface {
	Process(ctx context.Context, files []string, format, outDir, jobID string) ([]string, error)
}

// EnhanceClient optionally upscales transform outputs.
type EnhanceClient interface {
	Enabled() bool
	Enhance(ctx context.Context, files []string, outDir, jobID string) ([]string, error)
}

// FormatClassifier determines the tape format of acquired captures.
type FormatClassifier interface {
	Classify(ctx context.Context, paths []string) (detect.Result, error)
}

// Manager owns the processing loop that drains the queue.
type Manager struct {
	cfg        *config.Config
	store      *queue.Store
	logger     *slog.Logger
	notifier   notifications.Service
	transfer   TransferClient
	primary    TransformClient
	fallback   TransformClient
	enhancer   EnhanceClient
	classifier FormatClassifier

	pollInterval time.Duration
	maxJobs      int

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastJobID string
	processed int
	failed    int
}

// Deps bundles the collaborators a Manager needs. Primary may be nil when no
// editor is configured; Fallback must always be set.
type Deps struct {
	Store      *queue.Store
	Transfer   TransferClient
	Primary    TransformClient
	Fallback   TransformClient
	Enhancer   EnhanceClient
	Classifier FormatClassifier
	Notifier   notifications.Service
}

// NewManager constructs a pipeline manager.
func NewManager(cfg *config.Config, deps Deps, logger *slog.Logger) *Manager {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	maxJobs := cfg.Workflow.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        deps.Store,
		logger:       logging.NewComponentLogger(logger, "pipeline"),
		notifier:     notifier,
		transfer:     deps.Transfer,
		primary:      deps.Primary,
		fallback:     deps.Fallback,
		enhancer:     deps.Enhancer,
		classifier:   deps.Classifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		maxJobs:      maxJobs,
	}
}

// Start begins background queue processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the in-flight job to
// settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the processing loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(id string) {
	m.mu.Lock()
	m.lastJobID = id
	m.mu.Unlock()
}
