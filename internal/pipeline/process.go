package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tapedeck/internal/detect"
	"tapedeck/internal/logging"
	"tapedeck/internal/queue"
	"tapedeck/internal/services"
	"tapedeck/internal/staging"
)

// processJob drives one job through the full pipeline. The workspace is
// removed on every exit path when cleanup is enabled, success or not.
func (m *Manager) processJob(ctx context.Context, job *queue.Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	logger := m.logger.With(logging.String(logging.FieldJobID, job.ID))
	m.setLastJob(job.ID)
	start := time.Now()

	if _, err := m.store.Transition(jobCtx, job.ID, queue.StatusProcessing, queue.Transition{}); err != nil {
		m.setLastError(err)
		logger.Error("failed to mark job processing", logging.Error(err))
		return
	}

	ws, err := staging.NewWorkspace(m.cfg.Paths.WorkDir, job.ID)
	if err != nil {
		m.failJob(jobCtx, logger, job, "staging", err)
		return
	}
	defer m.releaseWorkspace(logger, ws)

	sources := job.AcquireRefs()
	if err := m.notifier.NotifyJobStarted(jobCtx, job.ID, job.FormatHint, len(sources)); err != nil {
		logger.Warn("job started notification failed", logging.Error(err))
	}

	// Acquire.
	acquired, err := m.transfer.Acquire(services.WithStage(jobCtx, "acquire"), sources, ws.InputDir, job.ID)
	if err != nil {
		m.failJob(jobCtx, logger, job, "acquire", err)
		return
	}
	if len(acquired) == 0 {
		m.failJob(jobCtx, logger, job, "acquire",
			services.Wrap(services.ErrValidation, "acquire", "", "no sources could be acquired", nil))
		return
	}

	// Classify.
	format := job.FormatHint
	if job.NeedsDetection() {
		result, err := m.classifier.Classify(services.WithStage(jobCtx, "classify"), acquired)
		if err != nil {
			m.failJob(jobCtx, logger, job, "classify", err)
			return
		}
		format = result.Format
		meta := map[string]string{
			"detected_format":      result.Format,
			"detection_confidence": strconv.FormatFloat(result.Confidence, 'f', 3, 64),
		}
		if _, err := m.store.Transition(jobCtx, job.ID, queue.StatusProcessing,
			queue.Transition{FormatHint: format, Metadata: meta}); err != nil {
			logger.Warn("failed to persist detected format", logging.Error(err))
		}
	} else {
		format = detect.CanonicalFormat(format)
	}

	// Transform, falling back to ffmpeg when the editor cannot deliver.
	outputs, usedFallback, err := m.transform(services.WithStage(jobCtx, "transform"), logger, acquired, format, ws, job.ID)
	if err != nil {
		m.failJob(jobCtx, logger, job, "transform", err)
		return
	}

	// Enhance, best effort: a broken enhancer never loses the transform.
	finalOutputs := m.enhance(services.WithStage(jobCtx, "enhance"), logger, job, outputs, ws)

	// Publish.
	dest := strings.TrimSpace(job.OutputDest)
	if dest == "" {
		dest = m.cfg.Transfer.OutputFolder
	}
	refs, err := m.transfer.Publish(services.WithStage(jobCtx, "publish"), finalOutputs, dest, job.ID)
	if err != nil {
		m.failJob(jobCtx, logger, job, "publish", err)
		return
	}
	if len(refs) == 0 {
		m.failJob(jobCtx, logger, job, "publish",
			services.Wrap(services.ErrExternalTool, "publish", "", "no outputs were published", nil))
		return
	}

	meta := map[string]string{"published_folder": dest}
	if usedFallback {
		meta["transform_fallback"] = "true"
	}
	if _, err := m.store.Transition(jobCtx, job.ID, queue.StatusCompleted,
		queue.Transition{Outputs: refs, Metadata: meta}); err != nil {
		m.setLastError(err)
		logger.Error("failed to mark job completed", logging.Error(err))
		return
	}

	m.mu.Lock()
	m.processed++
	m.mu.Unlock()

	duration := time.Since(start)
	logger.Info("job completed",
		logging.String(logging.FieldFormat, format),
		logging.Int("outputs", len(refs)),
		logging.Duration("duration", duration),
		logging.Bool("fallback", usedFallback),
	)
	if err := m.notifier.NotifyJobCompleted(jobCtx, job.ID, len(refs), duration); err != nil {
		logger.Warn("job completed notification failed", logging.Error(err))
	}
}

func (m *Manager) transform(ctx context.Context, logger *slog.Logger, files []string, format string, ws *staging.Workspace, jobID string) ([]string, bool, error) {
	if m.primary != nil {
		outputs, err := m.primary.Process(ctx, files, format, ws.OutputDir, jobID)
		if err == nil {
			return outputs, false, nil
		}
		if ctx.Err() != nil {
			return nil, false, err
		}
		if !m.cfg.Editor.FallbackEnabled {
			return nil, false, err
		}
		logging.WarnWithContext(logger, "editor transform failed, falling back to ffmpeg", "transform_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "output quality may be reduced"),
		)
	}
	if m.fallback == nil {
		return nil, false, services.Wrap(services.ErrConfiguration, "transform", "", "no transform tool available", nil)
	}
	outputs, err := m.fallback.Process(ctx, files, format, ws.OutputDir, jobID)
	if err != nil {
		return nil, true, err
	}
	return outputs, m.primary != nil, nil
}

// enhance replaces each output with its enhanced counterpart when the
// enhancer produced one, keeping the original otherwise.
func (m *Manager) enhance(ctx context.Context, logger *slog.Logger, job *queue.Job, outputs []string, ws *staging.Workspace) []string {
	if m.enhancer == nil || !m.enhancer.Enabled() || !job.Options.Enhance {
		return outputs
	}

	enhanced, err := m.enhancer.Enhance(ctx, outputs, ws.EnhancedDir, job.ID)
	if err != nil {
		logging.WarnWithContext(logger, "enhancement failed, publishing unenhanced outputs", "enhance_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outputs published without AI enhancement"),
		)
		return outputs
	}

	byStem := make(map[string]string, len(enhanced))
	for _, path := range enhanced {
		base := filepath.Base(path)
		stem := strings.TrimSuffix(base, "_enhanced"+filepath.Ext(base))
		byStem[stem] = path
	}

	merged := make([]string, 0, len(outputs))
	for _, output := range outputs {
		base := filepath.Base(output)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if replacement, ok := byStem[stem]; ok {
			merged = append(merged, replacement)
			continue
		}
		merged = append(merged, output)
	}
	return merged
}

// failJob records the failure on the job. When the surrounding context was
// canceled the store write uses a fresh context so shutdown still persists
// the state.
func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, job *queue.Job, stage string, cause error) {
	m.setLastError(cause)
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()

	reason := cause.Error()
	writeCtx := ctx
	if ctx.Err() != nil {
		writeCtx = context.Background()
		reason = queue.DaemonStopReason
	}

	meta := map[string]string{
		"failed_stage":   stage,
		"error_category": services.Kind(cause),
	}
	if _, err := m.store.Transition(writeCtx, job.ID, queue.StatusFailed,
		queue.Transition{Error: reason, Metadata: meta}); err != nil {
		logger.Error("failed to record job failure", logging.Error(err))
	}

	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.String(logging.FieldStage, stage),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, fmt.Sprintf("inspect the %s stage logs, then retry the job", stage)),
	)
	if err := m.notifier.NotifyJobFailed(writeCtx, job.ID, reason); err != nil {
		logger.Warn("job failed notification failed", logging.Error(err))
	}
}

func (m *Manager) releaseWorkspace(logger *slog.Logger, ws *staging.Workspace) {
	if !m.cfg.Workflow.CleanupTempFiles {
		return
	}
	if err := ws.Remove(); err != nil {
		logging.WarnWithContext(logger, "failed to remove job workspace", "workspace_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check work_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
}
