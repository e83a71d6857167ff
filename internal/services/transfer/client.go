// Package transfer moves capture media between the remote store and the
// local workspace using rclone.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tapedeck/internal/config"
	"tapedeck/internal/fileutil"
	"tapedeck/internal/logging"
	"tapedeck/internal/services"
	"tapedeck/internal/services/toolexec"
)

// Client wraps the rclone binary for acquiring source captures and
// publishing finished outputs.
type Client struct {
	binary  string
	remote  string
	timeout time.Duration
	logger  *slog.Logger
	exec    toolexec.Executor
}

// Option customizes client construction.
type Option func(*Client)

// WithExecutor overrides the command executor, primarily for tests.
func WithExecutor(exec toolexec.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// New builds a transfer client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		binary:  cfg.Transfer.Binary,
		remote:  cfg.Transfer.Remote,
		timeout: time.Duration(cfg.Transfer.TimeoutSeconds) * time.Second,
		logger:  logging.NewComponentLogger(logger, "transfer"),
		exec:    toolexec.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Acquire copies the referenced captures into destDir. Local paths are
// copied directly; everything else is fetched from the configured remote.
// Individual failures are logged and skipped so one bad reference does not
// sink the batch; the caller decides what an empty result means.
func (c *Client) Acquire(ctx context.Context, refs []string, destDir string, jobID string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "acquire", "mkdir", destDir, err)
	}

	acquired := make([]string, 0, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return acquired, err
		}
		dest := filepath.Join(destDir, filepath.Base(ref))
		if err := c.fetchOne(ctx, ref, dest); err != nil {
			logging.WarnWithContext(c.logger, "failed to acquire source, skipping", "acquire_skip",
				logging.String(logging.FieldJobID, jobID),
				logging.String("ref", ref),
				logging.Error(err),
			)
			continue
		}
		acquired = append(acquired, dest)
	}

	c.logger.Info("sources acquired",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("requested", len(refs)),
		logging.Int("acquired", len(acquired)),
	)
	return acquired, nil
}

func (c *Client) fetchOne(ctx context.Context, ref, dest string) error {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		if err := fileutil.CopyFileVerified(ref, dest); err != nil {
			return services.Wrap(services.ErrTransient, "acquire", "copy local", ref, err)
		}
		return nil
	}

	source := c.remoteRef(ref)
	if err := c.runRclone(ctx, "copyto", source, dest); err != nil {
		return err
	}
	if _, err := os.Stat(dest); err != nil {
		return services.Wrap(services.ErrExternalTool, "acquire", "verify download", source, err)
	}
	return nil
}

// Publish uploads the finished outputs to the destination folder on the
// remote and returns the remote references. Any failed upload fails the
// whole publish; a half-published job must not be marked complete.
func (c *Client) Publish(ctx context.Context, paths []string, destFolder string, jobID string) ([]string, error) {
	published := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		target := c.remoteRef(strings.TrimSuffix(destFolder, "/") + "/" + filepath.Base(path))
		if err := c.runRclone(ctx, "copyto", path, target); err != nil {
			return published, services.Wrap(services.ErrExternalTool, "publish", "upload", path, err)
		}
		published = append(published, target)
	}

	c.logger.Info("outputs published",
		logging.String(logging.FieldJobID, jobID),
		logging.String("folder", destFolder),
		logging.Int("files", len(published)),
	)
	return published, nil
}

func (c *Client) remoteRef(ref string) string {
	if strings.Contains(ref, ":") {
		return ref
	}
	return fmt.Sprintf("%s:%s", c.remote, ref)
}

func (c *Client) runRclone(ctx context.Context, args ...string) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		c.logger.Debug("rclone output", logging.String("line", line))
	})
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return services.Wrap(services.ErrTimeout, "transfer", "rclone "+args[0], "", err)
		}
		return services.Wrap(services.ErrExternalTool, "transfer", "rclone "+args[0], "", err)
	}
	return nil
}
