// Package editor drives the headless video editor render tool for the
// primary transform pass.
package editor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tapedeck/internal/config"
	"tapedeck/internal/detect"
	"tapedeck/internal/logging"
	"tapedeck/internal/services"
	"tapedeck/internal/services/toolexec"
)

// Client invokes the headless editor binary with a format-specific
// processing profile.
type Client struct {
	binary  string
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

// New builds an editor client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		binary:  cfg.Editor.Binary,
		timeout: time.Duration(cfg.Editor.TimeoutSeconds) * time.Second,
		logger:  logging.NewComponentLogger(logger, "editor"),
		exec:    toolexec.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether an editor binary is set.
func (c *Client) Configured() bool {
	return c.binary != ""
}

// Process renders each input through the profile matching the tape format
// and returns the produced output paths. A run that yields no outputs is an
// error; the caller may fall back to the transcoder.
func (c *Client) Process(ctx context.Context, files []string, format, outDir, jobID string) ([]string, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "transform", "editor", "no editor binary configured", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transform", "mkdir", outDir, err)
	}

	profile := detect.ProfileName(format)
	settings := detect.RecommendedSettings(format)
	c.logger.Info("editor render starting",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldFormat, format),
		logging.String("profile", profile),
		logging.Int("files", len(files)),
	)

	outputs := make([]string, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		output := outputPath(outDir, file)
		if err := c.renderOne(ctx, file, output, profile, settings); err != nil {
			return outputs, err
		}
		if info, err := os.Stat(output); err != nil || info.Size() == 0 {
			return outputs, services.Wrap(services.ErrExternalTool, "transform", "editor",
				"render produced no output for "+filepath.Base(file), err)
		}
		outputs = append(outputs, output)
	}

	if len(outputs) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "transform", "editor", "no outputs produced", nil)
	}
	return outputs, nil
}

func (c *Client) renderOne(ctx context.Context, input, output, profile string, settings detect.Settings) error {
	args := []string{
		"render",
		"--preset", profile,
		"--input", input,
		"--output", output,
	}
	if settings.Deinterlace {
		args = append(args, "--deinterlace")
	}
	if settings.NoiseReduction != "" {
		args = append(args, "--denoise", settings.NoiseReduction)
	}
	if settings.ColorCorrection {
		args = append(args, "--color-correct")
	}
	if settings.Stabilization {
		args = append(args, "--stabilize")
	}
	if settings.Sharpening != "" {
		args = append(args, "--sharpen", settings.Sharpening)
	}
	if settings.AudioEnhancement {
		args = append(args, "--audio-enhance")
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		c.logger.Debug("editor output", logging.String("line", line))
	})
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return services.Wrap(services.ErrTimeout, "transform", "editor", filepath.Base(input), err)
		}
		return services.Wrap(services.ErrExternalTool, "transform", "editor", filepath.Base(input), err)
	}
	return nil
}

func outputPath(outDir, input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+"_processed.mp4")
}
