// Package transcode provides the ffmpeg fallback transform used when the
// headless editor is unavailable or fails.
package transcode

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tapedeck/internal/config"
	"tapedeck/internal/detect"
	"tapedeck/internal/logging"
	"tapedeck/internal/services"
	"tapedeck/internal/services/toolexec"
)

// Client transforms captures with ffmpeg filter chains derived from the
// tape format's recommended settings.
type Client struct {
	binary string
	logger *slog.Logger
	exec   toolexec.Executor
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

// New builds a transcode client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		binary: cfg.Transcode.FFmpegBinary,
		logger: logging.NewComponentLogger(logger, "transcode"),
		exec:   toolexec.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Process runs each input through the format's filter chain and returns the
// produced output paths.
func (c *Client) Process(ctx context.Context, files []string, format, outDir, jobID string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transform", "mkdir", outDir, err)
	}

	settings := detect.RecommendedSettings(format)
	filters := filterChain(settings)
	c.logger.Info("ffmpeg transform starting",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldFormat, format),
		logging.String("filters", filters),
		logging.Int("files", len(files)),
	)

	outputs := make([]string, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		output := outputPath(outDir, file)
		if err := c.transcodeOne(ctx, file, output, filters); err != nil {
			return outputs, err
		}
		if info, err := os.Stat(output); err != nil || info.Size() == 0 {
			return outputs, services.Wrap(services.ErrExternalTool, "transform", "ffmpeg",
				"transcode produced no output for "+filepath.Base(file), err)
		}
		outputs = append(outputs, output)
	}

	if len(outputs) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "transform", "ffmpeg", "no outputs produced", nil)
	}
	return outputs, nil
}

func (c *Client) transcodeOne(ctx context.Context, input, output, filters string) error {
	args := []string{"-y", "-i", input}
	if filters != "" {
		args = append(args, "-vf", filters)
	}
	args = append(args,
		"-c:v", "libx264",
		"-crf", "18",
		"-preset", "slow",
		"-c:a", "aac",
		output,
	)

	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		c.logger.Debug("ffmpeg output", logging.String("line", line))
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transform", "ffmpeg", filepath.Base(input), err)
	}
	return nil
}

// filterChain maps recommended settings onto ffmpeg video filters. The
// denoise strengths are tuned per source quality tier rather than exposed
// as configuration.
func filterChain(settings detect.Settings) string {
	filters := make([]string, 0, 3)
	if settings.Deinterlace {
		filters = append(filters, "yadif=1")
	}
	switch settings.NoiseReduction {
	case "high":
		filters = append(filters, "hqdn3d=8:6:12:9")
	case "medium":
		filters = append(filters, "hqdn3d=4:3:6:4.5")
	case "low":
		filters = append(filters, "hqdn3d=2:1:2:3")
	}
	if settings.Sharpening == "light" {
		filters = append(filters, "unsharp=5:5:0.8:3:3:0.4")
	}
	return strings.Join(filters, ",")
}

func outputPath(outDir, input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+"_processed.mp4")
}
