package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Transfer contains configuration for moving media between the remote
// store and the local workspace.
type Transfer struct {
	Binary         string `toml:"binary"`
	Remote         string `toml:"remote"`
	OutputFolder   string `toml:"output_folder"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Editor contains configuration for the headless editor render tool.
type Editor struct {
	Binary          string `toml:"binary"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	FallbackEnabled bool   `toml:"fallback_enabled"`
}

// Enhance contains configuration for the AI enhancement tool.
type Enhance struct {
	Enabled        bool   `toml:"enabled"`
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcode contains configuration for the ffmpeg fallback transform.
type Transcode struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
}

// Detection contains configuration for tape format classification.
type Detection struct {
	DefaultFormat string `toml:"default_format"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval       int  `toml:"queue_poll_interval"`
	MaxConcurrentJobs       int  `toml:"max_concurrent_jobs"`
	ErrorRetryInterval      int  `toml:"error_retry_interval"`
	StaleJobMinutes         int  `toml:"stale_job_minutes"`
	CleanupTempFiles        bool `toml:"cleanup_temp_files"`
	WorkspaceRetentionHours int  `toml:"workspace_retention_hours"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobStarted     bool   `toml:"job_started"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
	QueueDrained   bool   `toml:"queue_drained"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tapedeck.
//
// Configuration sections by subsystem:
//   - Paths: work/log directories and API bind address
//   - Transfer: rclone remote, default output folder, timeouts
//   - Editor: headless editor render tool
//   - Enhance: AI enhancement tool
//   - Transcode: ffmpeg fallback transform
//   - Detection: tape format classification defaults
//   - Workflow: daemon polling intervals and cleanup policy
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transfer      Transfer      `toml:"transfer"`
	Editor        Editor        `toml:"editor"`
	Enhance       Enhance       `toml:"enhance"`
	Transcode     Transcode     `toml:"transcode"`
	Detection     Detection     `toml:"detection"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tapedeck/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/tapedeck/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tapedeck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueFile returns the path of the persisted queue document.
func (c *Config) QueueFile() string {
	return filepath.Join(c.Paths.WorkDir, "queue.json")
}

// QueueBackupFile returns the path of the last-known-good queue backup.
func (c *Config) QueueBackupFile() string {
	return filepath.Join(c.Paths.WorkDir, "queue_backup.json")
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
