package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTransfer()
	c.normalizeTools()
	c.normalizeDetection()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTransfer() {
	c.Transfer.Binary = strings.TrimSpace(c.Transfer.Binary)
	if c.Transfer.Binary == "" {
		c.Transfer.Binary = defaultTransferBinary
	}
	c.Transfer.Remote = strings.TrimSpace(c.Transfer.Remote)
	c.Transfer.OutputFolder = strings.TrimSpace(c.Transfer.OutputFolder)
	if c.Transfer.TimeoutSeconds <= 0 {
		c.Transfer.TimeoutSeconds = defaultTransferTimeout
	}
}

func (c *Config) normalizeTools() {
	c.Editor.Binary = strings.TrimSpace(c.Editor.Binary)
	if c.Editor.TimeoutSeconds <= 0 {
		c.Editor.TimeoutSeconds = defaultEditorTimeout
	}
	c.Enhance.Binary = strings.TrimSpace(c.Enhance.Binary)
	c.Enhance.Model = strings.TrimSpace(c.Enhance.Model)
	if c.Enhance.Model == "" {
		c.Enhance.Model = defaultEnhanceModel
	}
	if c.Enhance.TimeoutSeconds <= 0 {
		c.Enhance.TimeoutSeconds = defaultEnhanceTimeout
	}
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	if c.Transcode.FFmpegBinary == "" {
		c.Transcode.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeDetection() {
	c.Detection.DefaultFormat = strings.TrimSpace(c.Detection.DefaultFormat)
	if c.Detection.DefaultFormat == "" {
		c.Detection.DefaultFormat = defaultDetectionFormat
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.MaxConcurrentJobs <= 0 {
		c.Workflow.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.StaleJobMinutes <= 0 {
		c.Workflow.StaleJobMinutes = defaultStaleJobMinutes
	}
	if c.Workflow.WorkspaceRetentionHours <= 0 {
		c.Workflow.WorkspaceRetentionHours = defaultWorkspaceRetentionHours
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
