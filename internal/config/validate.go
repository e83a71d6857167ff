package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateTransfer() error {
	if strings.TrimSpace(c.Transfer.Remote) == "" {
		return errors.New("transfer.remote must be set (the rclone remote name)")
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Editor.Binary == "" && !c.Editor.FallbackEnabled {
		return errors.New("editor.binary must be set when editor.fallback_enabled is false")
	}
	if c.Enhance.Enabled && c.Enhance.Binary == "" {
		return errors.New("enhance.binary must be set when enhance.enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"transfer.timeout_seconds":      c.Transfer.TimeoutSeconds,
		"editor.timeout_seconds":        c.Editor.TimeoutSeconds,
		"enhance.timeout_seconds":       c.Enhance.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.max_concurrent_jobs":  c.Workflow.MaxConcurrentJobs,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.stale_job_minutes":    c.Workflow.StaleJobMinutes,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
