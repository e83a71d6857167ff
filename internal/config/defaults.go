package config

const (
	defaultWorkDir                 = "~/.local/share/tapedeck/work"
	defaultLogDir                  = "~/.local/share/tapedeck/logs"
	defaultAPIBind                 = "127.0.0.1:7598"
	defaultTransferBinary          = "rclone"
	defaultTransferRemote          = "gdrive"
	defaultTransferOutputFolder    = "Converted"
	defaultTransferTimeout         = 1800
	defaultEditorTimeout           = 3600
	defaultEnhanceModel            = "proteus"
	defaultEnhanceTimeout          = 7200
	defaultFFmpegBinary            = "ffmpeg"
	defaultDetectionFormat         = "VHS"
	defaultQueuePollInterval       = 5
	defaultMaxConcurrentJobs       = 1
	defaultErrorRetryInterval      = 10
	defaultStaleJobMinutes         = 30
	defaultWorkspaceRetentionHours = 72
	defaultNotifyRequestTimeout    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Transfer: Transfer{
			Binary:         defaultTransferBinary,
			Remote:         defaultTransferRemote,
			OutputFolder:   defaultTransferOutputFolder,
			TimeoutSeconds: defaultTransferTimeout,
		},
		Editor: Editor{
			TimeoutSeconds:  defaultEditorTimeout,
			FallbackEnabled: true,
		},
		Enhance: Enhance{
			Enabled:        false,
			Model:          defaultEnhanceModel,
			TimeoutSeconds: defaultEnhanceTimeout,
		},
		Transcode: Transcode{
			FFmpegBinary: defaultFFmpegBinary,
		},
		Detection: Detection{
			DefaultFormat: defaultDetectionFormat,
		},
		Workflow: Workflow{
			QueuePollInterval:       defaultQueuePollInterval,
			MaxConcurrentJobs:       defaultMaxConcurrentJobs,
			ErrorRetryInterval:      defaultErrorRetryInterval,
			StaleJobMinutes:         defaultStaleJobMinutes,
			CleanupTempFiles:        true,
			WorkspaceRetentionHours: defaultWorkspaceRetentionHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobStarted:     true,
			JobCompleted:   true,
			JobFailed:      true,
			QueueDrained:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
