// Package preflight verifies the runtime environment before the daemon
// starts taking jobs.
package preflight

import (
	"log/slog"

	"tapedeck/internal/config"
	"tapedeck/internal/logging"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckDiskSpace(cfg.Paths.WorkDir))

	for _, status := range CheckTools(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		if !status.Available && status.Optional {
			result.Passed = true
			result.Detail = status.Detail + " (optional)"
		}
		results = append(results, result)
	}

	return results
}

// AllPassed reports whether every check in results passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// LogSnapshot writes one log line per check at a level matching its outcome.
func LogSnapshot(logger *slog.Logger, results []Result) {
	if logger == nil {
		return
	}
	for _, result := range results {
		attrs := logging.Args(
			logging.String("check", result.Name),
			logging.Bool("passed", result.Passed),
			logging.String("detail", result.Detail),
		)
		if result.Passed {
			logger.Info("preflight check", attrs...)
		} else {
			logger.Warn("preflight check failed", attrs...)
		}
	}
}
