package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"tapedeck/internal/config"
)

// minFreeBytes is the floor below which the work directory is considered
// too full to take new jobs. Capture files routinely run tens of gigabytes.
const minFreeBytes = 10 << 30

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem holding path has room for capture
// workspaces.
func CheckDiskSpace(path string) Result {
	const name = "Disk space"

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs %s: %v", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%.1f GiB free on %s", float64(free)/(1<<30), path)
	if free < minFreeBytes {
		return Result{Name: name, Detail: detail + " (below 10 GiB minimum)"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// ToolStatus reports the availability of one external binary.
type ToolStatus struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckTools evaluates the external binaries the pipeline shells out to.
// Both the daemon startup and the CLI status command use this list.
func CheckTools(cfg *config.Config) []ToolStatus {
	requirements := []ToolStatus{
		{
			Name:        "rclone",
			Command:     cfg.Transfer.Binary,
			Description: "Required for acquiring and publishing media",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Transcode.FFmpegBinary,
			Description: "Required for the fallback transform",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for tape format detection",
		},
	}
	if cfg.Editor.Binary != "" {
		requirements = append(requirements, ToolStatus{
			Name:        "Editor",
			Command:     cfg.Editor.Binary,
			Description: "Primary transform tool",
			Optional:    cfg.Editor.FallbackEnabled,
		})
	}
	if cfg.Enhance.Enabled {
		requirements = append(requirements, ToolStatus{
			Name:        "Enhancer",
			Command:     cfg.Enhance.Binary,
			Description: "AI enhancement tool",
			Optional:    true,
		})
	}

	results := make([]ToolStatus, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		if req.Command == "" {
			req.Detail = "command not configured"
			results = append(results, req)
			continue
		}
		if _, err := exec.LookPath(req.Command); err != nil {
			req.Detail = fmt.Sprintf("binary %q not found", req.Command)
			results = append(results, req)
			continue
		}
		req.Available = true
		results = append(results, req)
	}
	return results
}
