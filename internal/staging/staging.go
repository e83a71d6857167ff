// Package staging manages per-job scratch directories under the work
// directory.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const dirPrefix = "job-"

// Workspace is the scratch layout for one job: acquired sources land in
// InputDir, transform results in OutputDir, enhancement results in
// EnhancedDir.
type Workspace struct {
	Root        string
	InputDir    string
	OutputDir   string
	EnhancedDir string
}

// NewWorkspace creates the scratch directories for a job and returns their
// layout.
func NewWorkspace(workDir, jobID string) (*Workspace, error) {
	root := filepath.Join(workDir, dirPrefix+jobID)
	ws := &Workspace{
		Root:        root,
		InputDir:    filepath.Join(root, "input"),
		OutputDir:   filepath.Join(root, "output"),
		EnhancedDir: filepath.Join(root, "enhanced"),
	}
	for _, dir := range []string{ws.InputDir, ws.OutputDir, ws.EnhancedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace directory %q: %w", dir, err)
		}
	}
	return ws, nil
}

// Remove deletes the workspace and everything in it.
func (w *Workspace) Remove() error {
	if w == nil || w.Root == "" {
		return nil
	}
	if err := os.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("remove workspace %q: %w", w.Root, err)
	}
	return nil
}

// IsJobDir reports whether a directory name follows the job workspace
// naming scheme.
func IsJobDir(name string) bool {
	return strings.HasPrefix(name, dirPrefix)
}
