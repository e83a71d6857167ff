// Package api defines the transport types and queue service shared by the
// daemon HTTP API and the CLI.
package api

import "tapedeck/internal/queue"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes a queue job in a transport-friendly format.
type JobView struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Priority     int               `json:"priority"`
	Manual       bool              `json:"manual,omitempty"`
	SourceRefs   []string          `json:"sourceRefs"`
	SourceLink   string            `json:"sourceLink,omitempty"`
	Format       string            `json:"format"`
	Enhance      bool              `json:"enhance,omitempty"`
	OutputDest   string            `json:"outputDest,omitempty"`
	Outputs      []string          `json:"outputs,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	CreatedAt    string            `json:"createdAt,omitempty"`
	UpdatedAt    string            `json:"updatedAt,omitempty"`
	StartedAt    string            `json:"startedAt,omitempty"`
	CompletedAt  string            `json:"completedAt,omitempty"`
	FailedAt     string            `json:"failedAt,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// IntakeRequest carries the fields accepted when enqueueing a job.
type IntakeRequest struct {
	SourceRefs []string          `json:"sourceRefs"`
	SourceLink string            `json:"sourceLink,omitempty"`
	Manual     bool              `json:"manual,omitempty"`
	Format     string            `json:"format,omitempty"`
	Priority   *int              `json:"priority,omitempty"`
	Enhance    bool              `json:"enhance,omitempty"`
	OutputDest string            `json:"outputDest,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// PipelineStatus summarizes processing loop state for API consumers.
type PipelineStatus struct {
	Running   bool        `json:"running"`
	LastJobID string      `json:"lastJobId,omitempty"`
	LastError string      `json:"lastError,omitempty"`
	Queue     queue.Stats `json:"queue"`
}

// ToolStatus captures availability of an external tool.
type ToolStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	QueueFilePath string         `json:"queueFilePath"`
	LockFilePath  string         `json:"lockFilePath"`
	Pipeline      PipelineStatus `json:"pipeline"`
	Tools         []ToolStatus   `json:"tools"`
}

// QueueListResponse wraps a collection of jobs for API responses.
type QueueListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// CountResponse reports how many jobs an operation affected.
type CountResponse struct {
	Affected int64 `json:"affected"`
}

// StatsResponse wraps aggregated queue statistics.
type StatsResponse struct {
	Stats queue.Stats `json:"stats"`
}
