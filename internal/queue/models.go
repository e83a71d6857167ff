package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

// FormatAuto is the format hint that requests classification.
const FormatAuto = "auto"

// DefaultPriority is the mid-scale priority assigned when intake does not set one.
const DefaultPriority = 5

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the job lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Options carries per-job processing switches.
type Options struct {
	Enhance       bool           `json:"enhance"`
	OutputProfile string         `json:"output_profile,omitempty"`
	Custom        map[string]any `json:"custom,omitempty"`
}

func (o Options) clone() Options {
	cp := o
	if o.Custom != nil {
		cp.Custom = make(map[string]any, len(o.Custom))
		for k, v := range o.Custom {
			cp.Custom[k] = v
		}
	}
	return cp
}

// Job represents one tape conversion request persisted in the queue document.
type Job struct {
	ID          string            `json:"id"`
	Status      Status            `json:"status"`
	Priority    int               `json:"priority"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	FailedAt    *time.Time        `json:"failed_at,omitempty"`
	Manual      bool              `json:"manual,omitempty"`
	SourceRefs  []string          `json:"source_refs"`
	SourceLink  string            `json:"source_link,omitempty"`
	FormatHint  string            `json:"format_hint,omitempty"`
	Options     Options           `json:"options"`
	OutputDest  string            `json:"output_dest,omitempty"`
	Outputs     []string          `json:"outputs,omitempty"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NeedsDetection reports whether the job requires format classification.
func (j *Job) NeedsDetection() bool {
	hint := strings.ToLower(strings.TrimSpace(j.FormatHint))
	return hint == "" || hint == FormatAuto
}

// AcquireRefs returns every reference the acquire stage should resolve:
// the explicit source refs plus the lazily-resolved source link, so a
// manual job queued with only a link still has a source to fetch.
func (j *Job) AcquireRefs() []string {
	refs := append([]string(nil), j.SourceRefs...)
	if link := strings.TrimSpace(j.SourceLink); link != "" {
		refs = append(refs, link)
	}
	return refs
}

// Clone returns a deep copy so callers can mutate freely without touching
// store state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.StartedAt = cloneTime(j.StartedAt)
	cp.CompletedAt = cloneTime(j.CompletedAt)
	cp.FailedAt = cloneTime(j.FailedAt)
	cp.SourceRefs = append([]string(nil), j.SourceRefs...)
	cp.Outputs = append([]string(nil), j.Outputs...)
	cp.Options = j.Options.clone()
	if j.Metadata != nil {
		cp.Metadata = make(map[string]string, len(j.Metadata))
		for k, v := range j.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// normalize backfills fields that older documents may omit.
func (j *Job) normalize() {
	j.Status, _ = ParseStatus(string(j.Status))
	if j.Status == "" {
		j.Status = StatusPending
	}
	if strings.TrimSpace(j.FormatHint) == "" {
		j.FormatHint = FormatAuto
	}
	if j.SourceRefs == nil {
		j.SourceRefs = []string{}
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// Stats aggregates queue counts plus processing durations of completed jobs.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`

	AvgProcessingSeconds float64 `json:"avg_processing_seconds"`
	MinProcessingSeconds float64 `json:"min_processing_seconds"`
	MaxProcessingSeconds float64 `json:"max_processing_seconds"`
}
