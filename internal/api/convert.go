package api

import (
	"time"

	"tapedeck/internal/queue"
)

// FromJob converts a queue job into its transport view.
func FromJob(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}
	return JobView{
		ID:           job.ID,
		Status:       string(job.Status),
		Priority:     job.Priority,
		Manual:       job.Manual,
		SourceRefs:   append([]string(nil), job.SourceRefs...),
		SourceLink:   job.SourceLink,
		Format:       job.FormatHint,
		Enhance:      job.Options.Enhance,
		OutputDest:   job.OutputDest,
		Outputs:      append([]string(nil), job.Outputs...),
		ErrorMessage: job.Error,
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
		StartedAt:    formatTimePtr(job.StartedAt),
		CompletedAt:  formatTimePtr(job.CompletedAt),
		FailedAt:     formatTimePtr(job.FailedAt),
		Metadata:     job.Metadata,
	}
}

// FromJobs converts a slice of queue jobs.
func FromJobs(jobs []*queue.Job) []JobView {
	if len(jobs) == 0 {
		return nil
	}
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	return views
}

// ToNewJobInput converts an intake request into store input.
func (r IntakeRequest) ToNewJobInput() queue.NewJobInput {
	return queue.NewJobInput{
		SourceRefs: r.SourceRefs,
		SourceLink: r.SourceLink,
		Manual:     r.Manual,
		FormatHint: r.Format,
		Priority:   r.Priority,
		Options:    queue.Options{Enhance: r.Enhance},
		OutputDest: r.OutputDest,
		Metadata:   r.Metadata,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
