// Package notifications sends operator push notifications through ntfy.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tapedeck/internal/config"
)

const userAgent = "Tapedeck/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyJobStarted(ctx context.Context, jobID, format string, sources int) error
	NotifyJobCompleted(ctx context.Context, jobID string, outputs int, duration time.Duration) error
	NotifyJobFailed(ctx context.Context, jobID, reason string) error
	NotifyQueueDrained(ctx context.Context, processed, failed int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		events:   cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	events   config.Notifications
}

func (n *ntfyService) NotifyJobStarted(ctx context.Context, jobID, format string, sources int) error {
	if !n.events.JobStarted {
		return nil
	}
	format = strings.TrimSpace(format)
	if format == "" {
		format = "unclassified"
	}
	data := payload{
		title:   "Tapedeck - Job Started",
		message: fmt.Sprintf("Processing job %s (%s, %d sources)", jobID, format, sources),
		tags:    []string{"tapedeck", "job", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID string, outputs int, duration time.Duration) error {
	if !n.events.JobCompleted {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:    "Tapedeck - Job Complete",
		message:  fmt.Sprintf("Job %s complete: %d outputs published in %s", jobID, outputs, duration),
		tags:     []string{"tapedeck", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID, reason string) error {
	if !n.events.JobFailed {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	data := payload{
		title:    "Tapedeck - Job Failed",
		message:  fmt.Sprintf("Job %s failed: %s", jobID, reason),
		tags:     []string{"tapedeck", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, processed, failed int) error {
	if !n.events.QueueDrained {
		return nil
	}
	var message string
	if failed == 0 {
		message = fmt.Sprintf("Queue drained: %d jobs processed", processed)
	} else {
		message = fmt.Sprintf("Queue drained: %d succeeded, %d failed", processed, failed)
	}
	data := payload{
		title:   "Tapedeck - Queue Drained",
		message: message,
		tags:    []string{"tapedeck", "queue", "drained"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Tapedeck - Test",
		message:  "Notification system test",
		tags:     []string{"tapedeck", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobStarted(context.Context, string, string, int) error { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, int, time.Duration) error {
	return nil
}
func (noopService) NotifyJobFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyQueueDrained(context.Context, int, int) error    { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }
