package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// documentVersion is written into new queue documents.
const documentVersion = "1.0"

// DocumentMetadata describes the queue document itself.
type DocumentMetadata struct {
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	Version     string    `json:"version"`
}

// Document is the persisted queue: the full job list plus document metadata.
// External dashboards read this file directly, so the shape is part of the
// contract.
type Document struct {
	Jobs     []*Job           `json:"jobs"`
	Metadata DocumentMetadata `json:"metadata"`
}

func newDocument(now time.Time) *Document {
	return &Document{
		Jobs: []*Job{},
		Metadata: DocumentMetadata{
			CreatedAt:   now,
			LastUpdated: now,
			Version:     documentVersion,
		},
	}
}

// decodeDocument parses raw bytes and enforces the structural contract: a JSON
// object with a "jobs" array. Anything else is treated as corruption.
func decodeDocument(data []byte) (*Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse queue document: %w", err)
	}
	rawJobs, ok := probe["jobs"]
	if !ok {
		return nil, fmt.Errorf("queue document missing jobs array")
	}
	var jobs []*Job
	if err := json.Unmarshal(rawJobs, &jobs); err != nil {
		return nil, fmt.Errorf("parse queue jobs: %w", err)
	}

	doc := &Document{Jobs: jobs}
	if rawMeta, ok := probe["metadata"]; ok {
		if err := json.Unmarshal(rawMeta, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("parse queue metadata: %w", err)
		}
	}
	if doc.Jobs == nil {
		doc.Jobs = []*Job{}
	}
	for _, job := range doc.Jobs {
		if job == nil {
			return nil, fmt.Errorf("queue document contains null job entry")
		}
		job.normalize()
	}
	if doc.Metadata.Version == "" {
		doc.Metadata.Version = documentVersion
	}
	return doc, nil
}

func (d *Document) findJob(id string) *Job {
	for _, job := range d.Jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}
