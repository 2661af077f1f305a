package broker

import "time"

// Exchange and routing topology. Both queues bind to the same direct
// exchange; the API publishes new jobs, the worker publishes completions.
const (
	Exchange = "moderation"

	QueueJobs      = "moderation_jobs"
	QueueCompleted = "job_completed"

	RoutingKeyJobNew       = "moderation.job.new"
	RoutingKeyJobCompleted = "moderation.job.completed"
)

// JobMessage is published by the API when a job is accepted and consumed
// by the worker.
type JobMessage struct {
	JobID     string         `json:"job_id"`
	TenantID  string         `json:"tenant_id"`
	CommentID string         `json:"comment_id,omitempty"`
	Text      string         `json:"text"`
	Type      string         `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CompletionMessage is published by the worker when a job finishes and
// consumed by the webhook dispatcher. Its JSON shape is also the webhook
// payload delivered to clients.
type CompletionMessage struct {
	JobID            string    `json:"job_id"`
	TenantID         string    `json:"tenant_id"`
	CommentID        string    `json:"comment_id,omitempty"`
	Text             string    `json:"text"`
	Sentiment        string    `json:"sentiment"`
	ModerationResult string    `json:"moderation_result"`
	Confidence       float64   `json:"confidence"`
	Reasoning        string    `json:"reasoning"`
	DetectedLabels   []string  `json:"detected_labels,omitempty"`
	SeverityScore    *int      `json:"severity_score,omitempty"`
	ExtractedText    string    `json:"extracted_text,omitempty"`
	TranscribedText  string    `json:"transcribed_text,omitempty"`
	CompletedAt      time.Time `json:"completed_at"`
	ProcessingMs     int64     `json:"processing_duration_ms"`
}
