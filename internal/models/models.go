// Package models defines the domain models for the moderation backbone.
// A Client is one registered API tenant; a Job is one moderation request;
// a WebhookAttempt is one delivery attempt of a completion callback.
package models

import (
	"time"
)

// ClientStatus represents the lifecycle state of a client account.
type ClientStatus string

const (
	ClientStatusActive    ClientStatus = "active"
	ClientStatusSuspended ClientStatus = "suspended"
)

// Client represents one API consumer (tenant).
type Client struct {
	ID               int64        `json:"-" db:"id"`
	AppID            string       `json:"app_id" db:"app_id"`
	OrganizationName string       `json:"organization_name" db:"organization_name"`
	Email            string       `json:"email" db:"email"`
	PasswordHash     string       `json:"-" db:"password_hash"`
	APIKey           string       `json:"-" db:"api_key"`
	HMACSecret       string       `json:"-" db:"hmac_secret"`
	WebhookURL       string       `json:"webhook_url" db:"webhook_url"`
	Status           ClientStatus `json:"status" db:"status"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
	LastUsedAt       *time.Time   `json:"last_used_at,omitempty" db:"last_used_at"`
}

// JobStatus represents the status of a moderation job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobType represents the kind of content a job carries.
type JobType string

const (
	JobTypeText  JobType = "text"
	JobTypeImage JobType = "image"
	JobTypeAudio JobType = "audio"
)

// ModerationAction is the final decision for a piece of content.
type ModerationAction string

const (
	ActionAllowed ModerationAction = "allowed"
	ActionReview  ModerationAction = "review"
	ActionReject  ModerationAction = "reject"
)

// Sentiment is the overall sentiment of the submitted text.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Job represents one moderation request. Result fields are nil until the
// worker transitions the job to completed.
type Job struct {
	ID        string         `json:"job_id" db:"job_id"`
	ClientID  int64          `json:"-" db:"client_id"`
	CommentID string         `json:"comment_id,omitempty" db:"comment_id"`
	Text      string         `json:"text" db:"text"`
	Type      JobType        `json:"type" db:"job_type"`
	Metadata  map[string]any `json:"metadata,omitempty" db:"-"`
	Status    JobStatus      `json:"status" db:"status"`

	ModerationResult     *ModerationAction `json:"moderation_result,omitempty" db:"moderation_result"`
	Sentiment            *Sentiment        `json:"sentiment,omitempty" db:"sentiment"`
	Confidence           *float64          `json:"confidence,omitempty" db:"confidence_score"`
	Reasoning            string            `json:"reasoning,omitempty" db:"reasoning"`
	Labels               []string          `json:"detected_labels,omitempty" db:"-"`
	Severity             *int              `json:"severity,omitempty" db:"severity"`
	ProcessingDurationMs *int64            `json:"processing_duration_ms,omitempty" db:"processing_duration_ms"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// IsTerminal reports whether the job has reached a final state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// WebhookAttemptStatus is the outcome of a single delivery attempt.
type WebhookAttemptStatus string

const (
	AttemptStatusSuccess  WebhookAttemptStatus = "success"
	AttemptStatusRetrying WebhookAttemptStatus = "retrying"
	AttemptStatusFailed   WebhookAttemptStatus = "failed"
)

// WebhookAttempt represents one POST attempt to a client webhook.
// Rows are append-only; attempt_number is 1-based and strictly increasing
// per job.
type WebhookAttempt struct {
	ID             string               `json:"id" db:"id"`
	JobID          string               `json:"job_id" db:"job_id"`
	ClientID       int64                `json:"client_id" db:"client_id"`
	WebhookURL     string               `json:"webhook_url" db:"webhook_url"`
	RequestPayload string               `json:"request_payload" db:"request_payload"`
	RequestHeaders map[string]string    `json:"request_headers,omitempty" db:"-"`
	StatusCode     *int                 `json:"response_status_code,omitempty" db:"response_status_code"`
	ResponseBody   string               `json:"response_body,omitempty" db:"response_body"`
	ResponseTimeMs *int                 `json:"response_time_ms,omitempty" db:"response_time_ms"`
	AttemptNumber  int                  `json:"attempt_number" db:"attempt_number"`
	MaxAttempts    int                  `json:"max_attempts" db:"max_attempts"`
	Status         WebhookAttemptStatus `json:"status" db:"status"`
	ErrorMessage   string               `json:"error_message,omitempty" db:"error_message"`
	SentAt         time.Time            `json:"sent_at" db:"sent_at"`
}
