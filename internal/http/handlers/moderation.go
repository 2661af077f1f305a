package handlers

import (
	"context"
	"time"

	"github.com/vietcms/moderation/internal/models"
	"github.com/vietcms/moderation/internal/service"
)

// SubmitInput is the request body for POST /submit. The raw body is
// HMAC-verified by middleware before it reaches this handler.
type SubmitInput struct {
	Body struct {
		Text      string         `json:"text" minLength:"1" maxLength:"10000" doc:"Content to moderate; a URL or reference for image/audio jobs"`
		CommentID string         `json:"comment_id,omitempty" maxLength:"255" doc:"Caller-side identifier echoed in results"`
		Type      models.JobType `json:"type,omitempty" enum:"text,image,audio" default:"text"`
		Metadata  map[string]any `json:"metadata,omitempty" doc:"Opaque JSON carried through to the webhook"`
	}
}

// SubmitData acknowledges an accepted job.
type SubmitData struct {
	JobID                   string    `json:"job_id"`
	Status                  string    `json:"status"`
	CreatedAt               time.Time `json:"created_at"`
	EstimatedProcessingTime int64     `json:"estimated_processing_time_ms"`
}

// SubmitOutput is the response for POST /submit.
type SubmitOutput struct {
	Status int
	Body   Envelope[SubmitData]
}

// Submit accepts a moderation job and enqueues it.
func (h *Handlers) Submit(ctx context.Context, input *SubmitInput) (*SubmitOutput, error) {
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	job, estimatedMs, err := h.services.Job.Submit(ctx, client, service.SubmitInput{
		CommentID: input.Body.CommentID,
		Text:      input.Body.Text,
		Type:      input.Body.Type,
		Metadata:  input.Body.Metadata,
	})
	if err != nil {
		return nil, serviceError(err)
	}

	return &SubmitOutput{
		Status: 202,
		Body: envelope(SubmitData{
			JobID:                   job.ID,
			Status:                  string(job.Status),
			CreatedAt:               job.CreatedAt,
			EstimatedProcessingTime: estimatedMs,
		}),
	}, nil
}

// StatusInput identifies the job to read.
type StatusInput struct {
	JobID string `path:"job_id" doc:"Job identifier returned by submit"`
}

// JobResult is the populated result portion of a completed job.
type JobResult struct {
	ModerationResult models.ModerationAction `json:"moderation_result"`
	Sentiment        models.Sentiment        `json:"sentiment"`
	Confidence       float64                 `json:"confidence"`
	Reasoning        string                  `json:"reasoning"`
	DetectedLabels   []string                `json:"detected_labels,omitempty"`
	Severity         int                     `json:"severity"`
}

// StatusData is the job state view returned to the owning tenant.
type StatusData struct {
	JobID                string           `json:"job_id"`
	Status               models.JobStatus `json:"status"`
	CommentID            string           `json:"comment_id,omitempty"`
	Text                 string           `json:"text,omitempty"`
	Result               *JobResult       `json:"result,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty"`
	ProcessingDurationMs *int64           `json:"processing_duration_ms,omitempty"`
}

// StatusOutput is the response for GET /status/{job_id}.
type StatusOutput struct {
	Body Envelope[StatusData]
}

// Status reads one job, scoped to the requesting tenant.
func (h *Handlers) Status(ctx context.Context, input *StatusInput) (*StatusOutput, error) {
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	job, err := h.services.Job.GetStatus(ctx, client, input.JobID)
	if err != nil {
		return nil, serviceError(err)
	}

	return &StatusOutput{Body: envelope(statusData(job))}, nil
}

func statusData(job *models.Job) StatusData {
	data := StatusData{
		JobID:                job.ID,
		Status:               job.Status,
		CommentID:            job.CommentID,
		Text:                 job.Text,
		CreatedAt:            job.CreatedAt,
		CompletedAt:          job.CompletedAt,
		ProcessingDurationMs: job.ProcessingDurationMs,
	}
	if job.ModerationResult != nil {
		result := JobResult{
			ModerationResult: *job.ModerationResult,
			Reasoning:        job.Reasoning,
			DetectedLabels:   job.Labels,
		}
		if job.Sentiment != nil {
			result.Sentiment = *job.Sentiment
		}
		if job.Confidence != nil {
			result.Confidence = *job.Confidence
		}
		if job.Severity != nil {
			result.Severity = *job.Severity
		}
		data.Result = &result
	}
	return data
}

// AttemptsInput identifies the job whose delivery trail to read.
type AttemptsInput struct {
	JobID string `path:"job_id" doc:"Job identifier returned by submit"`
}

// AttemptData is one webhook delivery attempt.
type AttemptData struct {
	AttemptNumber  int       `json:"attempt_number"`
	WebhookURL     string    `json:"webhook_url"`
	Status         string    `json:"status" enum:"success,retrying,failed"`
	StatusCode     *int      `json:"response_status_code,omitempty"`
	ResponseTimeMs *int      `json:"response_time_ms,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	SentAt         time.Time `json:"sent_at"`
}

// AttemptsData is the delivery audit trail for one job.
type AttemptsData struct {
	JobID    string        `json:"job_id"`
	Attempts []AttemptData `json:"attempts"`
}

// AttemptsOutput is the response for GET /status/{job_id}/attempts.
type AttemptsOutput struct {
	Body Envelope[AttemptsData]
}

// ListAttempts returns the webhook delivery attempts for one of the
// tenant's jobs.
func (h *Handlers) ListAttempts(ctx context.Context, input *AttemptsInput) (*AttemptsOutput, error) {
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	attempts, err := h.services.Job.ListWebhookAttempts(ctx, client, input.JobID)
	if err != nil {
		return nil, serviceError(err)
	}

	data := AttemptsData{JobID: input.JobID, Attempts: make([]AttemptData, 0, len(attempts))}
	for _, a := range attempts {
		data.Attempts = append(data.Attempts, AttemptData{
			AttemptNumber:  a.AttemptNumber,
			WebhookURL:     a.WebhookURL,
			Status:         string(a.Status),
			StatusCode:     a.StatusCode,
			ResponseTimeMs: a.ResponseTimeMs,
			ErrorMessage:   a.ErrorMessage,
			SentAt:         a.SentAt,
		})
	}
	return &AttemptsOutput{Body: envelope(data)}, nil
}

// ListJobsInput carries pagination for GET /jobs.
type ListJobsInput struct {
	Limit  int `query:"limit" minimum:"1" maximum:"100" default:"20"`
	Offset int `query:"offset" minimum:"0" default:"0"`
}

// ListJobsData is a page of the tenant's jobs.
type ListJobsData struct {
	Jobs []StatusData `json:"jobs"`
}

// ListJobsOutput is the response for GET /jobs.
type ListJobsOutput struct {
	Body Envelope[ListJobsData]
}

// ListJobs returns the tenant's jobs, newest first.
func (h *Handlers) ListJobs(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}

	jobs, err := h.services.Job.ListJobs(ctx, client, input.Limit, input.Offset)
	if err != nil {
		return nil, serviceError(err)
	}

	data := ListJobsData{Jobs: make([]StatusData, 0, len(jobs))}
	for _, job := range jobs {
		data.Jobs = append(data.Jobs, statusData(job))
	}
	return &ListJobsOutput{Body: envelope(data)}, nil
}
