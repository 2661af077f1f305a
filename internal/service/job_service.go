package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietcms/moderation/internal/broker"
	"github.com/vietcms/moderation/internal/cache"
	"github.com/vietcms/moderation/internal/crypto"
	"github.com/vietcms/moderation/internal/models"
	"github.com/vietcms/moderation/internal/repository"
)

// Publisher abstracts the message broker for job intake.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

// Estimated processing times in milliseconds, reported back on submission.
var estimatedProcessingMs = map[models.JobType]int64{
	models.JobTypeText:  1000,
	models.JobTypeImage: 3000,
	models.JobTypeAudio: 5000,
}

// JobService handles job intake and status lookups.
type JobService struct {
	repos       *repository.Repositories
	publisher   Publisher
	statusCache *cache.StatusCache
	logger      *slog.Logger
}

// NewJobService creates a new job service. statusCache may be nil.
func NewJobService(repos *repository.Repositories, publisher Publisher, statusCache *cache.StatusCache, logger *slog.Logger) *JobService {
	return &JobService{
		repos:       repos,
		publisher:   publisher,
		statusCache: statusCache,
		logger:      logger,
	}
}

// SubmitInput carries a single moderation request.
type SubmitInput struct {
	CommentID string
	Text      string
	Type      models.JobType
	Metadata  map[string]any
}

// Submit persists a job and enqueues it for the worker. The row is written
// before the message is published so a consumer never sees an unknown job.
// comment_id is not unique; resubmitting the same comment creates a new,
// independent job.
func (s *JobService) Submit(ctx context.Context, client *models.Client, in SubmitInput) (*models.Job, int64, error) {
	if in.Type == "" {
		in.Type = models.JobTypeText
	}

	job := &models.Job{
		ID:        crypto.NewJobID(),
		ClientID:  client.ID,
		CommentID: in.CommentID,
		Text:      in.Text,
		Type:      in.Type,
		Metadata:  in.Metadata,
		Status:    models.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repos.Jobs.Create(ctx, job); err != nil {
		return nil, 0, fmt.Errorf("failed to persist job: %w", err)
	}

	msg := broker.JobMessage{
		JobID:     job.ID,
		TenantID:  client.AppID,
		CommentID: job.CommentID,
		Text:      job.Text,
		Type:      string(job.Type),
		Metadata:  job.Metadata,
		CreatedAt: job.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, broker.RoutingKeyJobNew, msg); err != nil {
		// The row stays queued; a requeue sweep or manual retry can pick
		// it up, but the client must know intake failed.
		s.logger.Error("failed to enqueue job", "job_id", job.ID, "error", err)
		return nil, 0, fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.logger.Info("job accepted", "job_id", job.ID, "app_id", client.AppID, "type", job.Type)
	return job, estimatedProcessingMs[job.Type], nil
}

// GetStatus returns a job scoped to the requesting tenant. Completed jobs
// are served from the cache when available.
func (s *JobService) GetStatus(ctx context.Context, client *models.Client, jobID string) (*models.Job, error) {
	if cached := s.statusCache.GetJob(ctx, client.AppID, jobID); cached != nil {
		return cached, nil
	}

	job, err := s.repos.Jobs.GetByClientAndID(ctx, client.ID, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	s.statusCache.SetJob(ctx, client.AppID, job)
	return job, nil
}

// ListWebhookAttempts returns the delivery audit trail for one of the
// tenant's jobs, ordered by attempt number.
func (s *JobService) ListWebhookAttempts(ctx context.Context, client *models.Client, jobID string) ([]*models.WebhookAttempt, error) {
	// Ownership check first so attempt rows never leak across tenants.
	if _, err := s.repos.Jobs.GetByClientAndID(ctx, client.ID, jobID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	attempts, err := s.repos.WebhookAttempts.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook attempts: %w", err)
	}
	return attempts, nil
}

// ListJobs returns a page of the tenant's jobs, newest first.
func (s *JobService) ListJobs(ctx context.Context, client *models.Client, limit, offset int) ([]*models.Job, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	jobs, err := s.repos.Jobs.ListByClient(ctx, client.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}
