// Package repository defines repository interfaces for data access.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietcms/moderation/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ClientRepository defines methods for client (tenant) data access.
type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id int64) (*models.Client, error)
	GetByAppID(ctx context.Context, appID string) (*models.Client, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error)
	GetByEmail(ctx context.Context, email string) (*models.Client, error)
	UpdateWebhookURL(ctx context.Context, id int64, webhookURL string) error
	UpdateStatus(ctx context.Context, id int64, status models.ClientStatus) error
	// TouchLastUsed records API key usage. Best effort, callers may ignore errors.
	TouchLastUsed(ctx context.Context, id int64, usedAt time.Time) error
}

// JobRepository defines methods for moderation job data access.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, jobID string) (*models.Job, error)
	// GetByClientAndID scopes the lookup to one tenant. Jobs belonging to
	// other tenants return ErrNotFound.
	GetByClientAndID(ctx context.Context, clientID int64, jobID string) (*models.Job, error)
	ListByClient(ctx context.Context, clientID int64, limit, offset int) ([]*models.Job, error)
	MarkProcessing(ctx context.Context, jobID string, startedAt time.Time) error
	// Complete writes all result fields and the completed status in a
	// single statement so readers never observe a partial result.
	Complete(ctx context.Context, job *models.Job) error
	MarkFailed(ctx context.Context, jobID, reason string) error
}

// WebhookAttemptRepository defines methods for the webhook delivery audit trail.
type WebhookAttemptRepository interface {
	Create(ctx context.Context, attempt *models.WebhookAttempt) error
	// GetByJobID returns attempts ordered by attempt number; the delivery
	// audit trail for one job.
	GetByJobID(ctx context.Context, jobID string) ([]*models.WebhookAttempt, error)
}

// Repositories bundles all repository implementations.
type Repositories struct {
	Clients         ClientRepository
	Jobs            JobRepository
	WebhookAttempts WebhookAttemptRepository
}

// NewRepositories creates Postgres-backed repositories sharing one pool.
func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Clients:         NewPostgresClientRepository(db),
		Jobs:            NewPostgresJobRepository(db),
		WebhookAttempts: NewPostgresWebhookAttemptRepository(db),
	}
}
