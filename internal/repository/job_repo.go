package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietcms/moderation/internal/models"
)

// PostgresJobRepository implements JobRepository for Postgres.
type PostgresJobRepository struct {
	db *sqlx.DB
}

// NewPostgresJobRepository creates a new Postgres job repository.
func NewPostgresJobRepository(db *sqlx.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

const jobColumns = `job_id, client_id, comment_id, text, job_type, metadata, status,
	moderation_result, sentiment, confidence_score, reasoning, detected_labels,
	severity, processing_duration_ms, created_at, started_at, completed_at`

func (r *PostgresJobRepository) Create(ctx context.Context, job *models.Job) error {
	metadata, err := marshalJSONB(job.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal job metadata: %w", err)
	}

	query := `
		INSERT INTO jobs (job_id, client_id, comment_id, text, job_type, metadata, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		job.ID,
		job.ClientID,
		job.CommentID,
		job.Text,
		job.Type,
		metadata,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *PostgresJobRepository) GetByID(ctx context.Context, jobID string) (*models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE job_id = $1", jobColumns)
	return scanJob(r.db.QueryRowContext(ctx, query, jobID))
}

func (r *PostgresJobRepository) GetByClientAndID(ctx context.Context, clientID int64, jobID string) (*models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE client_id = $1 AND job_id = $2", jobColumns)
	return scanJob(r.db.QueryRowContext(ctx, query, clientID, jobID))
}

func (r *PostgresJobRepository) ListByClient(ctx context.Context, clientID int64, limit, offset int) ([]*models.Job, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM jobs WHERE client_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, jobColumns)
	rows, err := r.db.QueryContext(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *PostgresJobRepository) MarkProcessing(ctx context.Context, jobID string, startedAt time.Time) error {
	query := `UPDATE jobs SET status = $1, started_at = $2 WHERE job_id = $3`
	res, err := r.db.ExecContext(ctx, query, models.JobStatusProcessing, startedAt, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresJobRepository) Complete(ctx context.Context, job *models.Job) error {
	labels, err := marshalJSONB(job.Labels)
	if err != nil {
		return fmt.Errorf("failed to marshal detected labels: %w", err)
	}

	query := `
		UPDATE jobs SET status = $1, moderation_result = $2, sentiment = $3,
			confidence_score = $4, reasoning = $5, detected_labels = $6,
			severity = $7, processing_duration_ms = $8, completed_at = $9
		WHERE job_id = $10
	`
	res, err := r.db.ExecContext(ctx, query,
		models.JobStatusCompleted,
		job.ModerationResult,
		job.Sentiment,
		job.Confidence,
		job.Reasoning,
		labels,
		job.Severity,
		job.ProcessingDurationMs,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresJobRepository) MarkFailed(ctx context.Context, jobID, reason string) error {
	query := `UPDATE jobs SET status = $1, reasoning = $2, completed_at = $3 WHERE job_id = $4`
	res, err := r.db.ExecContext(ctx, query, models.JobStatusFailed, reason, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return checkAffected(res)
}

// rowScanner abstracts sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var metadata, labels []byte
	var moderationResult, sentiment, reasoning sql.NullString
	var confidence sql.NullFloat64
	var severity sql.NullInt64
	var durationMs sql.NullInt64
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.ClientID,
		&job.CommentID,
		&job.Text,
		&job.Type,
		&metadata,
		&job.Status,
		&moderationResult,
		&sentiment,
		&confidence,
		&reasoning,
		&labels,
		&severity,
		&durationMs,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &job.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job metadata: %w", err)
		}
	}
	if len(labels) > 0 {
		if err := json.Unmarshal(labels, &job.Labels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal detected labels: %w", err)
		}
	}
	if moderationResult.Valid {
		action := models.ModerationAction(moderationResult.String)
		job.ModerationResult = &action
	}
	if sentiment.Valid {
		s := models.Sentiment(sentiment.String)
		job.Sentiment = &s
	}
	if confidence.Valid {
		job.Confidence = &confidence.Float64
	}
	if reasoning.Valid {
		job.Reasoning = reasoning.String
	}
	if severity.Valid {
		v := int(severity.Int64)
		job.Severity = &v
	}
	if durationMs.Valid {
		job.ProcessingDurationMs = &durationMs.Int64
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}

// marshalJSONB serializes a value for a JSONB column, mapping empty values
// to NULL.
func marshalJSONB(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
