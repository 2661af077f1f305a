package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vietcms/moderation/internal/models"
)

// PostgresWebhookAttemptRepository implements WebhookAttemptRepository for Postgres.
type PostgresWebhookAttemptRepository struct {
	db *sqlx.DB
}

// NewPostgresWebhookAttemptRepository creates a new Postgres webhook attempt repository.
func NewPostgresWebhookAttemptRepository(db *sqlx.DB) *PostgresWebhookAttemptRepository {
	return &PostgresWebhookAttemptRepository{db: db}
}

const attemptColumns = `id, job_id, client_id, webhook_url, request_payload, request_headers,
	response_status_code, response_body, response_time_ms, attempt_number, max_attempts,
	status, error_message, sent_at`

func (r *PostgresWebhookAttemptRepository) Create(ctx context.Context, attempt *models.WebhookAttempt) error {
	var headers any
	if len(attempt.RequestHeaders) > 0 {
		data, err := json.Marshal(attempt.RequestHeaders)
		if err != nil {
			return fmt.Errorf("failed to marshal request headers: %w", err)
		}
		headers = data
	}

	query := `
		INSERT INTO webhook_attempts (id, job_id, client_id, webhook_url, request_payload,
			request_headers, response_status_code, response_body, response_time_ms,
			attempt_number, max_attempts, status, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.JobID,
		attempt.ClientID,
		attempt.WebhookURL,
		attempt.RequestPayload,
		headers,
		attempt.StatusCode,
		attempt.ResponseBody,
		attempt.ResponseTimeMs,
		attempt.AttemptNumber,
		attempt.MaxAttempts,
		attempt.Status,
		attempt.ErrorMessage,
		attempt.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook attempt: %w", err)
	}
	return nil
}

func (r *PostgresWebhookAttemptRepository) GetByJobID(ctx context.Context, jobID string) ([]*models.WebhookAttempt, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM webhook_attempts WHERE job_id = $1 ORDER BY attempt_number ASC
	`, attemptColumns)
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]*models.WebhookAttempt, error) {
	var attempts []*models.WebhookAttempt
	for rows.Next() {
		var a models.WebhookAttempt
		var headers []byte
		var statusCode, responseTimeMs sql.NullInt64
		var responseBody, errorMessage sql.NullString

		err := rows.Scan(
			&a.ID,
			&a.JobID,
			&a.ClientID,
			&a.WebhookURL,
			&a.RequestPayload,
			&headers,
			&statusCode,
			&responseBody,
			&responseTimeMs,
			&a.AttemptNumber,
			&a.MaxAttempts,
			&a.Status,
			&errorMessage,
			&a.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook attempt: %w", err)
		}

		if len(headers) > 0 {
			if err := json.Unmarshal(headers, &a.RequestHeaders); err != nil {
				return nil, fmt.Errorf("failed to unmarshal request headers: %w", err)
			}
		}
		if statusCode.Valid {
			v := int(statusCode.Int64)
			a.StatusCode = &v
		}
		if responseTimeMs.Valid {
			v := int(responseTimeMs.Int64)
			a.ResponseTimeMs = &v
		}
		a.ResponseBody = responseBody.String
		a.ErrorMessage = errorMessage.String

		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}
