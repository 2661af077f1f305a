package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietcms/moderation/internal/models"
)

// PostgresClientRepository implements ClientRepository for Postgres.
type PostgresClientRepository struct {
	db *sqlx.DB
}

// NewPostgresClientRepository creates a new Postgres client repository.
func NewPostgresClientRepository(db *sqlx.DB) *PostgresClientRepository {
	return &PostgresClientRepository{db: db}
}

const clientColumns = `id, app_id, organization_name, email, password_hash, api_key,
	hmac_secret, webhook_url, status, created_at, updated_at, last_used_at`

func (r *PostgresClientRepository) Create(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (app_id, organization_name, email, password_hash, api_key,
			hmac_secret, webhook_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		client.AppID,
		client.OrganizationName,
		client.Email,
		client.PasswordHash,
		client.APIKey,
		client.HMACSecret,
		client.WebhookURL,
		client.Status,
		client.CreatedAt,
		client.UpdatedAt,
	).Scan(&client.ID)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *PostgresClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *PostgresClientRepository) GetByAppID(ctx context.Context, appID string) (*models.Client, error) {
	return r.getBy(ctx, "app_id = $1", appID)
}

func (r *PostgresClientRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	return r.getBy(ctx, "api_key = $1", apiKey)
}

func (r *PostgresClientRepository) GetByEmail(ctx context.Context, email string) (*models.Client, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *PostgresClientRepository) getBy(ctx context.Context, where string, arg any) (*models.Client, error) {
	var client models.Client
	query := fmt.Sprintf("SELECT %s FROM clients WHERE %s", clientColumns, where)
	if err := r.db.GetContext(ctx, &client, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

func (r *PostgresClientRepository) UpdateWebhookURL(ctx context.Context, id int64, webhookURL string) error {
	query := `UPDATE clients SET webhook_url = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, webhookURL, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update webhook url: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresClientRepository) UpdateStatus(ctx context.Context, id int64, status models.ClientStatus) error {
	query := `UPDATE clients SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update client status: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresClientRepository) TouchLastUsed(ctx context.Context, id int64, usedAt time.Time) error {
	query := `UPDATE clients SET last_used_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, usedAt, id); err != nil {
		return fmt.Errorf("failed to touch last_used_at: %w", err)
	}
	return nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
