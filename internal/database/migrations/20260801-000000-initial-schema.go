package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260801-000000",
		Description: "Initial schema: clients, jobs, webhook_attempts",
		Up: []string{
			// Clients table - registered tenant applications
			`CREATE TABLE IF NOT EXISTS clients (
				id BIGSERIAL PRIMARY KEY,
				app_id TEXT NOT NULL UNIQUE,
				organization_name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				api_key TEXT NOT NULL UNIQUE,
				hmac_secret TEXT NOT NULL,
				webhook_url TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'active',
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				last_used_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_clients_api_key ON clients(api_key)`,
			`CREATE INDEX IF NOT EXISTS idx_clients_app_id ON clients(app_id)`,

			// Jobs table - moderation jobs through their lifecycle
			`CREATE TABLE IF NOT EXISTS jobs (
				job_id TEXT PRIMARY KEY,
				client_id BIGINT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
				comment_id TEXT NOT NULL,
				text TEXT NOT NULL,
				job_type TEXT NOT NULL DEFAULT 'text',
				metadata JSONB,
				status TEXT NOT NULL DEFAULT 'queued',
				moderation_result TEXT,
				sentiment TEXT,
				confidence_score DOUBLE PRECISION,
				reasoning TEXT,
				detected_labels JSONB,
				severity INTEGER,
				processing_duration_ms BIGINT,
				created_at TIMESTAMPTZ NOT NULL,
				started_at TIMESTAMPTZ,
				completed_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_client_status_created ON jobs(client_id, status, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_moderation_result ON jobs(moderation_result)`,

			// Webhook attempts table - delivery audit trail, one row per attempt
			`CREATE TABLE IF NOT EXISTS webhook_attempts (
				id TEXT PRIMARY KEY,
				job_id TEXT NOT NULL REFERENCES jobs(job_id) ON DELETE CASCADE,
				client_id BIGINT NOT NULL,
				webhook_url TEXT NOT NULL,
				request_payload TEXT NOT NULL,
				request_headers JSONB,
				response_status_code INTEGER,
				response_body TEXT,
				response_time_ms BIGINT,
				attempt_number INTEGER NOT NULL DEFAULT 1,
				max_attempts INTEGER NOT NULL DEFAULT 3,
				status TEXT NOT NULL DEFAULT 'pending',
				error_message TEXT,
				sent_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_webhook_attempts_job_id ON webhook_attempts(job_id)`,
			`CREATE INDEX IF NOT EXISTS idx_webhook_attempts_client_id ON webhook_attempts(client_id)`,
			`CREATE INDEX IF NOT EXISTS idx_webhook_attempts_sent_at ON webhook_attempts(sent_at)`,
		},
	})
}
