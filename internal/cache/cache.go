// Package cache provides an optional Redis cache for completed job status
// lookups. Only terminal jobs are cached; in-flight jobs always hit the
// database so status transitions are never stale.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietcms/moderation/internal/models"
)

const statusTTL = time.Hour

// StatusCache caches completed jobs keyed by tenant and job ID.
type StatusCache struct {
	client *redis.Client
	logger *slog.Logger
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, addr string, db int, logger *slog.Logger) (*StatusCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &StatusCache{client: client, logger: logger}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client, logger *slog.Logger) *StatusCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusCache{client: client, logger: logger}
}

func statusKey(appID, jobID string) string {
	return fmt.Sprintf("job_status:%s:%s", appID, jobID)
}

// GetJob returns a cached job, or nil on a miss. Cache errors are logged
// and treated as misses.
func (c *StatusCache) GetJob(ctx context.Context, appID, jobID string) *models.Job {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, statusKey(appID, jobID)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.Warn("cache read failed", "job_id", jobID, "error", err)
		return nil
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		c.logger.Warn("cache entry corrupt", "job_id", jobID, "error", err)
		return nil
	}
	return &job
}

// SetJob caches a job if it has reached a terminal state. Non-terminal
// jobs are ignored.
func (c *StatusCache) SetJob(ctx context.Context, appID string, job *models.Job) {
	if c == nil || job == nil || !job.IsTerminal() {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statusKey(appID, job.ID), data, statusTTL).Err(); err != nil {
		c.logger.Warn("cache write failed", "job_id", job.ID, "error", err)
	}
}

// Ping reports whether Redis is reachable.
func (c *StatusCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *StatusCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
