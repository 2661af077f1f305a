package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vietcms/moderation/internal/models"
)

func newTestCache(t *testing.T) (*StatusCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, nil), mr
}

func completedJob(id string) *models.Job {
	action := models.ActionAllowed
	return &models.Job{
		ID:        id,
		CommentID: "c1",
		Text:      "Sản phẩm rất tốt",
		Type:      models.JobTypeText,
		Status:    models.JobStatusCompleted,

		ModerationResult: &action,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestStatusCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	job := completedJob("job-1")
	c.SetJob(ctx, "app-1", job)

	got := c.GetJob(ctx, "app-1", "job-1")
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if got.ID != job.ID || got.Status != models.JobStatusCompleted {
		t.Errorf("got %+v", got)
	}
	if got.ModerationResult == nil || *got.ModerationResult != models.ActionAllowed {
		t.Errorf("moderation result not preserved: %+v", got.ModerationResult)
	}
}

func TestStatusCacheTenantIsolation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.SetJob(ctx, "app-1", completedJob("job-1"))

	if got := c.GetJob(ctx, "app-2", "job-1"); got != nil {
		t.Errorf("cross-tenant cache hit: %+v", got)
	}
}

func TestStatusCacheSkipsNonTerminalJobs(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	job := completedJob("job-1")
	job.Status = models.JobStatusQueued
	c.SetJob(ctx, "app-1", job)

	if got := c.GetJob(ctx, "app-1", "job-1"); got != nil {
		t.Errorf("non-terminal job was cached: %+v", got)
	}
}

func TestStatusCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.SetJob(ctx, "app-1", completedJob("job-1"))
	mr.FastForward(2 * time.Hour)

	if got := c.GetJob(ctx, "app-1", "job-1"); got != nil {
		t.Errorf("expired entry returned: %+v", got)
	}
}

func TestStatusCacheNilSafe(t *testing.T) {
	var c *StatusCache
	ctx := context.Background()

	c.SetJob(ctx, "app-1", completedJob("job-1"))
	if got := c.GetJob(ctx, "app-1", "job-1"); got != nil {
		t.Errorf("nil cache returned %+v", got)
	}
	if err := c.Ping(ctx); err != nil {
		t.Errorf("nil cache ping: %v", err)
	}
}
