package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/vietcms/moderation/internal/broker"
	"github.com/vietcms/moderation/internal/models"
	"github.com/vietcms/moderation/internal/repository"
)

func newTestJobService() (*JobService, *repository.Repositories, *recordingPublisher) {
	repos := newTestRepos()
	pub := &recordingPublisher{}
	return NewJobService(repos, pub, nil, slog.Default()), repos, pub
}

func testClient() *models.Client {
	return &models.Client{
		ID:     1,
		AppID:  "app-1",
		Status: models.ClientStatusActive,
	}
}

func TestSubmitPersistsThenPublishes(t *testing.T) {
	svc, repos, pub := newTestJobService()
	client := testClient()

	job, estimatedMs, err := svc.Submit(context.Background(), client, SubmitInput{
		CommentID: "c1",
		Text:      "Sản phẩm rất tốt",
		Type:      models.JobTypeText,
		Metadata:  map[string]any{"post_id": "p9"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if job.ID == "" {
		t.Fatal("job id not assigned")
	}
	if job.Status != models.JobStatusQueued {
		t.Errorf("status = %s, want queued", job.Status)
	}
	if estimatedMs != 1000 {
		t.Errorf("estimated ms = %d, want 1000", estimatedMs)
	}

	stored, err := repos.Jobs.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if stored.ClientID != client.ID {
		t.Errorf("client id = %d", stored.ClientID)
	}

	msgs := pub.published()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].routingKey != broker.RoutingKeyJobNew {
		t.Errorf("routing key = %q", msgs[0].routingKey)
	}
	jm, ok := msgs[0].body.(broker.JobMessage)
	if !ok {
		t.Fatalf("body type %T", msgs[0].body)
	}
	if jm.JobID != job.ID || jm.TenantID != client.AppID || jm.Text != job.Text {
		t.Errorf("message = %+v", jm)
	}
}

func TestSubmitEstimatedTimes(t *testing.T) {
	svc, _, _ := newTestJobService()
	client := testClient()

	tests := []struct {
		jobType models.JobType
		wantMs  int64
	}{
		{models.JobTypeText, 1000},
		{models.JobTypeImage, 3000},
		{models.JobTypeAudio, 5000},
	}
	for _, tt := range tests {
		_, ms, err := svc.Submit(context.Background(), client, SubmitInput{Text: "x", Type: tt.jobType})
		if err != nil {
			t.Fatal(err)
		}
		if ms != tt.wantMs {
			t.Errorf("%s: estimated ms = %d, want %d", tt.jobType, ms, tt.wantMs)
		}
	}
}

func TestSubmitPublishFailure(t *testing.T) {
	svc, _, pub := newTestJobService()
	pub.err = errors.New("broker down")

	_, _, err := svc.Submit(context.Background(), testClient(), SubmitInput{Text: "x"})
	if err == nil {
		t.Fatal("expected error when publish fails")
	}
}

func TestGetStatusScopedToTenant(t *testing.T) {
	svc, repos, _ := newTestJobService()
	ctx := context.Background()

	job, _, err := svc.Submit(ctx, testClient(), SubmitInput{Text: "x"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetStatus(ctx, testClient(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != job.ID {
		t.Errorf("job id = %q", got.ID)
	}

	// Another tenant must not see the job, and must not learn it exists.
	other := &models.Client{ID: 2, AppID: "app-2"}
	if _, err := svc.GetStatus(ctx, other, job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}

	if _, err := svc.GetStatus(ctx, testClient(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}

	_ = repos
}

func TestListWebhookAttemptsScopedToTenant(t *testing.T) {
	svc, repos, _ := newTestJobService()
	ctx := context.Background()

	job, _, err := svc.Submit(ctx, testClient(), SubmitInput{Text: "x"})
	if err != nil {
		t.Fatal(err)
	}

	code := 200
	for i := 1; i <= 2; i++ {
		if err := repos.WebhookAttempts.Create(ctx, &models.WebhookAttempt{
			ID:            string(rune('a' + i)),
			JobID:         job.ID,
			ClientID:      testClient().ID,
			AttemptNumber: i,
			MaxAttempts:   3,
			Status:        models.AttemptStatusSuccess,
			StatusCode:    &code,
			SentAt:        time.Now().UTC(),
		}); err != nil {
			t.Fatal(err)
		}
	}

	attempts, err := svc.ListWebhookAttempts(ctx, testClient(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(attempts))
	}

	other := &models.Client{ID: 2, AppID: "app-2"}
	if _, err := svc.ListWebhookAttempts(ctx, other, job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestGetStatusReturnsResultFields(t *testing.T) {
	svc, repos, _ := newTestJobService()
	ctx := context.Background()

	job, _, err := svc.Submit(ctx, testClient(), SubmitInput{Text: "đm mày"})
	if err != nil {
		t.Fatal(err)
	}

	action := models.ActionReject
	sentiment := models.SentimentNegative
	conf := 0.95
	sev := 2
	dur := int64(12)
	now := time.Now().UTC()
	if err := repos.Jobs.Complete(ctx, &models.Job{
		ID:                   job.ID,
		ModerationResult:     &action,
		Sentiment:            &sentiment,
		Confidence:           &conf,
		Reasoning:            "🚫 HATE SPEECH: x",
		Labels:               []string{"profanity", "toxicity"},
		Severity:             &sev,
		ProcessingDurationMs: &dur,
		CompletedAt:          &now,
	}); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetStatus(ctx, testClient(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.JobStatusCompleted {
		t.Errorf("status = %s", got.Status)
	}
	if got.ModerationResult == nil || *got.ModerationResult != models.ActionReject {
		t.Errorf("moderation result = %v", got.ModerationResult)
	}
	if len(got.Labels) != 2 {
		t.Errorf("labels = %v", got.Labels)
	}
}
