package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vietcms/moderation/internal/broker"
	"github.com/vietcms/moderation/internal/moderation"
	"github.com/vietcms/moderation/internal/models"
	"github.com/vietcms/moderation/internal/repository"
)

// mockJobRepo tracks job state transitions in memory.
type mockJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.Job

	failComplete bool
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*models.Job)}
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, jobID string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockJobRepo) GetByClientAndID(ctx context.Context, clientID int64, jobID string) (*models.Job, error) {
	return m.GetByID(ctx, jobID)
}

func (m *mockJobRepo) ListByClient(ctx context.Context, clientID int64, limit, offset int) ([]*models.Job, error) {
	return nil, nil
}

func (m *mockJobRepo) MarkProcessing(ctx context.Context, jobID string, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	j.Status = models.JobStatusProcessing
	j.StartedAt = &startedAt
	return nil
}

func (m *mockJobRepo) Complete(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failComplete {
		return errors.New("db down")
	}
	j, ok := m.jobs[job.ID]
	if !ok {
		return repository.ErrNotFound
	}
	j.Status = models.JobStatusCompleted
	j.ModerationResult = job.ModerationResult
	j.Sentiment = job.Sentiment
	j.Confidence = job.Confidence
	j.Reasoning = job.Reasoning
	j.Labels = job.Labels
	j.Severity = job.Severity
	j.ProcessingDurationMs = job.ProcessingDurationMs
	j.CompletedAt = job.CompletedAt
	return nil
}

func (m *mockJobRepo) MarkFailed(ctx context.Context, jobID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	j.Status = models.JobStatusFailed
	j.Reasoning = reason
	return nil
}

func (m *mockJobRepo) get(jobID string) *models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[jobID]
}

// mockAck records acks and nacks for one delivery tag.
type mockAck struct {
	mu      sync.Mutex
	acked   bool
	nacked  bool
	requeue bool
}

func (a *mockAck) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = true
	return nil
}

func (a *mockAck) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *mockAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

// recordingPublisher captures published completion messages.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []broker.CompletionMessage
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if msg, ok := body.(broker.CompletionMessage); ok {
		p.messages = append(p.messages, msg)
	}
	return nil
}

func (p *recordingPublisher) published() []broker.CompletionMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]broker.CompletionMessage(nil), p.messages...)
}

func newTestWorker(repo repository.JobRepository, pub Publisher) *Worker {
	text := moderation.NewPipeline(moderation.NewLexiconModel(), moderation.DefaultThresholds(), slog.Default())
	image := moderation.NewImagePipeline(nil, nil, text)
	audio := moderation.NewAudioPipeline(nil, text)
	return New(repo, nil, pub, text, image, audio, Config{}, slog.Default())
}

func queuedJob(repo *mockJobRepo, id, text string, jobType models.JobType) broker.JobMessage {
	_ = repo.Create(context.Background(), &models.Job{
		ID:     id,
		Text:   text,
		Type:   jobType,
		Status: models.JobStatusQueued,
	})
	return broker.JobMessage{
		JobID:     id,
		TenantID:  "app-1",
		CommentID: "c1",
		Text:      text,
		Type:      string(jobType),
		CreatedAt: time.Now().UTC(),
	}
}

func deliveryFor(t *testing.T, msg broker.JobMessage, ack *mockAck) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}
}

func TestProcessTaskCompletesAndPublishes(t *testing.T) {
	repo := newMockJobRepo()
	pub := &recordingPublisher{}
	w := newTestWorker(repo, pub)

	msg := queuedJob(repo, "job-1", "đm mày", models.JobTypeText)
	ack := &mockAck{}
	w.processTask(context.Background(), 0, task{msg: msg, delivery: deliveryFor(t, msg, ack)})

	job := repo.get("job-1")
	if job.Status != models.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.ModerationResult == nil || *job.ModerationResult != models.ActionReject {
		t.Errorf("moderation result = %v", job.ModerationResult)
	}
	if job.Sentiment == nil || *job.Sentiment != models.SentimentNegative {
		t.Errorf("sentiment = %v", job.Sentiment)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("timestamps not recorded")
	}
	if job.ProcessingDurationMs == nil {
		t.Error("duration not recorded")
	}

	msgs := pub.published()
	if len(msgs) != 1 {
		t.Fatalf("published %d completions, want 1", len(msgs))
	}
	if msgs[0].JobID != "job-1" || msgs[0].TenantID != "app-1" {
		t.Errorf("completion = %+v", msgs[0])
	}
	if msgs[0].ModerationResult != "reject" || msgs[0].Sentiment != "negative" {
		t.Errorf("completion = %+v", msgs[0])
	}

	if !ack.acked {
		t.Error("delivery not acked")
	}
}

func TestProcessTaskCleanTextSentiment(t *testing.T) {
	repo := newMockJobRepo()
	pub := &recordingPublisher{}
	w := newTestWorker(repo, pub)

	msg := queuedJob(repo, "job-1", "Sản phẩm rất tốt", models.JobTypeText)
	ack := &mockAck{}
	w.processTask(context.Background(), 0, task{msg: msg, delivery: deliveryFor(t, msg, ack)})

	job := repo.get("job-1")
	if job.ModerationResult == nil || *job.ModerationResult != models.ActionAllowed {
		t.Errorf("moderation result = %v", job.ModerationResult)
	}
	if job.Sentiment == nil || *job.Sentiment != models.SentimentPositive {
		t.Errorf("sentiment = %v", job.Sentiment)
	}
}

func TestProcessTaskCompleteFailureRequeues(t *testing.T) {
	repo := newMockJobRepo()
	repo.failComplete = true
	pub := &recordingPublisher{}
	w := newTestWorker(repo, pub)

	msg := queuedJob(repo, "job-1", "x", models.JobTypeText)
	ack := &mockAck{}
	w.processTask(context.Background(), 0, task{msg: msg, delivery: deliveryFor(t, msg, ack)})

	if !ack.nacked || !ack.requeue {
		t.Errorf("delivery not requeued: nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
	if len(pub.published()) != 0 {
		t.Error("completion published despite failure")
	}
}

func TestProcessTaskPublishFailureRequeues(t *testing.T) {
	repo := newMockJobRepo()
	pub := &recordingPublisher{err: errors.New("broker down")}
	w := newTestWorker(repo, pub)

	msg := queuedJob(repo, "job-1", "x", models.JobTypeText)
	ack := &mockAck{}
	w.processTask(context.Background(), 0, task{msg: msg, delivery: deliveryFor(t, msg, ack)})

	if ack.acked {
		t.Error("delivery acked before the completion event went out")
	}
	if !ack.nacked || !ack.requeue {
		t.Errorf("delivery not requeued: nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
}

func TestProcessTaskRedeliveredFailureDrops(t *testing.T) {
	repo := newMockJobRepo()
	repo.failComplete = true
	pub := &recordingPublisher{}
	w := newTestWorker(repo, pub)

	msg := queuedJob(repo, "job-1", "x", models.JobTypeText)
	ack := &mockAck{}
	d := deliveryFor(t, msg, ack)
	d.Redelivered = true
	w.processTask(context.Background(), 0, task{msg: msg, delivery: d})

	if !ack.nacked || ack.requeue {
		t.Errorf("redelivered failure requeued: nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
}

func TestProcessTaskUnknownJobFails(t *testing.T) {
	repo := newMockJobRepo()
	pub := &recordingPublisher{}
	w := newTestWorker(repo, pub)

	msg := broker.JobMessage{JobID: "ghost", TenantID: "app-1", Text: "x", Type: "text"}
	ack := &mockAck{}
	w.processTask(context.Background(), 0, task{msg: msg, delivery: deliveryFor(t, msg, ack)})

	if !ack.nacked {
		t.Error("delivery for unknown job not nacked")
	}
}

// countingModel tracks how often the model is invoked.
type countingModel struct {
	mu    sync.Mutex
	calls int
	inner moderation.TextModel
}

func (m *countingModel) PredictBatch(ctx context.Context, texts []string) ([]moderation.Prediction, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.inner.PredictBatch(ctx, texts)
}

func TestProcessBatchTextGroupSharesModelPass(t *testing.T) {
	repo := newMockJobRepo()
	pub := &recordingPublisher{}
	model := &countingModel{inner: moderation.NewLexiconModel()}
	text := moderation.NewPipeline(model, moderation.DefaultThresholds(), slog.Default())
	image := moderation.NewImagePipeline(nil, nil, text)
	audio := moderation.NewAudioPipeline(nil, text)
	w := New(repo, nil, pub, text, image, audio, Config{}, slog.Default())

	texts := []string{"Sản phẩm rất tốt", "Giao hàng đúng hẹn", "Bình thường thôi"}
	var group []task
	var acks []*mockAck
	for _, txt := range texts {
		msg := queuedJob(repo, "job-"+txt, txt, models.JobTypeText)
		ack := &mockAck{}
		acks = append(acks, ack)
		group = append(group, task{msg: msg, delivery: deliveryFor(t, msg, ack)})
	}

	w.processBatch(context.Background(), 0, group)

	if model.calls != 1 {
		t.Errorf("model invoked %d times for one text group, want 1", model.calls)
	}
	for _, txt := range texts {
		job := repo.get("job-" + txt)
		if job.Status != models.JobStatusCompleted {
			t.Errorf("job %q status = %s, want completed", txt, job.Status)
		}
	}
	for i, ack := range acks {
		if !ack.acked {
			t.Errorf("delivery %d not acked", i)
		}
	}
	if got := len(pub.published()); got != len(texts) {
		t.Errorf("published %d completions, want %d", got, len(texts))
	}
}

func TestBatcherFlushesOnSize(t *testing.T) {
	b := newBatcher(2, time.Minute)
	go b.run()
	defer close(b.in)

	b.in <- task{msg: broker.JobMessage{JobID: "1", Type: "text"}}
	b.in <- task{msg: broker.JobMessage{JobID: "2", Type: "text"}}

	select {
	case group := <-b.out:
		if len(group) != 2 {
			t.Errorf("group size = %d, want 2", len(group))
		}
	case <-time.After(time.Second):
		t.Fatal("batch not flushed on size")
	}
}

func TestBatcherFlushesOnTimeout(t *testing.T) {
	b := newBatcher(100, 50*time.Millisecond)
	go b.run()
	defer close(b.in)

	b.in <- task{msg: broker.JobMessage{JobID: "1", Type: "text"}}

	select {
	case group := <-b.out:
		if len(group) != 1 {
			t.Errorf("group size = %d, want 1", len(group))
		}
	case <-time.After(time.Second):
		t.Fatal("batch not flushed on timeout")
	}
}

func TestBatcherGroupsByType(t *testing.T) {
	b := newBatcher(2, time.Minute)
	go b.run()

	b.in <- task{msg: broker.JobMessage{JobID: "1", Type: "text"}}
	b.in <- task{msg: broker.JobMessage{JobID: "2", Type: "image"}}
	close(b.in)

	var groups [][]task
	for group := range b.out {
		groups = append(groups, group)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	for _, g := range groups {
		if len(g) != 1 {
			t.Errorf("mixed group: %d tasks", len(g))
		}
	}
}
