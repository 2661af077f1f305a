// Package worker consumes moderation jobs from the broker, runs them
// through the classification pipeline, and publishes completions.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vietcms/moderation/internal/broker"
	"github.com/vietcms/moderation/internal/moderation"
	"github.com/vietcms/moderation/internal/models"
	"github.com/vietcms/moderation/internal/repository"
)

// Consumer abstracts the broker's delivery stream.
type Consumer interface {
	Consume(queue string, prefetch int) (<-chan amqp.Delivery, error)
}

// Publisher abstracts completion publishing.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

// Config holds worker configuration.
type Config struct {
	Concurrency  int
	BatchSize    int
	BatchTimeout time.Duration
}

// Worker processes moderation jobs.
type Worker struct {
	jobRepo   repository.JobRepository
	consumer  Consumer
	publisher Publisher

	text      *moderation.Pipeline
	image     *moderation.ImagePipeline
	audio     *moderation.AudioPipeline
	sentiment *moderation.SentimentAnalyzer

	concurrency  int
	batchSize    int
	batchTimeout time.Duration

	stop   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger
}

// New creates a new worker.
func New(
	jobRepo repository.JobRepository,
	consumer Consumer,
	publisher Publisher,
	text *moderation.Pipeline,
	image *moderation.ImagePipeline,
	audio *moderation.AudioPipeline,
	cfg Config,
	logger *slog.Logger,
) *Worker {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		jobRepo:      jobRepo,
		consumer:     consumer,
		publisher:    publisher,
		text:         text,
		image:        image,
		audio:        audio,
		sentiment:    moderation.NewSentimentAnalyzer(),
		concurrency:  cfg.Concurrency,
		batchSize:    cfg.BatchSize,
		batchTimeout: cfg.BatchTimeout,
		stop:         make(chan struct{}),
		logger:       logger.With("component", "worker"),
	}
}

// Start begins consuming and processing jobs.
func (w *Worker) Start(ctx context.Context) error {
	deliveries, err := w.consumer.Consume(broker.QueueJobs, w.batchSize*w.concurrency)
	if err != nil {
		return err
	}

	w.logger.Info("starting", "concurrency", w.concurrency, "batch_size", w.batchSize)

	b := newBatcher(w.batchSize, w.batchTimeout)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(b.in)
		for {
			select {
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.enqueue(d, b.in)
			}
		}
	}()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		b.run()
	}()

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(workerID int) {
			defer w.wg.Done()
			for group := range b.out {
				w.processBatch(ctx, workerID, group)
			}
		}(i)
	}

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.logger.Info("stopping")
	close(w.stop)
	w.wg.Wait()
	w.logger.Info("stopped")
}

// enqueue decodes a delivery into a task. Malformed messages are acked and
// dropped since redelivery cannot fix them.
func (w *Worker) enqueue(d amqp.Delivery, in chan<- task) {
	var msg broker.JobMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		w.logger.Error("dropping malformed job message", "error", err)
		_ = d.Ack(false)
		return
	}
	in <- task{msg: msg, delivery: d, received: time.Now()}
}

func (w *Worker) processBatch(ctx context.Context, workerID int, group []task) {
	if len(group) > 1 && models.JobType(group[0].msg.Type) == models.JobTypeText {
		w.processTextBatch(ctx, workerID, group)
		return
	}
	for _, t := range group {
		w.processTask(ctx, workerID, t)
	}
}

// processTextBatch marks every job in a text group processing, then scores
// the whole group through a single model pass.
func (w *Worker) processTextBatch(ctx context.Context, workerID int, group []task) {
	live := make([]task, 0, len(group))
	starts := make([]time.Time, 0, len(group))
	texts := make([]string, 0, len(group))
	for _, t := range group {
		start := time.Now()
		w.logger.Info("processing job", "worker_id", workerID, "job_id", t.msg.JobID, "type", t.msg.Type)
		if err := w.jobRepo.MarkProcessing(ctx, t.msg.JobID, start.UTC()); err != nil {
			w.logger.Error("failed to mark job processing", "job_id", t.msg.JobID, "error", err)
			w.retryOrDrop(t, err)
			continue
		}
		live = append(live, t)
		starts = append(starts, start)
		texts = append(texts, t.msg.Text)
	}
	if len(live) == 0 {
		return
	}

	results := w.text.ClassifyBatch(ctx, texts)
	for i, t := range live {
		w.finishTask(ctx, t, starts[i], results[i])
	}
}

func (w *Worker) processTask(ctx context.Context, workerID int, t task) {
	start := time.Now()
	jobID := t.msg.JobID

	w.logger.Info("processing job", "worker_id", workerID, "job_id", jobID, "type", t.msg.Type)

	if err := w.jobRepo.MarkProcessing(ctx, jobID, start.UTC()); err != nil {
		w.logger.Error("failed to mark job processing", "job_id", jobID, "error", err)
		w.retryOrDrop(t, err)
		return
	}

	result, err := w.classify(ctx, t.msg)
	if err != nil {
		w.logger.Error("classification failed", "job_id", jobID, "error", err)
		if err := w.jobRepo.MarkFailed(ctx, jobID, err.Error()); err != nil {
			w.logger.Error("failed to mark job failed", "job_id", jobID, "error", err)
		}
		w.retryOrDrop(t, err)
		return
	}

	w.finishTask(ctx, t, start, result)
}

// finishTask writes the result row, publishes the completion event and
// acks the delivery, in that order. The ack happens only once both the
// write and the publish have succeeded; a redelivery replays both, and
// duplicate completion events are tolerated downstream.
func (w *Worker) finishTask(ctx context.Context, t task, start time.Time, result moderation.Result) {
	jobID := t.msg.JobID
	sentiment := w.sentimentFor(t.msg, result)
	completedAt := time.Now().UTC()
	durationMs := time.Since(start).Milliseconds()

	action := result.Action
	confidence := result.Confidence
	severity := result.Severity
	job := &models.Job{
		ID:                   jobID,
		ModerationResult:     &action,
		Sentiment:            &sentiment,
		Confidence:           &confidence,
		Reasoning:            result.Reasoning,
		Labels:               result.Labels,
		Severity:             &severity,
		ProcessingDurationMs: &durationMs,
		CompletedAt:          &completedAt,
	}
	if err := w.jobRepo.Complete(ctx, job); err != nil {
		w.logger.Error("failed to complete job", "job_id", jobID, "error", err)
		w.retryOrDrop(t, err)
		return
	}

	completion := broker.CompletionMessage{
		JobID:            jobID,
		TenantID:         t.msg.TenantID,
		CommentID:        t.msg.CommentID,
		Text:             t.msg.Text,
		Sentiment:        string(sentiment),
		ModerationResult: string(action),
		Confidence:       confidence,
		Reasoning:        result.Reasoning,
		DetectedLabels:   result.Labels,
		SeverityScore:    &severity,
		ExtractedText:    result.ExtractedText,
		TranscribedText:  result.TranscribedText,
		CompletedAt:      completedAt,
		ProcessingMs:     durationMs,
	}
	if err := w.publisher.Publish(ctx, broker.RoutingKeyJobCompleted, completion); err != nil {
		w.logger.Error("failed to publish completion", "job_id", jobID, "error", err)
		w.retryOrDrop(t, err)
		return
	}

	if err := t.delivery.Ack(false); err != nil {
		w.logger.Error("failed to ack delivery", "job_id", jobID, "error", err)
	}

	w.logger.Info("completed job", "job_id", jobID, "action", action,
		"sentiment", sentiment, "duration_ms", durationMs)
}

// classify routes a job to the pipeline matching its type.
func (w *Worker) classify(ctx context.Context, msg broker.JobMessage) (moderation.Result, error) {
	switch models.JobType(msg.Type) {
	case models.JobTypeImage:
		return w.image.ClassifyImage(ctx, []byte(msg.Text))
	case models.JobTypeAudio:
		return w.audio.ClassifyAudio(ctx, []byte(msg.Text))
	default:
		return w.text.ClassifyText(ctx, msg.Text), nil
	}
}

// sentimentFor maps the moderation outcome to a sentiment. Content held
// for review or rejected is negative by definition; clean content gets a
// lexicon score. For image and audio jobs the score runs over whatever
// text the pipeline recovered.
func (w *Worker) sentimentFor(msg broker.JobMessage, result moderation.Result) models.Sentiment {
	if result.Action != models.ActionAllowed {
		return models.SentimentNegative
	}
	text := msg.Text
	switch models.JobType(msg.Type) {
	case models.JobTypeImage:
		text = result.ExtractedText
	case models.JobTypeAudio:
		text = result.TranscribedText
	}
	if text == "" {
		return models.SentimentNeutral
	}
	return w.sentiment.Analyze(text).Sentiment
}

// retryOrDrop requeues a delivery once; a redelivered failure is dropped
// so a poison message cannot loop forever.
func (w *Worker) retryOrDrop(t task, cause error) {
	requeue := !t.delivery.Redelivered
	if err := t.delivery.Nack(false, requeue); err != nil {
		w.logger.Error("failed to nack delivery", "job_id", t.msg.JobID, "error", err)
	}
	if !requeue {
		w.logger.Error("dropping job after redelivery", "job_id", t.msg.JobID, "error", cause)
	}
}
