// Package dispatcher delivers completion webhooks to client endpoints.
// Every HTTP attempt, successful or not, is recorded as an append-only
// audit row.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vietcms/moderation/internal/broker"
	"github.com/vietcms/moderation/internal/crypto"
	"github.com/vietcms/moderation/internal/models"
	"github.com/vietcms/moderation/internal/repository"
	"github.com/vietcms/moderation/internal/version"
)

const (
	prefetch           = 50
	maxResponseCapture = 1000
)

// backoffSchedule gives the wait before retry n (1-based attempt that failed).
var backoffSchedule = []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}

// Consumer abstracts the broker's delivery stream.
type Consumer interface {
	Consume(queue string, prefetch int) (<-chan amqp.Delivery, error)
}

// Config holds dispatcher configuration.
type Config struct {
	Timeout     time.Duration
	MaxAttempts int
}

// Dispatcher consumes completion messages and POSTs signed payloads to
// client webhooks with bounded retries.
type Dispatcher struct {
	clientRepo  repository.ClientRepository
	attemptRepo repository.WebhookAttemptRepository
	consumer    Consumer
	httpClient  *http.Client
	maxAttempts int

	// sleep is replaceable in tests to skip real backoff waits.
	sleep func(time.Duration)

	stop   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger
}

// New creates a new dispatcher.
func New(
	clientRepo repository.ClientRepository,
	attemptRepo repository.WebhookAttemptRepository,
	consumer Consumer,
	cfg Config,
	logger *slog.Logger,
) *Dispatcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		clientRepo:  clientRepo,
		attemptRepo: attemptRepo,
		consumer:    consumer,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		stop:        make(chan struct{}),
		logger:      logger.With("component", "dispatcher"),
	}
	d.sleep = d.waitBackoff
	return d
}

// waitBackoff waits out a backoff interval, returning early on Stop so a
// shutdown never sits behind a retry schedule.
func (d *Dispatcher) waitBackoff(dur time.Duration) {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
	case <-d.stop:
	}
}

// Start begins consuming completion messages.
func (d *Dispatcher) Start(ctx context.Context) error {
	deliveries, err := d.consumer.Consume(broker.QueueCompleted, prefetch)
	if err != nil {
		return err
	}

	d.logger.Info("starting", "max_attempts", d.maxAttempts)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.stop:
				return
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}
				// Each delivery runs in its own goroutine so one slow
				// endpoint cannot stall the others. The broker's prefetch
				// caps how many are in flight at once.
				d.wg.Add(1)
				go func(delivery amqp.Delivery) {
					defer d.wg.Done()
					d.handleDelivery(ctx, delivery)
				}(delivery)
			}
		}
	}()
	return nil
}

// Stop gracefully stops the dispatcher.
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping")
	close(d.stop)
	d.wg.Wait()
	d.logger.Info("stopped")
}

// handleDelivery runs one completion to a terminal outcome and acks it.
// Redelivering a half-dispatched webhook would double-send, so the retry
// loop lives here rather than in the broker.
func (d *Dispatcher) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	defer func() {
		if err := delivery.Ack(false); err != nil {
			d.logger.Error("failed to ack delivery", "error", err)
		}
	}()

	var msg broker.CompletionMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		d.logger.Error("dropping malformed completion message", "error", err)
		return
	}

	client, err := d.clientRepo.GetByAppID(ctx, msg.TenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			d.logger.Warn("client gone, skipping webhook", "job_id", msg.JobID, "tenant_id", msg.TenantID)
			return
		}
		d.logger.Error("failed to look up client", "job_id", msg.JobID, "error", err)
		return
	}
	if client.WebhookURL == "" {
		d.logger.Debug("no webhook configured", "job_id", msg.JobID, "app_id", client.AppID)
		return
	}

	d.Dispatch(ctx, client, msg)
}

// Dispatch delivers one completion payload with retries. The payload bytes
// are built once so every attempt carries the identical signed body.
func (d *Dispatcher) Dispatch(ctx context.Context, client *models.Client, msg broker.CompletionMessage) {
	payload, err := canonicalJSON(msg)
	if err != nil {
		d.logger.Error("failed to encode payload", "job_id", msg.JobID, "error", err)
		return
	}
	signature := crypto.SignBody(client.HMACSecret, payload)

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		outcome := d.attemptOnce(ctx, client, msg.JobID, payload, signature, attempt)
		if outcome == nil {
			d.logger.Info("webhook delivered", "job_id", msg.JobID, "attempt", attempt)
			return
		}

		if attempt < d.maxAttempts {
			d.logger.Warn("webhook attempt failed, will retry",
				"job_id", msg.JobID, "attempt", attempt, "error", outcome)
			d.sleep(backoffSchedule[(attempt-1)%len(backoffSchedule)])
			continue
		}
		d.logger.Error("webhook delivery failed permanently",
			"job_id", msg.JobID, "attempts", d.maxAttempts, "error", outcome)
	}
}

// attemptOnce performs a single POST and records its audit row. A nil
// return means the endpoint accepted the payload.
func (d *Dispatcher) attemptOnce(ctx context.Context, client *models.Client, jobID string, payload []byte, signature string, attempt int) error {
	headers := map[string]string{
		"Content-Type":          "application/json",
		crypto.SignatureHeader:  signature,
		"User-Agent":            version.UserAgent(),
		"X-Moderation-Delivery": ulid.Make().String(),
	}

	record := &models.WebhookAttempt{
		ID:             ulid.Make().String(),
		JobID:          jobID,
		ClientID:       client.ID,
		WebhookURL:     client.WebhookURL,
		RequestPayload: string(payload),
		RequestHeaders: headers,
		AttemptNumber:  attempt,
		MaxAttempts:    d.maxAttempts,
		SentAt:         time.Now().UTC(),
	}

	statusCode, responseBody, elapsed, err := d.post(ctx, client.WebhookURL, payload, headers)
	responseTimeMs := int(elapsed.Milliseconds())
	record.ResponseTimeMs = &responseTimeMs

	var outcome error
	switch {
	case err != nil:
		record.ErrorMessage = err.Error()
		outcome = err
	case statusCode >= 200 && statusCode < 300:
		record.StatusCode = &statusCode
		record.ResponseBody = responseBody
	default:
		record.StatusCode = &statusCode
		record.ResponseBody = responseBody
		outcome = fmt.Errorf("endpoint returned status %d", statusCode)
	}

	switch {
	case outcome == nil:
		record.Status = models.AttemptStatusSuccess
	case attempt < d.maxAttempts:
		record.Status = models.AttemptStatusRetrying
	default:
		record.Status = models.AttemptStatusFailed
	}

	if err := d.attemptRepo.Create(ctx, record); err != nil {
		d.logger.Error("failed to record webhook attempt", "job_id", jobID, "error", err)
	}
	return outcome
}

func (d *Dispatcher) post(ctx context.Context, url string, payload []byte, headers map[string]string) (int, string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return 0, "", elapsed, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseCapture))
	return resp.StatusCode, string(body), elapsed, nil
}

// canonicalJSON encodes without HTML escaping so the signed bytes match
// what a standard JSON encoder on the receiving side would compare against.
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
