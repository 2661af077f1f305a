package service

import (
	"context"
	"sync"
	"time"

	"github.com/vietcms/moderation/internal/models"
	"github.com/vietcms/moderation/internal/repository"
)

// mockClientRepo is an in-memory ClientRepository.
type mockClientRepo struct {
	mu      sync.Mutex
	nextID  int64
	clients map[int64]*models.Client
}

func newMockClientRepo() *mockClientRepo {
	return &mockClientRepo{clients: make(map[int64]*models.Client)}
}

func (m *mockClientRepo) Create(ctx context.Context, client *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	client.ID = m.nextID
	cp := *client
	m.clients[client.ID] = &cp
	return nil
}

func (m *mockClientRepo) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockClientRepo) GetByAppID(ctx context.Context, appID string) (*models.Client, error) {
	return m.findBy(func(c *models.Client) bool { return c.AppID == appID })
}

func (m *mockClientRepo) GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	return m.findBy(func(c *models.Client) bool { return c.APIKey == apiKey })
}

func (m *mockClientRepo) GetByEmail(ctx context.Context, email string) (*models.Client, error) {
	return m.findBy(func(c *models.Client) bool { return c.Email == email })
}

func (m *mockClientRepo) findBy(match func(*models.Client) bool) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockClientRepo) UpdateWebhookURL(ctx context.Context, id int64, webhookURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.WebhookURL = webhookURL
	return nil
}

func (m *mockClientRepo) UpdateStatus(ctx context.Context, id int64, status models.ClientStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	return nil
}

func (m *mockClientRepo) TouchLastUsed(ctx context.Context, id int64, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[id]; ok {
		c.LastUsedAt = &usedAt
	}
	return nil
}

// mockJobRepo is an in-memory JobRepository.
type mockJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
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
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok && j.ClientID == clientID {
		cp := *j
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockJobRepo) ListByClient(ctx context.Context, clientID int64, limit, offset int) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []*models.Job
	for _, j := range m.jobs {
		if j.ClientID == clientID {
			cp := *j
			jobs = append(jobs, &cp)
		}
	}
	return jobs, nil
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

// mockAttemptRepo is an in-memory WebhookAttemptRepository.
type mockAttemptRepo struct {
	mu       sync.Mutex
	attempts []*models.WebhookAttempt
}

func newMockAttemptRepo() *mockAttemptRepo {
	return &mockAttemptRepo{}
}

func (m *mockAttemptRepo) Create(ctx context.Context, attempt *models.WebhookAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *attempt
	m.attempts = append(m.attempts, &cp)
	return nil
}

func (m *mockAttemptRepo) GetByJobID(ctx context.Context, jobID string) ([]*models.WebhookAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.WebhookAttempt
	for _, a := range m.attempts {
		if a.JobID == jobID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// recordingPublisher captures published messages.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

type publishedMessage struct {
	routingKey string
	body       any
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMessage{routingKey: routingKey, body: body})
	return nil
}

func (p *recordingPublisher) published() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.messages...)
}

func newTestRepos() *repository.Repositories {
	return &repository.Repositories{
		Clients:         newMockClientRepo(),
		Jobs:            newMockJobRepo(),
		WebhookAttempts: newMockAttemptRepo(),
	}
}
