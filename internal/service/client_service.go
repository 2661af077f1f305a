package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vietcms/moderation/internal/config"
	"github.com/vietcms/moderation/internal/crypto"
	"github.com/vietcms/moderation/internal/models"
	"github.com/vietcms/moderation/internal/repository"
)

// ClientService handles tenant registration, authentication, and settings.
type ClientService struct {
	cfg    *config.Config
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewClientService creates a new client service.
func NewClientService(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) *ClientService {
	return &ClientService{
		cfg:    cfg,
		repos:  repos,
		logger: logger,
	}
}

// RegisterInput carries the fields required to create a client account.
type RegisterInput struct {
	OrganizationName string
	Email            string
	Password         string
	WebhookURL       string
}

// Credentials are returned exactly once, at registration. The API key and
// HMAC secret are not retrievable afterwards.
type Credentials struct {
	AppID      string
	APIKey     string
	HMACSecret string
}

// Register creates a client account and issues its credentials.
func (s *ClientService) Register(ctx context.Context, in RegisterInput) (*models.Client, *Credentials, error) {
	if in.WebhookURL != "" {
		if err := validateWebhookURL(in.WebhookURL); err != nil {
			return nil, nil, err
		}
	}

	if _, err := s.repos.Clients.GetByEmail(ctx, in.Email); err == nil {
		return nil, nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}
	apiKey, err := crypto.NewAPIKey()
	if err != nil {
		return nil, nil, err
	}
	hmacSecret, err := crypto.NewHMACSecret()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	client := &models.Client{
		AppID:            crypto.NewAppID(),
		OrganizationName: in.OrganizationName,
		Email:            in.Email,
		PasswordHash:     string(hash),
		APIKey:           apiKey,
		HMACSecret:       hmacSecret,
		WebhookURL:       in.WebhookURL,
		Status:           models.ClientStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repos.Clients.Create(ctx, client); err != nil {
		return nil, nil, fmt.Errorf("failed to register client: %w", err)
	}

	s.logger.Info("client registered", "app_id", client.AppID, "organization", client.OrganizationName)

	return client, &Credentials{
		AppID:      client.AppID,
		APIKey:     apiKey,
		HMACSecret: hmacSecret,
	}, nil
}

// Login verifies email and password and returns a signed JWT.
func (s *ClientService) Login(ctx context.Context, email, password string) (string, *models.Client, error) {
	client, err := s.repos.Clients.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up client: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": client.AppID,
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.JWTExpiry).Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, client, nil
}

// ValidateToken parses a JWT and resolves it to the client it names.
func (s *ClientService) ValidateToken(ctx context.Context, tokenString string) (*models.Client, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	appID, err := token.Claims.GetSubject()
	if err != nil || appID == "" {
		return nil, ErrInvalidToken
	}
	client, err := s.repos.Clients.GetByAppID(ctx, appID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return client, nil
}

// ValidateAPIKey resolves an API key to an active client.
func (s *ClientService) ValidateAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	client, err := s.repos.Clients.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	if client.Status == models.ClientStatusSuspended {
		return nil, ErrClientSuspended
	}

	// Update last used (fire and forget)
	go func() {
		_ = s.repos.Clients.TouchLastUsed(context.Background(), client.ID, time.Now().UTC())
	}()

	return client, nil
}

// UpdateWebhookURL changes where completion callbacks are delivered.
func (s *ClientService) UpdateWebhookURL(ctx context.Context, clientID int64, webhookURL string) error {
	if webhookURL != "" {
		if err := validateWebhookURL(webhookURL); err != nil {
			return err
		}
	}
	if err := s.repos.Clients.UpdateWebhookURL(ctx, clientID, webhookURL); err != nil {
		return fmt.Errorf("failed to update webhook url: %w", err)
	}
	return nil
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidWebhookURL
	}
	return nil
}
