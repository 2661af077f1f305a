// Package handlers contains HTTP handlers for the moderation API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vietcms/moderation/internal/http/mw"
	"github.com/vietcms/moderation/internal/models"
	"github.com/vietcms/moderation/internal/service"
)

// Envelope wraps successful response payloads.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

func envelope[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data}
}

// Handlers bundles handler dependencies.
type Handlers struct {
	services *service.Services
	logger   *slog.Logger
}

// New creates the handler bundle.
func New(services *service.Services, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{services: services, logger: logger}
}

// clientFrom extracts the authenticated client placed on the context by
// the auth middleware.
func clientFrom(ctx context.Context) (*models.Client, error) {
	client := mw.GetClient(ctx)
	if client == nil {
		return nil, Error(http.StatusUnauthorized, "INVALID_API_KEY", "missing authentication")
	}
	return client, nil
}
