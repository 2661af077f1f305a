// Package service contains the business logic layer.
// ClientService owns tenant accounts and credentials; JobService owns the
// moderation job lifecycle up to the point the worker takes over.
package service

import (
	"log/slog"

	"github.com/vietcms/moderation/internal/cache"
	"github.com/vietcms/moderation/internal/config"
	"github.com/vietcms/moderation/internal/repository"
)

// Services holds all service instances.
type Services struct {
	Client *ClientService
	Job    *JobService
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, repos *repository.Repositories, publisher Publisher, statusCache *cache.StatusCache, logger *slog.Logger) *Services {
	return &Services{
		Client: NewClientService(cfg, repos, logger),
		Job:    NewJobService(repos, publisher, statusCache, logger),
	}
}
