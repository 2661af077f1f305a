package handlers

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietcms/moderation/internal/version"
)

// BrokerPinger reports broker connection liveness.
type BrokerPinger interface {
	Ping() error
}

// HealthData reports dependency reachability.
type HealthData struct {
	Status    string            `json:"status" enum:"healthy,degraded"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
}

// HealthOutput is the response for GET /health.
type HealthOutput struct {
	Body Envelope[HealthData]
}

// HealthHandler checks the store and the broker.
type HealthHandler struct {
	db     *sqlx.DB
	broker BrokerPinger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(db *sqlx.DB, broker BrokerPinger) *HealthHandler {
	return &HealthHandler{db: db, broker: broker}
}

// Health reports overall service health. Worker liveness is inferred from
// broker reachability; workers consume from the same connection class.
func (h *HealthHandler) Health(ctx context.Context, input *struct{}) (*HealthOutput, error) {
	services := map[string]string{
		"database":       "up",
		"message_broker": "up",
		"workers":        "up",
	}

	if err := h.db.PingContext(ctx); err != nil {
		services["database"] = "down"
	}
	if h.broker == nil || h.broker.Ping() != nil {
		services["message_broker"] = "down"
		services["workers"] = "down"
	}

	status := "healthy"
	for _, state := range services {
		if state == "down" {
			status = "degraded"
			break
		}
	}

	return &HealthOutput{
		Body: envelope(HealthData{
			Status:    status,
			Timestamp: time.Now().UTC(),
			Services:  services,
			Version:   version.Get().Version,
		}),
	}, nil
}
