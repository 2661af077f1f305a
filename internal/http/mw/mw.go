// Package mw contains HTTP middleware for the moderation API.
package mw

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vietcms/moderation/internal/models"
)

// ContextKey is a type for context keys.
type ContextKey string

// ClientKey is the context key for the authenticated client.
const ClientKey ContextKey = "client"

// GetClient extracts the authenticated client from context.
func GetClient(ctx context.Context) *models.Client {
	client, _ := ctx.Value(ClientKey).(*models.Client)
	return client
}

// WithClient returns a context carrying the authenticated client.
func WithClient(ctx context.Context, client *models.Client) context.Context {
	return context.WithValue(ctx, ClientKey, client)
}

// errorBody is the error envelope shared by middleware-level rejections.
type errorBody struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes an error envelope directly, for rejections that happen
// before a request reaches a handler.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Success: false,
		Error:   errorDetail{Code: code, Message: message},
	})
}
