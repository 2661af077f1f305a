package mw

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vietcms/moderation/internal/crypto"
	"github.com/vietcms/moderation/internal/service"
)

// APIKeyHeader carries the tenant API key on moderation endpoints.
const APIKeyHeader = "X-API-Key"

const maxBodyBytes = 1 << 20 // 1MB

// APIKeyAuth authenticates moderation requests by API key and stores the
// resolved client in the request context.
func APIKeyAuth(clients *service.ClientService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				WriteError(w, http.StatusUnauthorized, "INVALID_API_KEY", "missing API key")
				return
			}

			client, err := clients.ValidateAPIKey(r.Context(), apiKey)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrClientSuspended):
					WriteError(w, http.StatusForbidden, "CLIENT_SUSPENDED", "client account is suspended")
				case errors.Is(err, service.ErrInvalidAPIKey):
					WriteError(w, http.StatusUnauthorized, "INVALID_API_KEY", "invalid API key")
				default:
					slog.Error("api key validation failed", "error", err)
					WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), client)))
		})
	}
}

// VerifySignature checks the HMAC signature of a request body against the
// authenticated client's secret. Must run after APIKeyAuth. The body is
// read in full and restored for the handler; the signature covers the
// exact raw bytes.
func VerifySignature() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := GetClient(r.Context())
			if client == nil {
				WriteError(w, http.StatusUnauthorized, "INVALID_API_KEY", "missing API key")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
			if err != nil {
				WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "failed to read request body")
				return
			}
			if len(body) > maxBodyBytes {
				WriteError(w, http.StatusRequestEntityTooLarge, "INVALID_REQUEST", "request body too large")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			signature := strings.TrimSpace(r.Header.Get(crypto.SignatureHeader))
			if !crypto.VerifySignature(client.HMACSecret, body, signature) {
				WriteError(w, http.StatusForbidden, "INVALID_SIGNATURE", "request signature verification failed")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// JWTAuth authenticates dashboard requests by bearer token.
func JWTAuth(clients *service.ClientService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				WriteError(w, http.StatusUnauthorized, "INVALID_TOKEN", "missing bearer token")
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")

			client, err := clients.ValidateToken(r.Context(), token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), client)))
		})
	}
}
