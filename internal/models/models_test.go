package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJobIsTerminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusQueued, false},
		{JobStatusProcessing, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
	}
	for _, tt := range tests {
		j := &Job{Status: tt.status}
		if got := j.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal() with status %q = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestClientJSONHidesSecrets(t *testing.T) {
	client := Client{
		AppID:        "app-1",
		Email:        "owner@example.com",
		PasswordHash: "$2a$10$hash",
		APIKey:       "sk_live_secret",
		HMACSecret:   "whsec_secret",
	}

	data, err := json.Marshal(client)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, secret := range []string{"$2a$10$hash", "sk_live_secret", "whsec_secret"} {
		if strings.Contains(out, secret) {
			t.Errorf("serialized client leaks %q", secret)
		}
	}
	if !strings.Contains(out, "app-1") {
		t.Error("serialized client should include app_id")
	}
}

func TestJobJSONOmitsUnsetResults(t *testing.T) {
	j := Job{ID: "job-1", Status: JobStatusQueued}

	data, err := json.Marshal(j)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, field := range []string{"moderation_result", "sentiment", "confidence", "severity", "completed_at"} {
		if strings.Contains(out, field) {
			t.Errorf("queued job should omit %q, got %s", field, out)
		}
	}
}
