package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPostMessagePayload(t *testing.T) {
	var payload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	svc := NewDiscordService(srv.URL, srv.URL)
	if err := svc.PostMessage(context.Background(), "Alice Smith", "hello market"); err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}

	if payload.Username != "Alice Smith" {
		t.Errorf("Expected username Alice Smith, got %q", payload.Username)
	}
	if payload.Content != "hello market" {
		t.Errorf("Expected content forwarded, got %q", payload.Content)
	}
	if !strings.Contains(payload.AvatarURL, "Alice+Smith") {
		t.Errorf("Expected avatar URL with escaped name, got %q", payload.AvatarURL)
	}
}

func TestPostMessageWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := NewDiscordService(srv.URL, srv.URL)
	if err := svc.PostMessage(context.Background(), "Alice", "hi"); err == nil {
		t.Error("Expected error on non-2xx webhook response")
	}
}

func TestPostMessageUnconfigured(t *testing.T) {
	svc := NewDiscordService("", "")
	if err := svc.PostMessage(context.Background(), "Alice", "hi"); err == nil {
		t.Error("Expected error when webhook URL is empty")
	}
}

func TestSendAlertIncludesContext(t *testing.T) {
	var payload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	svc := NewDiscordService("", srv.URL)
	err := svc.SendAlert(context.Background(), "DISCORD_WEBHOOK_FAILED", "delivery failed",
		map[string]string{"persona": "alice"})
	if err != nil {
		t.Fatalf("SendAlert failed: %v", err)
	}

	if !strings.Contains(payload.Content, "DISCORD_WEBHOOK_FAILED") {
		t.Errorf("Expected error type in alert, got %q", payload.Content)
	}
	if !strings.Contains(payload.Content, "alice") {
		t.Errorf("Expected context values in alert, got %q", payload.Content)
	}
	if payload.Username != "CryptoGram Monitor" {
		t.Errorf("Expected monitor username, got %q", payload.Username)
	}
}
