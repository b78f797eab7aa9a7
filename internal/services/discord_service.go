package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DiscordService delivers persona posts and operational alerts over
// Discord webhooks.
type DiscordService struct {
	httpClient *http.Client
	webhookURL string
	alertURL   string
}

// NewDiscordService creates a webhook client. alertURL may equal webhookURL
// when no dedicated alert channel is configured.
func NewDiscordService(webhookURL, alertURL string) *DiscordService {
	return &DiscordService{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		webhookURL: webhookURL,
		alertURL:   alertURL,
	}
}

type webhookPayload struct {
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Content   string `json:"content"`
}

// PostMessage sends content to the persona webhook, impersonating the
// persona by name and generated avatar.
func (s *DiscordService) PostMessage(ctx context.Context, personaName, content string) error {
	if s.webhookURL == "" {
		return fmt.Errorf("discord webhook URL not configured")
	}

	payload := webhookPayload{
		Username:  personaName,
		AvatarURL: avatarURL(personaName),
		Content:   content,
	}
	return s.send(ctx, s.webhookURL, payload)
}

// SendAlert delivers a critical error notification. Implements the Alerter
// interface used by ErrorLogger.
func (s *DiscordService) SendAlert(ctx context.Context, errType, message string, errCtx map[string]string) error {
	if s.alertURL == "" {
		return fmt.Errorf("alert webhook URL not configured")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 **Critical Error: %s**\n%s", errType, message)
	for k, v := range errCtx {
		fmt.Fprintf(&b, "\n`%s`: %s", k, v)
	}

	payload := webhookPayload{
		Username: "CryptoGram Monitor",
		Content:  truncate(b.String(), 1900),
	}
	return s.send(ctx, s.alertURL, payload)
}

func (s *DiscordService) send(ctx context.Context, target string, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("⚠️ [DISCORD] Webhook returned status %d: %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// avatarURL builds a deterministic avatar image for a persona name.
func avatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random&size=128"
}
