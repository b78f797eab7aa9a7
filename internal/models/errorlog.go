package models

import "time"

// Error log type tags. Grouped by origin, not by Go error type.
const (
	ErrTypeSelectionFailed = "PERSONA_SELECTION_FAILED"
	ErrTypeContentFailed   = "CONTENT_GENERATION_FAILED"
	ErrTypeWebhookFailed   = "DISCORD_WEBHOOK_FAILED"
	ErrTypePostingFailed   = "PERSONA_POSTING_FAILED"
	ErrTypeDatabaseFailed  = "DATABASE_CONNECTION_FAILED"
	ErrTypeCronFailed      = "CRON_EXECUTION_FAILED"
	ErrTypePriceFeedFailed = "PRICE_FEED_FAILED"
)

// ErrorLog is one persisted operational failure.
type ErrorLog struct {
	ID           int64             `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	Type         string            `json:"type"`
	ErrorMessage string            `json:"error_message"`
	Context      map[string]string `json:"context,omitempty"`
}

// ErrorStat is an aggregated error count per type over a window.
type ErrorStat struct {
	Type           string    `json:"type"`
	Count          int       `json:"count"`
	LastOccurrence time.Time `json:"last_occurrence"`
}
