package models

import "time"

// DiscordPost records one publish attempt by the persona bot.
// engagement_score starts at 0 and is only ever incremented by the
// feedback path; the posting core never writes it after insert.
type DiscordPost struct {
	ID              int64     `json:"id"`
	PersonaID       string    `json:"persona_id"`
	Content         string    `json:"content"`
	Channel         string    `json:"channel"`
	PostedAt        time.Time `json:"posted_at"`
	EngagementScore int       `json:"engagement_score"`
	Delivered       bool      `json:"delivered"`
}

// PersonaSelection is the append-only audit trail of selection decisions.
type PersonaSelection struct {
	ID         int64     `json:"id"`
	PersonaID  string    `json:"persona_id"`
	SelectedAt time.Time `json:"selected_at"`
	Reason     string    `json:"reason"`
}

// PostCycleResult is the structured outcome of one posting cycle.
// The orchestrator always returns one of these instead of raising.
type PostCycleResult struct {
	Success   bool      `json:"success"`
	Persona   string    `json:"persona,omitempty"`
	PostID    int64     `json:"post_id,omitempty"`
	Preview   string    `json:"preview,omitempty"`
	Stage     string    `json:"stage,omitempty"` // failed stage when Success is false
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Posting cycle stages, used in PostCycleResult.Stage.
const (
	StageSelection         = "persona_selection"
	StageMarketData        = "market_data"
	StageContentGeneration = "content_generation"
	StageWebhook           = "webhook"
	StagePersistence       = "persistence"
)
