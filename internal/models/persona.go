package models

import "time"

// Persona represents a configured virtual identity used to generate and
// attribute bot posts. Personas are seeded from personas.json and are
// read-only to the posting core.
type Persona struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	Gender           string    `json:"gender"`
	Country          string    `json:"country"`
	Style            string    `json:"style"`
	Tone             string    `json:"tone"`
	Bias             int       `json:"bias"` // negative bearish, positive bullish, 0 neutral
	Topics           string    `json:"topics"`
	Language         string    `json:"language"`
	PostingFrequency string    `json:"posting_frequency"` // "hourly" or "daily"
	PostingHours     string    `json:"posting_hours,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// PersonaCandidate is a persona joined with its trailing-24h posting
// activity, as produced by the selection query.
type PersonaCandidate struct {
	Persona
	PostsLast24h  int        `json:"posts_last_24h"`
	LastPost      *time.Time `json:"last_post,omitempty"`
	AvgEngagement float64    `json:"avg_engagement"`
}

// ScoredPersona is a candidate with its final selection score attached.
type ScoredPersona struct {
	PersonaCandidate
	SelectionScore float64 `json:"selection_score"`
}

// PersonaStats summarizes a persona's posting history for the dashboard.
type PersonaStats struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Gender        string     `json:"gender"`
	Age           int        `json:"age"`
	TotalPosts    int        `json:"total_posts"`
	PostsLast24h  int        `json:"posts_last_24h"`
	PostsLastWeek int        `json:"posts_last_week"`
	AvgEngagement float64    `json:"avg_engagement"`
	LastPost      *time.Time `json:"last_post,omitempty"`
}

// PersonasConfig is the personas.json seed file layout.
type PersonasConfig struct {
	Personas []Persona `json:"personas"`
}
