package models

import "time"

// Feedback is one recorded Discord interaction with a bot post.
type Feedback struct {
	ID              int64     `json:"id"`
	PostID          int64     `json:"post_id"`
	InteractionType string    `json:"interaction_type"`
	UserID          string    `json:"user_id"`
	Metadata        string    `json:"metadata,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// FeedbackStat aggregates interactions of one type over a window.
type FeedbackStat struct {
	InteractionType string `json:"interaction_type"`
	Count           int    `json:"count"`
	UniqueUsers     int    `json:"unique_users"`
}

// TopPersona is a persona ranked by engagement for the analytics view.
type TopPersona struct {
	Name            string  `json:"name"`
	Gender          string  `json:"gender"`
	Age             int     `json:"age"`
	PostCount       int     `json:"post_count"`
	AvgEngagement   float64 `json:"avg_engagement"`
	TotalEngagement int     `json:"total_engagement"`
}

// TopicStat buckets bot posts by detected topic.
type TopicStat struct {
	Topic         string  `json:"topic"`
	PostCount     int     `json:"post_count"`
	AvgEngagement float64 `json:"avg_engagement"`
}

// FeedbackAnalytics is the combined analytics payload for the dashboard.
type FeedbackAnalytics struct {
	PeriodDays    int            `json:"period_days"`
	FeedbackStats []FeedbackStat `json:"feedback_stats"`
	TopPersonas   []TopPersona   `json:"top_personas"`
	TopTopics     []TopicStat    `json:"top_topics"`
	GeneratedAt   time.Time      `json:"generated_at"`
}
