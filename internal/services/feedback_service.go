package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"cryptogram/internal/database"
	"cryptogram/internal/models"
)

// engagementWeights maps a Discord interaction type to its score delta.
var engagementWeights = map[string]int{
	"reaction": 1,
	"comment":  3,
	"click":    2,
	"share":    5,
	"join":     10,
}

// FeedbackService records Discord engagement events and aggregates them
// into persona analytics.
type FeedbackService struct {
	db *database.DB
}

func NewFeedbackService(db *database.DB) *FeedbackService {
	return &FeedbackService{db: db}
}

// WeightFor returns the score delta for an interaction type, or 0 for an
// unknown type.
func WeightFor(interactionType string) int {
	return engagementWeights[strings.ToLower(interactionType)]
}

// Record stores one feedback event and bumps the post's engagement score.
// The score only ever increases.
func (s *FeedbackService) Record(ctx context.Context, postID int64, interactionType, userID, metadata string) (*models.Feedback, error) {
	kind := strings.ToLower(interactionType)
	weight := WeightFor(kind)
	if weight == 0 {
		return nil, fmt.Errorf("unknown interaction type: %s", interactionType)
	}
	if userID == "" {
		userID = "anonymous"
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM discord_posts WHERE id = ?`, postID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post %d not found", postID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up post %d: %w", postID, err)
	}

	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO discord_feedback (post_id, interaction_type, user_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, postID, kind, userID, metadata, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert feedback: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback id: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE discord_posts SET engagement_score = engagement_score + ? WHERE id = ?
	`, weight, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to update engagement score: %w", err)
	}

	return &models.Feedback{
		ID:              id,
		PostID:          postID,
		InteractionType: kind,
		UserID:          userID,
		Metadata:        metadata,
		CreatedAt:       now,
	}, nil
}

// Analytics aggregates feedback from the last periodDays days into
// per-type stats, top personas by engagement and topic buckets.
func (s *FeedbackService) Analytics(ctx context.Context, periodDays int) (*models.FeedbackAnalytics, error) {
	if periodDays <= 0 {
		periodDays = 7
	}
	since := time.Now().UTC().Add(-time.Duration(periodDays) * 24 * time.Hour)

	analytics := &models.FeedbackAnalytics{
		PeriodDays:    periodDays,
		FeedbackStats: []models.FeedbackStat{},
		TopPersonas:   []models.TopPersona{},
		TopTopics:     []models.TopicStat{},
		GeneratedAt:   time.Now().UTC(),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT interaction_type, COUNT(*) AS cnt, COUNT(DISTINCT user_id) AS users
		FROM discord_feedback
		WHERE created_at > ?
		GROUP BY interaction_type
		ORDER BY cnt DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st models.FeedbackStat
		if err := rows.Scan(&st.InteractionType, &st.Count, &st.UniqueUsers); err != nil {
			return nil, fmt.Errorf("failed to scan feedback stat: %w", err)
		}
		analytics.FeedbackStats = append(analytics.FeedbackStats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	personaRows, err := s.db.QueryContext(ctx, `
		SELECT p.name, p.gender, p.age,
		       COUNT(dp.id) AS post_count,
		       COALESCE(AVG(dp.engagement_score), 0) AS avg_engagement,
		       COALESCE(SUM(dp.engagement_score), 0) AS total_engagement
		FROM discord_posts dp
		JOIN personas p ON p.id = dp.persona_id
		WHERE dp.posted_at > ?
		GROUP BY p.id, p.name, p.gender, p.age
		ORDER BY total_engagement DESC
		LIMIT 10
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top personas: %w", err)
	}
	defer personaRows.Close()
	for personaRows.Next() {
		var tp models.TopPersona
		if err := personaRows.Scan(&tp.Name, &tp.Gender, &tp.Age, &tp.PostCount, &tp.AvgEngagement, &tp.TotalEngagement); err != nil {
			return nil, fmt.Errorf("failed to scan top persona: %w", err)
		}
		analytics.TopPersonas = append(analytics.TopPersonas, tp)
	}
	if err := personaRows.Err(); err != nil {
		return nil, err
	}

	topics, err := s.topicBuckets(ctx, since)
	if err != nil {
		return nil, err
	}
	analytics.TopTopics = topics

	return analytics, nil
}

// topicBuckets classifies recent posts into coarse topic buckets by
// keyword match on the post content.
func (s *FeedbackService) topicBuckets(ctx context.Context, since time.Time) ([]models.TopicStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content, engagement_score
		FROM discord_posts
		WHERE posted_at > ?
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent posts: %w", err)
	}
	defer rows.Close()

	type bucket struct {
		posts int
		total int
	}
	buckets := map[string]*bucket{}
	for rows.Next() {
		var content string
		var score int
		if err := rows.Scan(&content, &score); err != nil {
			return nil, fmt.Errorf("failed to scan post for topic stats: %w", err)
		}
		topic := classifyTopic(content)
		b, ok := buckets[topic]
		if !ok {
			b = &bucket{}
			buckets[topic] = b
		}
		b.posts++
		b.total += score
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.TopicStat, 0, len(buckets))
	for topic, b := range buckets {
		out = append(out, models.TopicStat{
			Topic:         topic,
			PostCount:     b.posts,
			AvgEngagement: float64(b.total) / float64(b.posts),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AvgEngagement > out[j].AvgEngagement })
	return out, nil
}

func classifyTopic(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "bitcoin") || strings.Contains(lower, "btc"):
		return "Bitcoin"
	case strings.Contains(lower, "ethereum") || strings.Contains(lower, "eth"):
		return "Ethereum"
	case strings.Contains(lower, "defi") || strings.Contains(lower, "yield") || strings.Contains(lower, "staking"):
		return "DeFi"
	case strings.Contains(lower, "nft"):
		return "NFT"
	case strings.Contains(lower, "chart") || strings.Contains(lower, "support") || strings.Contains(lower, "resistance"):
		return "Technical Analysis"
	default:
		return "General"
	}
}
