package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"cryptogram/internal/database"
	"cryptogram/internal/models"
)

const statsCacheKey = "persona_stats"

// PersonaService manages the persona roster and its posting history reads.
// Personas are seeded from personas.json and treated as read-only by the
// posting core.
type PersonaService struct {
	db    *database.DB
	cache *gocache.Cache
}

// NewPersonaService creates a new persona service
func NewPersonaService(db *database.DB) *PersonaService {
	return &PersonaService{
		db:    db,
		cache: gocache.New(time.Minute, 5*time.Minute),
	}
}

// SyncFromConfig upserts the personas from the seed file into the
// database. Existing personas are updated in place, new ones inserted;
// personas removed from the file are kept (post history references them).
func (s *PersonaService) SyncFromConfig(ctx context.Context, cfg *models.PersonasConfig) error {
	for _, p := range cfg.Personas {
		if p.ID == "" || p.Name == "" {
			return fmt.Errorf("persona entry missing id or name")
		}
		if p.PostingFrequency == "" {
			p.PostingFrequency = "hourly"
		}
		if p.Language == "" {
			p.Language = "en"
		}

		result, err := s.db.ExecContext(ctx, `
			UPDATE personas
			SET name = ?, age = ?, gender = ?, country = ?, style = ?, tone = ?,
			    bias = ?, topics = ?, language = ?, posting_frequency = ?, posting_hours = ?
			WHERE id = ?
		`, p.Name, p.Age, p.Gender, p.Country, p.Style, p.Tone,
			p.Bias, p.Topics, p.Language, p.PostingFrequency, p.PostingHours, p.ID)
		if err != nil {
			return fmt.Errorf("failed to update persona %s: %w", p.ID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check persona update %s: %w", p.ID, err)
		}
		if affected > 0 {
			continue
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO personas (id, name, age, gender, country, style, tone, bias, topics, language, posting_frequency, posting_hours, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.Name, p.Age, p.Gender, p.Country, p.Style, p.Tone,
			p.Bias, p.Topics, p.Language, p.PostingFrequency, p.PostingHours, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to insert persona %s: %w", p.ID, err)
		}
	}

	s.cache.Delete(statsCacheKey)
	log.Printf("✅ Synced %d personas", len(cfg.Personas))
	return nil
}

// GetByID returns one persona.
func (s *PersonaService) GetByID(ctx context.Context, id string) (*models.Persona, error) {
	var p models.Persona
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, age, gender, country, style, tone, bias, topics, language, posting_frequency, posting_hours, created_at
		FROM personas
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.Country, &p.Style, &p.Tone,
		&p.Bias, &p.Topics, &p.Language, &p.PostingFrequency, &p.PostingHours, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("persona not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query persona: %w", err)
	}
	return &p, nil
}

// EligibleCandidates returns all hourly personas together with their
// trailing-24h post count, last post time, and mean engagement. The window
// bound is computed here and passed as a parameter so the query stays
// portable across dialects.
func (s *PersonaService) EligibleCandidates(ctx context.Context) ([]models.PersonaCandidate, error) {
	windowStart := time.Now().UTC().Add(-24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			p.id, p.name, p.age, p.gender, p.country, p.style, p.tone,
			p.bias, p.topics, p.language, p.posting_frequency, p.posting_hours, p.created_at,
			COUNT(dp.id) AS posts_last_24h,
			MAX(dp.posted_at) AS last_post,
			COALESCE(AVG(dp.engagement_score), 0) AS avg_engagement
		FROM personas p
		LEFT JOIN discord_posts dp ON dp.persona_id = p.id AND dp.posted_at > ?
		WHERE p.posting_frequency = 'hourly'
		GROUP BY p.id, p.name, p.age, p.gender, p.country, p.style, p.tone,
			p.bias, p.topics, p.language, p.posting_frequency, p.posting_hours, p.created_at
		ORDER BY posts_last_24h ASC
	`, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to query persona candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.PersonaCandidate
	for rows.Next() {
		var c models.PersonaCandidate
		var lastPost sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Age, &c.Gender, &c.Country, &c.Style, &c.Tone,
			&c.Bias, &c.Topics, &c.Language, &c.PostingFrequency, &c.PostingHours, &c.CreatedAt,
			&c.PostsLast24h, &lastPost, &c.AvgEngagement,
		); err != nil {
			return nil, fmt.Errorf("failed to scan persona candidate: %w", err)
		}
		if lastPost.Valid {
			t := lastPost.Time
			c.LastPost = &t
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// Stats returns per-persona posting totals for the dashboard. Results are
// cached briefly since the dashboard polls.
func (s *PersonaService) Stats(ctx context.Context) ([]models.PersonaStats, error) {
	if cached, found := s.cache.Get(statsCacheKey); found {
		return cached.([]models.PersonaStats), nil
	}

	now := time.Now().UTC()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			p.id, p.name, p.gender, p.age,
			COUNT(dp.id) AS total_posts,
			COUNT(CASE WHEN dp.posted_at > ? THEN 1 END) AS posts_last_24h,
			COUNT(CASE WHEN dp.posted_at > ? THEN 1 END) AS posts_last_week,
			COALESCE(AVG(dp.engagement_score), 0) AS avg_engagement,
			MAX(dp.posted_at) AS last_post
		FROM personas p
		LEFT JOIN discord_posts dp ON dp.persona_id = p.id
		GROUP BY p.id, p.name, p.gender, p.age
		ORDER BY total_posts DESC
	`, dayAgo, weekAgo)
	if err != nil {
		return nil, fmt.Errorf("failed to query persona stats: %w", err)
	}
	defer rows.Close()

	var stats []models.PersonaStats
	for rows.Next() {
		var st models.PersonaStats
		var lastPost sql.NullTime
		if err := rows.Scan(&st.ID, &st.Name, &st.Gender, &st.Age,
			&st.TotalPosts, &st.PostsLast24h, &st.PostsLastWeek,
			&st.AvgEngagement, &lastPost); err != nil {
			return nil, fmt.Errorf("failed to scan persona stats: %w", err)
		}
		if lastPost.Valid {
			t := lastPost.Time
			st.LastPost = &t
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cache.Set(statsCacheKey, stats, gocache.DefaultExpiration)
	return stats, nil
}
