package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cryptogram/internal/database"
	"cryptogram/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test_services.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}
	return db
}

func seedPersona(t *testing.T, db *database.DB, id, name string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO personas (id, name, age, gender, country, style, tone, bias, topics, language, posting_frequency, posting_hours, created_at)
		VALUES (?, ?, 30, 'female', 'US', 'casual', 'optimistic', 1, 'bitcoin,defi', 'en', 'hourly', '', ?)
	`, id, name, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to seed persona %s: %v", id, err)
	}
}

func seedPost(t *testing.T, db *database.DB, personaID string, postedAt time.Time, engagement int) int64 {
	t.Helper()

	res, err := db.Exec(`
		INSERT INTO discord_posts (persona_id, content, channel, posted_at, engagement_score, delivered)
		VALUES (?, 'bitcoin is moving today', 'crypto-updates', ?, ?, TRUE)
	`, personaID, postedAt, engagement)
	if err != nil {
		t.Fatalf("Failed to seed post for %s: %v", personaID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read seeded post id: %v", err)
	}
	return id
}

func countRows(t *testing.T, db *database.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return n
}

func candidate(id string, posts int, lastPost *time.Time, engagement float64) models.PersonaCandidate {
	return models.PersonaCandidate{
		Persona:       models.Persona{ID: id, Name: id},
		PostsLast24h:  posts,
		LastPost:      lastPost,
		AvgEngagement: engagement,
	}
}
