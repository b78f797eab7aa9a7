package database

import (
	"os"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	tmpFile := "test_database.db"
	db, err := New(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		os.Remove(tmpFile)
	})

	return db
}

func TestInitializeCreatesSchema(t *testing.T) {
	db := newTestDB(t)

	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Initialize must be idempotent
	if err := db.Initialize(); err != nil {
		t.Fatalf("Second Initialize failed: %v", err)
	}

	tables := []string{
		"personas", "discord_posts", "persona_selections", "error_logs",
		"discord_feedback", "coin_prices", "users", "posts", "comments",
	}
	for _, table := range tables {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestSeedSystemUsers(t *testing.T) {
	db := newTestDB(t)
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	var name string
	var isAI bool
	err := db.QueryRow("SELECT name, is_ai FROM users WHERE user_id = ?", SystemAIUserID).Scan(&name, &isAI)
	if err != nil {
		t.Fatalf("AI system user not seeded: %v", err)
	}
	if name != "CryptoGram AI" || !isAI {
		t.Errorf("unexpected system user: name=%q is_ai=%v", name, isAI)
	}
}

func TestForeignKeyEnforced(t *testing.T) {
	db := newTestDB(t)
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// discord_posts must reference an existing persona
	_, err := db.Exec(`
		INSERT INTO discord_posts (persona_id, content, channel, posted_at, engagement_score, delivered)
		VALUES (?, ?, ?, ?, 0, 1)
	`, "ghost", "orphan content", "crypto-updates", time.Now().UTC())
	if err == nil {
		t.Fatal("expected foreign key violation for unknown persona, got nil")
	}
}

func TestDialectDetection(t *testing.T) {
	db := newTestDB(t)
	if db.Dialect() != "sqlite" {
		t.Errorf("expected sqlite dialect for file path, got %s", db.Dialect())
	}
}
