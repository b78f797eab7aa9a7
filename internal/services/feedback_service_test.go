package services

import (
	"context"
	"testing"
	"time"
)

func TestRecordFeedbackWeights(t *testing.T) {
	db := newTestDB(t)
	seedPersona(t, db, "alice", "Alice")
	postID := seedPost(t, db, "alice", time.Now().UTC(), 0)

	svc := NewFeedbackService(db)

	tests := []struct {
		interaction string
		weight      int
	}{
		{"reaction", 1},
		{"comment", 3},
		{"click", 2},
		{"share", 5},
		{"join", 10},
	}

	expected := 0
	for _, tt := range tests {
		t.Run(tt.interaction, func(t *testing.T) {
			fb, err := svc.Record(context.Background(), postID, tt.interaction, "user-1", "")
			if err != nil {
				t.Fatalf("Record failed: %v", err)
			}
			if fb.InteractionType != tt.interaction {
				t.Errorf("Expected type %s, got %s", tt.interaction, fb.InteractionType)
			}

			expected += tt.weight
			var score int
			if err := db.QueryRowContext(context.Background(),
				`SELECT engagement_score FROM discord_posts WHERE id = ?`, postID).Scan(&score); err != nil {
				t.Fatalf("Failed to read score: %v", err)
			}
			if score != expected {
				t.Errorf("Expected cumulative score %d, got %d", expected, score)
			}
		})
	}
}

func TestRecordFeedbackUnknownType(t *testing.T) {
	db := newTestDB(t)
	seedPersona(t, db, "alice", "Alice")
	postID := seedPost(t, db, "alice", time.Now().UTC(), 0)

	svc := NewFeedbackService(db)
	if _, err := svc.Record(context.Background(), postID, "superlike", "user-1", ""); err == nil {
		t.Error("Expected error for unknown interaction type")
	}
}

func TestRecordFeedbackMissingPost(t *testing.T) {
	db := newTestDB(t)
	svc := NewFeedbackService(db)

	if _, err := svc.Record(context.Background(), 9999, "reaction", "user-1", ""); err == nil {
		t.Error("Expected error for missing post")
	}
}

func TestRecordFeedbackDefaultsAnonymous(t *testing.T) {
	db := newTestDB(t)
	seedPersona(t, db, "alice", "Alice")
	postID := seedPost(t, db, "alice", time.Now().UTC(), 0)

	svc := NewFeedbackService(db)
	fb, err := svc.Record(context.Background(), postID, "reaction", "", "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if fb.UserID != "anonymous" {
		t.Errorf("Expected anonymous user, got %s", fb.UserID)
	}
}

func TestAnalytics(t *testing.T) {
	db := newTestDB(t)
	seedPersona(t, db, "alice", "Alice")
	seedPersona(t, db, "bob", "Bob")

	alicePost := seedPost(t, db, "alice", time.Now().UTC().Add(-2*time.Hour), 0)
	seedPost(t, db, "bob", time.Now().UTC().Add(-3*time.Hour), 0)

	svc := NewFeedbackService(db)
	for _, interaction := range []string{"reaction", "reaction", "share"} {
		if _, err := svc.Record(context.Background(), alicePost, interaction, "user-1", ""); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	analytics, err := svc.Analytics(context.Background(), 7)
	if err != nil {
		t.Fatalf("Analytics failed: %v", err)
	}

	if analytics.PeriodDays != 7 {
		t.Errorf("Expected period 7, got %d", analytics.PeriodDays)
	}
	if len(analytics.FeedbackStats) != 2 {
		t.Fatalf("Expected 2 feedback stat groups, got %d", len(analytics.FeedbackStats))
	}
	if analytics.FeedbackStats[0].InteractionType != "reaction" || analytics.FeedbackStats[0].Count != 2 {
		t.Errorf("Expected reaction count 2 first, got %+v", analytics.FeedbackStats[0])
	}

	if len(analytics.TopPersonas) == 0 {
		t.Fatal("Expected top personas")
	}
	// alice accumulated 1+1+5=7 engagement on her post
	if analytics.TopPersonas[0].Name != "Alice" {
		t.Errorf("Expected Alice on top, got %s", analytics.TopPersonas[0].Name)
	}
	if analytics.TopPersonas[0].TotalEngagement != 7 {
		t.Errorf("Expected total engagement 7, got %d", analytics.TopPersonas[0].TotalEngagement)
	}

	if len(analytics.TopTopics) == 0 {
		t.Fatal("Expected topic buckets")
	}
}

func TestClassifyTopic(t *testing.T) {
	tests := []struct {
		content string
		topic   string
	}{
		{"BTC just broke 65k", "Bitcoin"},
		{"Ethereum gas fees are down", "Ethereum"},
		{"New staking yields on this DeFi protocol", "DeFi"},
		{"minted my first nft today", "NFT"},
		{"strong support at this level on the chart", "Technical Analysis"},
		{"markets are wild lately", "General"},
	}
	for _, tt := range tests {
		if got := classifyTopic(tt.content); got != tt.topic {
			t.Errorf("classifyTopic(%q) = %q, expected %q", tt.content, got, tt.topic)
		}
	}
}
