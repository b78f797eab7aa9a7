package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"cryptogram/internal/database"
	"cryptogram/internal/models"
)

// ErrNoPersonaAvailable is returned when selection finds zero eligible
// personas. The caller must abort the cycle without generating or posting.
var ErrNoPersonaAvailable = errors.New("no eligible personas available")

// PersonaScheduler picks which persona posts next. Selection favors
// freshness and under-representation over raw engagement, with a small
// random perturbation so runs with identical history are not perfectly
// predictable.
type PersonaScheduler struct {
	db       *database.DB
	personas *PersonaService
	rng      *rand.Rand
	mu       sync.Mutex // rand.Rand is not safe for concurrent use
	now      func() time.Time
}

// NewPersonaScheduler creates a new scheduler. rng is injectable so tests
// can seed it; pass nil for a time-seeded source.
func NewPersonaScheduler(db *database.DB, personas *PersonaService, rng *rand.Rand) *PersonaScheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PersonaScheduler{
		db:       db,
		personas: personas,
		rng:      rng,
		now:      time.Now,
	}
}

// deterministicScore computes the score of one candidate before the
// random term:
//
//	(10 - posts_last_24h) * 3        recent-post penalty, no floor
//	+ min(hours_since_last, 24) * 2  idle bonus, capped at 48
//	  (flat 48 when the persona has never posted)
//	+ avg_engagement                 small nudge toward performers
func deterministicScore(c models.PersonaCandidate, now time.Time) float64 {
	score := float64(10-c.PostsLast24h) * 3

	if c.LastPost != nil {
		hoursSince := now.Sub(*c.LastPost).Hours()
		score += math.Min(hoursSince, 24) * 2
	} else {
		score += 48
	}

	score += c.AvgEngagement
	return score
}

// scoreCandidates applies the selection scoring to every candidate,
// including the bounded [0, 5) random perturbation.
func (s *PersonaScheduler) scoreCandidates(candidates []models.PersonaCandidate, now time.Time) []models.ScoredPersona {
	s.mu.Lock()
	defer s.mu.Unlock()

	scored := make([]models.ScoredPersona, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, models.ScoredPersona{
			PersonaCandidate: c,
			SelectionScore:   deterministicScore(c, now) + s.rng.Float64()*5,
		})
	}
	return scored
}

// SelectOptimalPersona selects exactly one persona to post next.
// It performs no writes; recording the decision is the caller's step.
func (s *PersonaScheduler) SelectOptimalPersona(ctx context.Context) (*models.ScoredPersona, error) {
	candidates, err := s.personas.EligibleCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoPersonaAvailable
	}

	scored := s.scoreCandidates(candidates, s.now().UTC())

	best := scored[0]
	for _, sp := range scored[1:] {
		if sp.SelectionScore > best.SelectionScore {
			best = sp
		}
	}

	log.Printf("🎯 [SCHEDULER] Selected persona: %s (%s, %d) - score %.2f, posts last 24h: %d",
		best.Name, best.Gender, best.Age, best.SelectionScore, best.PostsLast24h)

	return &best, nil
}

// RecordSelection appends the selection audit row. Best-effort: a failed
// write is logged locally and never fails the cycle.
func (s *PersonaScheduler) RecordSelection(ctx context.Context, personaID, reason string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persona_selections (persona_id, selected_at, reason)
		VALUES (?, ?, ?)
	`, personaID, s.now().UTC(), reason)
	if err != nil {
		log.Printf("⚠️  [SCHEDULER] Failed to record persona selection: %v", err)
	}
}

// RecentSelections returns the latest audit rows, newest first.
func (s *PersonaScheduler) RecentSelections(ctx context.Context, limit int) ([]models.PersonaSelection, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, persona_id, selected_at, reason
		FROM persona_selections
		ORDER BY selected_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list selections: %w", err)
	}
	defer rows.Close()

	selections := []models.PersonaSelection{}
	for rows.Next() {
		var sel models.PersonaSelection
		var reason sql.NullString
		if err := rows.Scan(&sel.ID, &sel.PersonaID, &sel.SelectedAt, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		sel.Reason = reason.String
		selections = append(selections, sel)
	}
	return selections, rows.Err()
}
