package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"cryptogram/internal/database"
	"cryptogram/internal/logging"
	"cryptogram/internal/models"
)

// PosterService runs the full posting pipeline: pick a persona, gather
// market context, generate content, deliver it to Discord and persist the
// post. Every stage failure is captured in the cycle result and the error
// log instead of being propagated to the caller.
type PosterService struct {
	db       *database.DB
	selector *PersonaScheduler
	market   *MarketService
	content  *ContentService
	discord  *DiscordService
	errors   *ErrorLogger
	metrics  *Metrics
	channel  string
	linkURL  string
}

// NewPosterService wires the posting pipeline together. metrics may be nil.
func NewPosterService(db *database.DB, selector *PersonaScheduler, market *MarketService, content *ContentService, discord *DiscordService, errors *ErrorLogger, metrics *Metrics, channel, linkURL string) *PosterService {
	return &PosterService{
		db:       db,
		selector: selector,
		market:   market,
		content:  content,
		discord:  discord,
		errors:   errors,
		metrics:  metrics,
		channel:  channel,
		linkURL:  linkURL,
	}
}

// RunPostingCycle executes one end-to-end posting attempt. The returned
// result always describes the outcome; the error return is always nil so
// schedulers never see a cycle failure as a job failure.
func (s *PosterService) RunPostingCycle(ctx context.Context) *models.PostCycleResult {
	result := &models.PostCycleResult{Timestamp: time.Now().UTC()}
	cycleID := uuid.New().String()
	clog := logging.WithCycle(cycleID, "")

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveCycle(result, time.Since(start))
		}
	}()

	persona, err := s.selector.SelectOptimalPersona(ctx)
	if err != nil {
		result.Stage = models.StageSelection
		result.Error = err.Error()
		s.errors.LogError(ctx, models.ErrTypeSelectionFailed, err, map[string]string{
			"stage": models.StageSelection,
			"cycle": cycleID,
		})
		return result
	}
	result.Persona = persona.Name
	clog = logging.WithCycle(cycleID, persona.ID)
	s.selector.RecordSelection(ctx, persona.ID, fmt.Sprintf("score %.2f", persona.SelectionScore))

	// A failed price feed aborts the cycle; content is never generated
	// from stale or missing market context.
	snapshot, err := s.market.Snapshot(ctx)
	if err != nil {
		clog.Warn("market snapshot unavailable, aborting cycle", "error", err)
		result.Stage = models.StageMarketData
		result.Error = err.Error()
		s.errors.LogError(ctx, models.ErrTypePriceFeedFailed, err, map[string]string{
			"stage":   models.StageMarketData,
			"persona": persona.ID,
		})
		return result
	}

	prompt := BuildPrompt(&persona.Persona, snapshot)

	content, err := s.content.Generate(ctx, prompt)
	if err != nil {
		result.Stage = models.StageContentGeneration
		result.Error = err.Error()
		s.errors.LogError(ctx, models.ErrTypeContentFailed, err, map[string]string{
			"stage":   models.StageContentGeneration,
			"persona": persona.ID,
		})
		return result
	}
	if s.linkURL != "" {
		content = content + "\n\n🔗 Join the discussion: " + s.linkURL
	}
	result.Preview = truncate(content, 120)

	delivered := true
	if err := s.discord.PostMessage(ctx, persona.Name, content); err != nil {
		delivered = false
		result.Stage = models.StageWebhook
		result.Error = err.Error()
		s.errors.LogError(ctx, models.ErrTypeWebhookFailed, err, map[string]string{
			"stage":   models.StageWebhook,
			"persona": persona.ID,
		})
	}

	postID, err := s.insertPost(ctx, persona.ID, content, delivered)
	if err != nil {
		result.Stage = models.StagePersistence
		result.Error = err.Error()
		s.errors.LogError(ctx, models.ErrTypePostingFailed, err, map[string]string{
			"stage":   models.StagePersistence,
			"persona": persona.ID,
		})
		return result
	}
	result.PostID = postID

	// The cycle succeeds only when the message actually reached Discord.
	result.Success = delivered
	if delivered {
		clog.Info("persona post published", "persona", persona.Name, "channel", s.channel, "post_id", postID)
	}
	return result
}

func (s *PosterService) insertPost(ctx context.Context, personaID, content string, delivered bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO discord_posts (persona_id, content, channel, posted_at, engagement_score, delivered)
		VALUES (?, ?, ?, ?, 0, ?)
	`, personaID, content, s.channel, time.Now().UTC(), delivered)
	if err != nil {
		return 0, fmt.Errorf("failed to insert discord post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted post id: %w", err)
	}
	return id, nil
}

// RecentPosts returns the latest bot posts, newest first.
func (s *PosterService) RecentPosts(ctx context.Context, limit int) ([]models.DiscordPost, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, persona_id, content, channel, posted_at, engagement_score, delivered
		FROM discord_posts
		ORDER BY posted_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}
	defer rows.Close()

	posts := []models.DiscordPost{}
	for rows.Next() {
		var p models.DiscordPost
		if err := rows.Scan(&p.ID, &p.PersonaID, &p.Content, &p.Channel, &p.PostedAt, &p.EngagementScore, &p.Delivered); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// BuildPrompt renders the persona voice and current market context into a
// generation prompt. Pure function so prompt shape is unit testable.
func BuildPrompt(p *models.Persona, snapshot *models.MarketSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a %d year old %s crypto enthusiast from %s.\n", p.Name, p.Age, p.Gender, p.Country)
	fmt.Fprintf(&b, "Writing style: %s. Tone: %s.\n", p.Style, p.Tone)
	if p.Topics != "" {
		fmt.Fprintf(&b, "Your favorite topics: %s.\n", p.Topics)
	}
	if p.Language != "" {
		fmt.Fprintf(&b, "Language preference: %s.\n", p.Language)
	}

	switch {
	case p.Bias > 0:
		b.WriteString("You lean bullish on the market overall.\n")
	case p.Bias < 0:
		b.WriteString("You lean bearish on the market overall.\n")
	default:
		b.WriteString("You stay neutral on market direction.\n")
	}

	if snapshot != nil && len(snapshot.Coins) > 0 {
		b.WriteString("\nCurrent market data:\n")
		ids := make([]string, 0, len(snapshot.Coins))
		for id := range snapshot.Coins {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			coin := snapshot.Coins[id]
			fmt.Fprintf(&b, "- %s: $%.2f (%+.2f%% 24h)\n", id, coin.USD, coin.USD24hChange)
		}
	} else {
		b.WriteString("\nNo live market data is available right now. Write about general crypto topics instead of specific prices.\n")
	}

	b.WriteString("\nWrite a short Discord post (2-4 sentences) in your voice about the crypto market. ")
	b.WriteString("Stay in character. Do not mention that you are an AI. No hashtag spam.")

	return b.String()
}
