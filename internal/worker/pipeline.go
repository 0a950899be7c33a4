// Package worker contains the event pipeline and the supervisor loop that
// drains the queue. One cooperative loop per process; scaling out means more
// processes, with mutual exclusion delegated to the store.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hooplab/achievements-worker/internal/badge"
	"github.com/hooplab/achievements-worker/internal/models"
	"github.com/hooplab/achievements-worker/internal/predicate"
)

// CounterStore aggregates per-game stats into career/season rows.
type CounterStore interface {
	UpdateCareer(ctx context.Context, playerID string, stats models.PerGameStats) error
	UpdateSeason(ctx context.Context, playerID, seasonID string, stats models.PerGameStats) error
	Fetch(ctx context.Context, playerID, seasonID string) (career, season *models.PlayerCounters, err error)
}

// RuleSource loads candidate achievement rules.
type RuleSource interface {
	FetchCandidateRules(ctx context.Context, gameYear, leagueID, seasonID string) ([]models.Rule, error)
}

// AwardLedger issues awards idempotently and attaches badge URLs.
type AwardLedger interface {
	InsertAward(ctx context.Context, award *models.Award) (awardID string, inserted bool, err error)
	AttachAssetURL(ctx context.Context, awardID, url string) error
}

// BadgeUploader renders and stores the badge for a fresh award.
type BadgeUploader interface {
	GenerateAndUpload(ctx context.Context, award *models.Award) (string, error)
}

// Pipeline runs the per-event work: stats extraction, counter upserts,
// predicate evaluation, award issuance, badge rendering.
type Pipeline struct {
	counters CounterStore
	rules    RuleSource
	awards   AwardLedger
	badges   BadgeUploader
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewPipeline(counters CounterStore, rules RuleSource, awards AwardLedger, badges BadgeUploader, logger *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		counters: counters,
		rules:    rules,
		awards:   awards,
		badges:   badges,
		logger:   logger,
		now:      time.Now,
	}
}

// Process handles one event. A returned error means the queue item must be
// retried; counter updates that already committed are not rolled back (the
// at-least-once tradeoff).
func (p *Pipeline) Process(ctx context.Context, ev *models.Event) error {
	switch ev.EventType {
	case models.EventPlayerStat:
		return p.processPlayerStat(ctx, ev)
	case models.EventMatch:
		// Accepted but carries nothing the worker aggregates.
		return nil
	default:
		p.logger.Infow("ignoring unknown event type",
			"event_id", ev.EventID,
			"event_type", ev.EventType,
		)
		return nil
	}
}

func (p *Pipeline) processPlayerStat(ctx context.Context, ev *models.Event) error {
	if ev.PlayerID == "" {
		return fmt.Errorf("player_stat_event %s has no player_id", ev.EventID)
	}

	stats := models.ExtractStats(ev.Payload)

	if err := p.counters.UpdateCareer(ctx, ev.PlayerID, stats); err != nil {
		return fmt.Errorf("update career counters: %w", err)
	}
	if ev.SeasonID != "" {
		if err := p.counters.UpdateSeason(ctx, ev.PlayerID, ev.SeasonID, stats); err != nil {
			return fmt.Errorf("update season counters: %w", err)
		}
	}

	career, season, err := p.counters.Fetch(ctx, ev.PlayerID, ev.SeasonID)
	if err != nil {
		return fmt.Errorf("fetch counters: %w", err)
	}

	evalCtx := predicate.Context{
		PerGame: stats.ToContext(),
		Season:  season.ToContext(),
		Career:  career.ToContext(),
	}

	rules, err := p.rules.FetchCandidateRules(ctx, ev.GameYear, ev.LeagueID, ev.SeasonID)
	if err != nil {
		return fmt.Errorf("fetch candidate rules: %w", err)
	}

	// A failure while handling one rule must not stop the remaining rules,
	// but the item is still retried so the missing award or badge is
	// eventually produced.
	var firstErr error
	for _, rule := range rules {
		if err := p.processRule(ctx, ev, &rule, stats, season, career, evalCtx); err != nil {
			p.logger.Errorw("rule processing failed",
				"event_id", ev.EventID,
				"rule_id", rule.RuleID,
				"error", err,
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("rule %s: %w", rule.RuleID, err)
			}
		}
	}
	return firstErr
}

func (p *Pipeline) processRule(ctx context.Context, ev *models.Event, rule *models.Rule, stats models.PerGameStats, season, career *models.PlayerCounters, evalCtx predicate.Context) error {
	node, err := predicate.Parse(rule.Predicate)
	if err != nil {
		p.logger.Warnw("rule predicate is malformed",
			"rule_id", rule.RuleID,
			"event_id", ev.EventID,
			"error", err,
		)
		return nil
	}
	if !predicate.Eval(node, evalCtx) {
		return nil
	}

	award := &models.Award{
		PlayerID:  ev.PlayerID,
		RuleID:    rule.RuleID,
		ScopeKey:  models.ScopeKeyFor(rule.Scope, ev),
		Level:     1,
		Title:     rule.Title,
		Tier:      rule.Tier,
		MatchID:   ev.MatchID,
		SeasonID:  ev.SeasonID,
		LeagueID:  ev.LeagueID,
		GameYear:  ev.GameYear,
		AwardedAt: p.now().UTC(),
		Stats: map[string]any{
			"per_game":       stats.ToContext(),
			"season":         season.ToContext(),
			"career":         career.ToContext(),
			"rule_predicate": json.RawMessage(rule.Predicate),
		},
		Issuer:  badge.Issuer,
		Version: 1,
	}

	awardID, inserted, err := p.awards.InsertAward(ctx, award)
	if err != nil {
		return fmt.Errorf("insert award: %w", err)
	}
	if !inserted {
		// Already awarded on a previous delivery.
		return nil
	}
	award.AwardID = awardID
	awardsIssued.Inc()
	p.logger.Infow("award issued",
		"award_id", awardID,
		"player_id", ev.PlayerID,
		"rule_id", rule.RuleID,
		"title", rule.Title,
		"tier", rule.Tier,
	)

	url, err := p.badges.GenerateAndUpload(ctx, award)
	if err != nil {
		return fmt.Errorf("render badge: %w", err)
	}
	if err := p.awards.AttachAssetURL(ctx, awardID, url); err != nil {
		return fmt.Errorf("attach badge url: %w", err)
	}
	badgesRendered.Inc()
	return nil
}
