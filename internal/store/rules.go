package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hooplab/achievements-worker/internal/models"
)

// RuleCache abstracts the short-TTL cache in front of the rule table.
type RuleCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// RedisRuleCache implements RuleCache using Redis.
type RedisRuleCache struct {
	client *redis.Client
}

func NewRedisRuleCache(client *redis.Client) *RedisRuleCache {
	return &RedisRuleCache{client: client}
}

func (c *RedisRuleCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *RedisRuleCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Registry loads active achievement rules filtered by game year, league, and
// season. A rule whose filter column is NULL applies everywhere; a set filter
// must equal the event's value. Caching is optional and bounded by ttl, so a
// deactivated rule stops firing within one TTL.
type Registry struct {
	db     DB
	cache  RuleCache
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewRegistry(db DB, cache RuleCache, ttl time.Duration, logger *zap.SugaredLogger) *Registry {
	return &Registry{db: db, cache: cache, ttl: ttl, logger: logger}
}

// FetchCandidateRules returns the active rules applicable to the given
// filters, ordered by rule_id for stable iteration. Empty filter arguments
// match only rules with the corresponding filter unset.
func (r *Registry) FetchCandidateRules(ctx context.Context, gameYear, leagueID, seasonID string) ([]models.Rule, error) {
	cacheKey := fmt.Sprintf("rules:%s:%s:%s", gameYear, leagueID, seasonID)

	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey); err == nil {
			var rules []models.Rule
			if err := json.Unmarshal([]byte(cached), &rules); err == nil {
				return rules, nil
			}
			r.logger.Warnw("rule cache entry corrupt, falling back to query", "key", cacheKey)
		}
	}

	rules, err := r.queryRules(ctx, gameYear, leagueID, seasonID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if data, err := json.Marshal(rules); err == nil {
			if err := r.cache.Set(ctx, cacheKey, string(data), r.ttl); err != nil {
				r.logger.Warnw("rule cache set failed", "key", cacheKey, "error", err)
			}
		}
	}
	return rules, nil
}

func (r *Registry) queryRules(ctx context.Context, gameYear, leagueID, seasonID string) ([]models.Rule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT rule_id, title, tier, scope, predicate,
		       COALESCE(game_year, ''), COALESCE(league_id, ''), COALESCE(season_id, '')
		FROM achievement_rules
		WHERE is_active = true
		  AND scope IN ('per_game', 'season', 'career')
		  AND (game_year IS NULL OR game_year = NULLIF($1, ''))
		  AND (league_id IS NULL OR league_id = NULLIF($2, ''))
		  AND (season_id IS NULL OR season_id = NULLIF($3, ''))
		ORDER BY rule_id
	`, gameYear, leagueID, seasonID)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate rules: %w", err)
	}
	defer rows.Close()

	rules := make([]models.Rule, 0)
	for rows.Next() {
		var rule models.Rule
		var predicate []byte
		if err := rows.Scan(
			&rule.RuleID, &rule.Title, &rule.Tier, &rule.Scope, &predicate,
			&rule.GameYear, &rule.LeagueID, &rule.SeasonID,
		); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.Predicate = json.RawMessage(predicate)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch candidate rules rows: %w", err)
	}
	return rules, nil
}
