package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hooplab/achievements-worker/internal/canonjson"
	"github.com/hooplab/achievements-worker/internal/models"
)

// Ledger owns the player_awards table. Inserts are idempotent on the
// (player_id, rule_id, scope_key, level) tuple; a conflict is the normal
// already-awarded signal, not an error.
type Ledger struct {
	db     DB
	logger *zap.SugaredLogger
}

func NewLedger(db DB, logger *zap.SugaredLogger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// InsertAward attempts the insert and returns the new award id. On conflict
// with an existing award for the same tuple it returns ("", false, nil)
// without touching the existing row. The stats snapshot is stored as
// canonical JSON so stored snapshots are byte-stable.
func (l *Ledger) InsertAward(ctx context.Context, award *models.Award) (string, bool, error) {
	awardID := award.AwardID
	if awardID == "" {
		awardID = uuid.NewString()
	}
	statsJSON, err := canonjson.Marshal(award.Stats)
	if err != nil {
		return "", false, fmt.Errorf("insert award: serialize stats: %w", err)
	}

	err = l.db.QueryRow(ctx, `
		INSERT INTO player_awards (
			award_id, player_id, rule_id, scope_key, level,
			title, tier, match_id, season_id, league_id, game_year,
			awarded_at, stats, issuer, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7,
		          NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''),
		          $12, $13, $14, $15)
		ON CONFLICT (player_id, rule_id, scope_key, level) DO NOTHING
		RETURNING award_id
	`,
		awardID, award.PlayerID, award.RuleID, award.ScopeKey, award.Level,
		award.Title, award.Tier, award.MatchID, award.SeasonID, award.LeagueID, award.GameYear,
		award.AwardedAt, statsJSON, award.Issuer, award.Version,
	).Scan(&awardID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("insert award for %s/%s: %w", award.PlayerID, award.RuleID, err)
	}
	return awardID, true, nil
}

// AttachAssetURL records the rendered badge's public URL. Last writer wins;
// concurrent re-renders of the same award produce identical URLs by
// construction, so the race is benign.
func (l *Ledger) AttachAssetURL(ctx context.Context, awardID, url string) error {
	_, err := l.db.Exec(ctx, `
		UPDATE player_awards SET asset_svg_url = $2 WHERE award_id = $1
	`, awardID, url)
	if err != nil {
		return fmt.Errorf("attach asset url to %s: %w", awardID, err)
	}
	return nil
}

// ListPlayerAwards returns a player's most recent awards for the ops surface.
func (l *Ledger) ListPlayerAwards(ctx context.Context, playerID string) ([]models.Award, error) {
	rows, err := l.db.Query(ctx, `
		SELECT award_id, player_id, rule_id, COALESCE(scope_key, ''), level,
		       title, tier,
		       COALESCE(match_id, ''), COALESCE(season_id, ''),
		       COALESCE(league_id, ''), COALESCE(game_year, ''),
		       awarded_at, stats, issuer, version, COALESCE(asset_svg_url, '')
		FROM player_awards
		WHERE player_id = $1
		ORDER BY awarded_at DESC
		LIMIT 50
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list awards for %s: %w", playerID, err)
	}
	defer rows.Close()

	awards := make([]models.Award, 0)
	for rows.Next() {
		var a models.Award
		var stats []byte
		if err := rows.Scan(
			&a.AwardID, &a.PlayerID, &a.RuleID, &a.ScopeKey, &a.Level,
			&a.Title, &a.Tier,
			&a.MatchID, &a.SeasonID, &a.LeagueID, &a.GameYear,
			&a.AwardedAt, &stats, &a.Issuer, &a.Version, &a.AssetSVGURL,
		); err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		if len(stats) > 0 {
			if err := json.Unmarshal(stats, &a.Stats); err != nil {
				l.logger.Warnw("award stats snapshot corrupt", "award_id", a.AwardID, "error", err)
			}
		}
		awards = append(awards, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list awards rows: %w", err)
	}
	return awards, nil
}
