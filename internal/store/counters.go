package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hooplab/achievements-worker/internal/models"
)

// Counters aggregates per-game box scores into career and season rows. All
// math happens in the upsert so concurrent workers serialize on the store's
// conflict resolution; addition and GREATEST are commutative, flags only OR
// upward, so the final row is the same whatever order events land in.
//
// Career rows carry an empty season_id rather than NULL so the unique key
// (player_id, scope, season_id) actually dedupes them.
type Counters struct {
	db     DB
	logger *zap.SugaredLogger
}

func NewCounters(db DB, logger *zap.SugaredLogger) *Counters {
	return &Counters{db: db, logger: logger}
}

const counterColumns = `player_id, scope, season_id, games_played,
	pts_total, ast_total, reb_total, stl_total, blk_total, tov_total,
	minutes_total, fgm_total, fga_total, tpm_total, tpa_total, ftm_total, fta_total,
	has_50pt_game, has_triple_double, has_double_double,
	max_pts_game, max_ast_game, max_reb_game, max_stl_game, max_blk_game,
	updated_at`

// UpdateCareer folds one game into the player's career row.
func (c *Counters) UpdateCareer(ctx context.Context, playerID string, stats models.PerGameStats) error {
	return c.upsert(ctx, playerID, models.CounterCareer, "", stats)
}

// UpdateSeason folds one game into the player's row for the given season.
func (c *Counters) UpdateSeason(ctx context.Context, playerID, seasonID string, stats models.PerGameStats) error {
	if seasonID == "" {
		return fmt.Errorf("update season: empty season_id for player %s", playerID)
	}
	return c.upsert(ctx, playerID, models.CounterSeason, seasonID, stats)
}

func (c *Counters) upsert(ctx context.Context, playerID string, scope models.CounterScope, seasonID string, stats models.PerGameStats) error {
	flags := models.DeriveFlags(stats)

	_, err := c.db.Exec(ctx, `
		INSERT INTO player_counters (`+counterColumns+`)
		VALUES ($1, $2, $3, 1,
		        $4, $5, $6, $7, $8, $9,
		        $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19,
		        $4, $5, $6, $7, $8,
		        now())
		ON CONFLICT (player_id, scope, season_id) DO UPDATE SET
			games_played      = player_counters.games_played + 1,
			pts_total         = player_counters.pts_total + EXCLUDED.pts_total,
			ast_total         = player_counters.ast_total + EXCLUDED.ast_total,
			reb_total         = player_counters.reb_total + EXCLUDED.reb_total,
			stl_total         = player_counters.stl_total + EXCLUDED.stl_total,
			blk_total         = player_counters.blk_total + EXCLUDED.blk_total,
			tov_total         = player_counters.tov_total + EXCLUDED.tov_total,
			minutes_total     = player_counters.minutes_total + EXCLUDED.minutes_total,
			fgm_total         = player_counters.fgm_total + EXCLUDED.fgm_total,
			fga_total         = player_counters.fga_total + EXCLUDED.fga_total,
			tpm_total         = player_counters.tpm_total + EXCLUDED.tpm_total,
			tpa_total         = player_counters.tpa_total + EXCLUDED.tpa_total,
			ftm_total         = player_counters.ftm_total + EXCLUDED.ftm_total,
			fta_total         = player_counters.fta_total + EXCLUDED.fta_total,
			has_50pt_game     = player_counters.has_50pt_game OR EXCLUDED.has_50pt_game,
			has_triple_double = player_counters.has_triple_double OR EXCLUDED.has_triple_double,
			has_double_double = player_counters.has_double_double OR EXCLUDED.has_double_double,
			max_pts_game      = GREATEST(player_counters.max_pts_game, EXCLUDED.max_pts_game),
			max_ast_game      = GREATEST(player_counters.max_ast_game, EXCLUDED.max_ast_game),
			max_reb_game      = GREATEST(player_counters.max_reb_game, EXCLUDED.max_reb_game),
			max_stl_game      = GREATEST(player_counters.max_stl_game, EXCLUDED.max_stl_game),
			max_blk_game      = GREATEST(player_counters.max_blk_game, EXCLUDED.max_blk_game),
			updated_at        = now()
	`,
		playerID, string(scope), seasonID,
		stats.Points, stats.Ast, stats.Reb, stats.Stl, stats.Blk, stats.Tov,
		stats.Minutes, stats.FGM, stats.FGA, stats.TPM, stats.TPA, stats.FTM, stats.FTA,
		flags.Has50PtGame, flags.HasTripleDouble, flags.HasDoubleDouble,
	)
	if err != nil {
		return fmt.Errorf("upsert %s counters for %s: %w", scope, playerID, err)
	}
	return nil
}

// Fetch reads the career row and, when seasonID is non-empty, the matching
// season row in a single query. Either result may be nil for players that
// have not accumulated yet.
func (c *Counters) Fetch(ctx context.Context, playerID, seasonID string) (career, season *models.PlayerCounters, err error) {
	rows, err := c.db.Query(ctx, `
		SELECT `+counterColumns+`
		FROM player_counters
		WHERE player_id = $1
		  AND ((scope = 'career' AND season_id = '')
		    OR (scope = 'season' AND season_id = $2))
	`, playerID, seasonID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch counters for %s: %w", playerID, err)
	}
	defer rows.Close()

	for rows.Next() {
		pc := &models.PlayerCounters{}
		if err := rows.Scan(
			&pc.PlayerID, &pc.Scope, &pc.SeasonID, &pc.GamesPlayed,
			&pc.PtsTotal, &pc.AstTotal, &pc.RebTotal, &pc.StlTotal, &pc.BlkTotal, &pc.TovTotal,
			&pc.MinutesTotal, &pc.FGMTotal, &pc.FGATotal, &pc.TPMTotal, &pc.TPATotal, &pc.FTMTotal, &pc.FTATotal,
			&pc.Flags.Has50PtGame, &pc.Flags.HasTripleDouble, &pc.Flags.HasDoubleDouble,
			&pc.MaxPtsGame, &pc.MaxAstGame, &pc.MaxRebGame, &pc.MaxStlGame, &pc.MaxBlkGame,
			&pc.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("scan counters: %w", err)
		}
		switch pc.Scope {
		case models.CounterCareer:
			career = pc
		case models.CounterSeason:
			season = pc
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("fetch counters rows: %w", err)
	}
	return career, season, nil
}
