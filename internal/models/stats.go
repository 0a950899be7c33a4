package models

import (
	"encoding/json"
	"time"
)

// PerGameStats is a single game's box score. Missing or non-numeric payload
// keys extract as zero.
type PerGameStats struct {
	Points  float64 `json:"points"`
	Ast     float64 `json:"ast"`
	Reb     float64 `json:"reb"`
	Stl     float64 `json:"stl"`
	Blk     float64 `json:"blk"`
	Tov     float64 `json:"tov"`
	Minutes float64 `json:"minutes"`
	FGM     float64 `json:"fgm"`
	FGA     float64 `json:"fga"`
	TPM     float64 `json:"tpm"`
	TPA     float64 `json:"tpa"`
	FTM     float64 `json:"ftm"`
	FTA     float64 `json:"fta"`
}

// ExtractStats pulls the fixed stat keys out of an event payload.
func ExtractStats(payload map[string]any) PerGameStats {
	return PerGameStats{
		Points:  numeric(payload["points"]),
		Ast:     numeric(payload["ast"]),
		Reb:     numeric(payload["reb"]),
		Stl:     numeric(payload["stl"]),
		Blk:     numeric(payload["blk"]),
		Tov:     numeric(payload["tov"]),
		Minutes: numeric(payload["minutes"]),
		FGM:     numeric(payload["fgm"]),
		FGA:     numeric(payload["fga"]),
		TPM:     numeric(payload["tpm"]),
		TPA:     numeric(payload["tpa"]),
		FTM:     numeric(payload["ftm"]),
		FTA:     numeric(payload["fta"]),
	}
}

func numeric(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// ToContext returns the per_game evaluation scope for this box score.
func (s PerGameStats) ToContext() map[string]any {
	return map[string]any{
		"points":  s.Points,
		"ast":     s.Ast,
		"reb":     s.Reb,
		"stl":     s.Stl,
		"blk":     s.Blk,
		"tov":     s.Tov,
		"minutes": s.Minutes,
		"fgm":     s.FGM,
		"fga":     s.FGA,
		"tpm":     s.TPM,
		"tpa":     s.TPA,
		"ftm":     s.FTM,
		"fta":     s.FTA,
	}
}

// AchievementFlags are monotonic per-player markers derived from single games.
type AchievementFlags struct {
	Has50PtGame     bool `json:"has_50pt_game"`
	HasTripleDouble bool `json:"has_triple_double"`
	HasDoubleDouble bool `json:"has_double_double"`
}

// DeriveFlags computes the flags a single game contributes.
func DeriveFlags(s PerGameStats) AchievementFlags {
	doubles := 0
	for _, v := range []float64{s.Points, s.Ast, s.Reb, s.Stl, s.Blk} {
		if v >= 10 {
			doubles++
		}
	}
	return AchievementFlags{
		Has50PtGame:     s.Points >= 50,
		HasDoubleDouble: doubles >= 2,
		HasTripleDouble: doubles >= 3,
	}
}

// CounterScope distinguishes the career row from per-season rows.
type CounterScope string

const (
	CounterCareer CounterScope = "career"
	CounterSeason CounterScope = "season"
)

// PlayerCounters is one aggregate row keyed by (player_id, scope, season_id).
// SeasonID is empty exactly when Scope is career. Invariant: every total is
// at least its corresponding per-game maximum, and flags never reset.
type PlayerCounters struct {
	PlayerID    string       `json:"player_id"`
	Scope       CounterScope `json:"scope"`
	SeasonID    string       `json:"season_id,omitempty"`
	GamesPlayed int64        `json:"games_played"`

	PtsTotal     float64 `json:"pts_total"`
	AstTotal     float64 `json:"ast_total"`
	RebTotal     float64 `json:"reb_total"`
	StlTotal     float64 `json:"stl_total"`
	BlkTotal     float64 `json:"blk_total"`
	TovTotal     float64 `json:"tov_total"`
	MinutesTotal float64 `json:"minutes_total"`
	FGMTotal     float64 `json:"fgm_total"`
	FGATotal     float64 `json:"fga_total"`
	TPMTotal     float64 `json:"tpm_total"`
	TPATotal     float64 `json:"tpa_total"`
	FTMTotal     float64 `json:"ftm_total"`
	FTATotal     float64 `json:"fta_total"`

	Flags AchievementFlags `json:"flags"`

	MaxPtsGame float64 `json:"max_pts_game"`
	MaxAstGame float64 `json:"max_ast_game"`
	MaxRebGame float64 `json:"max_reb_game"`
	MaxStlGame float64 `json:"max_stl_game"`
	MaxBlkGame float64 `json:"max_blk_game"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ToContext flattens the counter row into an evaluation scope.
func (c *PlayerCounters) ToContext() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	return map[string]any{
		"games_played":      float64(c.GamesPlayed),
		"pts_total":         c.PtsTotal,
		"ast_total":         c.AstTotal,
		"reb_total":         c.RebTotal,
		"stl_total":         c.StlTotal,
		"blk_total":         c.BlkTotal,
		"tov_total":         c.TovTotal,
		"minutes_total":     c.MinutesTotal,
		"fgm_total":         c.FGMTotal,
		"fga_total":         c.FGATotal,
		"tpm_total":         c.TPMTotal,
		"tpa_total":         c.TPATotal,
		"ftm_total":         c.FTMTotal,
		"fta_total":         c.FTATotal,
		"has_50pt_game":     c.Flags.Has50PtGame,
		"has_triple_double": c.Flags.HasTripleDouble,
		"has_double_double": c.Flags.HasDoubleDouble,
		"max_pts_game":      c.MaxPtsGame,
		"max_ast_game":      c.MaxAstGame,
		"max_reb_game":      c.MaxRebGame,
		"max_stl_game":      c.MaxStlGame,
		"max_blk_game":      c.MaxBlkGame,
	}
}
