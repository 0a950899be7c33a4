package models

import (
	"encoding/json"
	"time"
)

// EventType discriminates incoming queue events.
type EventType string

const (
	EventPlayerStat EventType = "player_stat_event"
	EventMatch      EventType = "match_event"
)

// QueueItemStatus is the lifecycle state of a queue row.
type QueueItemStatus string

const (
	StatusQueued     QueueItemStatus = "queued"
	StatusProcessing QueueItemStatus = "processing"
	StatusDone       QueueItemStatus = "done"
	StatusError      QueueItemStatus = "error"
)

// RuleScope determines which context an achievement rule is judged against
// and how the award's scope key is derived.
type RuleScope string

const (
	ScopePerGame RuleScope = "per_game"
	ScopeSeason  RuleScope = "season"
	ScopeCareer  RuleScope = "career"
)

// Event is an immutable record produced by the stat feed. The worker never
// writes to the events table.
type Event struct {
	EventID    string          `json:"event_id"`
	EventType  EventType       `json:"event_type"`
	Payload    map[string]any  `json:"payload"`
	RawPayload json.RawMessage `json:"-"`
	PlayerID   string          `json:"player_id,omitempty"`
	MatchID    string          `json:"match_id,omitempty"`
	SeasonID   string          `json:"season_id,omitempty"`
	LeagueID   string          `json:"league_id,omitempty"`
	GameYear   string          `json:"game_year,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// QueueItem is a lease record over an Event.
type QueueItem struct {
	QueueID   int64           `json:"queue_id"`
	EventID   string          `json:"event_id"`
	Status    QueueItemStatus `json:"status"`
	Attempts  int             `json:"attempts"`
	VisibleAt time.Time       `json:"visible_at"`
	LastError string          `json:"last_error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Rule is a declarative achievement definition. Predicate is the raw JSON
// expression tree, parsed lazily by the predicate package.
type Rule struct {
	RuleID    string          `json:"rule_id"`
	Title     string          `json:"title"`
	Tier      string          `json:"tier"`
	Scope     RuleScope       `json:"scope"`
	Predicate json.RawMessage `json:"predicate"`
	GameYear  string          `json:"game_year,omitempty"`
	LeagueID  string          `json:"league_id,omitempty"`
	SeasonID  string          `json:"season_id,omitempty"`
}

// Award is an issued achievement. The idempotency tuple is
// (player_id, rule_id, scope_key, level); ScopeKey is empty for career-scope
// awards so the tuple stays unique in the store.
type Award struct {
	AwardID     string         `json:"award_id"`
	PlayerID    string         `json:"player_id"`
	RuleID      string         `json:"rule_id"`
	ScopeKey    string         `json:"scope_key"`
	Level       int            `json:"level"`
	Title       string         `json:"title"`
	Tier        string         `json:"tier"`
	MatchID     string         `json:"match_id,omitempty"`
	SeasonID    string         `json:"season_id,omitempty"`
	LeagueID    string         `json:"league_id,omitempty"`
	GameYear    string         `json:"game_year,omitempty"`
	AwardedAt   time.Time      `json:"awarded_at"`
	Stats       map[string]any `json:"stats,omitempty"`
	Issuer      string         `json:"issuer"`
	Version     int            `json:"version"`
	AssetSVGURL string         `json:"asset_svg_url,omitempty"`
}

// ScopeKeyFor derives the award scope key for a rule fired against an event:
// the match for per-game rules, the season for season rules, empty for career.
func ScopeKeyFor(scope RuleScope, ev *Event) string {
	switch scope {
	case ScopePerGame:
		return ev.MatchID
	case ScopeSeason:
		return ev.SeasonID
	default:
		return ""
	}
}
