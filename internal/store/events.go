package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/hooplab/achievements-worker/internal/models"
)

// Events reads the external events table. The table is owned by the producer;
// this side only ever selects.
type Events struct {
	db     DB
	logger *zap.SugaredLogger
}

func NewEvents(db DB, logger *zap.SugaredLogger) *Events {
	return &Events{db: db, logger: logger}
}

// LoadEvents fetches the events behind a claimed batch, keyed by event_id.
// Ids with no backing row are simply absent from the result; the supervisor
// reschedules those items.
func (e *Events) LoadEvents(ctx context.Context, eventIDs []string) (map[string]*models.Event, error) {
	if len(eventIDs) == 0 {
		return map[string]*models.Event{}, nil
	}
	rows, err := e.db.Query(ctx, `
		SELECT event_id, event_type, COALESCE(payload, '{}'::jsonb),
		       COALESCE(player_id, ''), COALESCE(match_id, ''),
		       COALESCE(season_id, ''), COALESCE(league_id, ''),
		       COALESCE(game_year, ''), occurred_at
		FROM events
		WHERE event_id = ANY($1)
	`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	events := make(map[string]*models.Event, len(eventIDs))
	for rows.Next() {
		ev := &models.Event{}
		var payload []byte
		if err := rows.Scan(
			&ev.EventID, &ev.EventType, &payload,
			&ev.PlayerID, &ev.MatchID, &ev.SeasonID, &ev.LeagueID,
			&ev.GameYear, &ev.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.RawPayload = json.RawMessage(payload)
		if err := json.Unmarshal(payload, &ev.Payload); err != nil {
			e.logger.Warnw("event payload is not a JSON object", "event_id", ev.EventID, "error", err)
			ev.Payload = map[string]any{}
		}
		events[ev.EventID] = ev
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load events rows: %w", err)
	}
	return events, nil
}
