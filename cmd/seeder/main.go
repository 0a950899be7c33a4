package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Seeds synthetic player_stat_events into the events table and enqueues them,
// for exercising the worker locally. Not part of the production deployment.

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
		count       = flag.Int("events", 10, "number of events to seed")
		playerID    = flag.String("player", "player-demo-1", "player id to seed events for")
		seasonID    = flag.String("season", "season-2026", "season id")
		leagueID    = flag.String("league", "league-demo", "league id")
		gameYear    = flag.String("game-year", "2026", "game year")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("missing -database-url (or DATABASE_URL)")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, *databaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer conn.Close(ctx)

	for i := 0; i < *count; i++ {
		eventID := uuid.NewString()
		matchID := fmt.Sprintf("match-%s-%d", *playerID, i)

		// Vary the box score so different rules fire: every fifth game is a
		// 50-point outing, every third a triple-double. When both land on the
		// same game the triple-double line wins.
		payload := map[string]any{
			"points":  18 + (i%5)*9,
			"ast":     4 + i%7,
			"reb":     5 + i%6,
			"stl":     i % 3,
			"blk":     i % 2,
			"tov":     2,
			"minutes": 34,
			"fgm":     8, "fga": 17, "tpm": 2, "tpa": 6, "ftm": 4, "fta": 5,
		}
		if i%5 == 4 {
			payload["points"] = 52
		}
		if i%3 == 2 {
			payload["points"] = 12
			payload["ast"] = 11
			payload["reb"] = 10
		}

		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			log.Fatalf("marshal payload: %v", err)
		}

		_, err = conn.Exec(ctx, `
			INSERT INTO events (event_id, event_type, payload, player_id, match_id, season_id, league_id, game_year, occurred_at)
			VALUES ($1, 'player_stat_event', $2, $3, $4, $5, $6, $7, $8)
		`, eventID, payloadJSON, *playerID, matchID, *seasonID, *leagueID, *gameYear, time.Now().UTC())
		if err != nil {
			log.Fatalf("insert event: %v", err)
		}

		_, err = conn.Exec(ctx, `
			INSERT INTO event_queue (event_id, status, attempts, visible_at, updated_at)
			VALUES ($1, 'queued', 0, now(), now())
		`, eventID)
		if err != nil {
			log.Fatalf("enqueue event: %v", err)
		}
	}

	log.Printf("seeded %d events for %s", *count, *playerID)
}
