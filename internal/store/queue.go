package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hooplab/achievements-worker/internal/models"
)

// Queue drives the event_queue table. Claiming uses FOR UPDATE SKIP LOCKED so
// concurrent workers never lease overlapping rows; retry scheduling uses a
// transactional read-modify-write on the attempts counter.
type Queue struct {
	db          DB
	maxAttempts int
	leaseTTL    time.Duration
	logger      *zap.SugaredLogger
}

func NewQueue(db DB, maxAttempts int, leaseTTL time.Duration, logger *zap.SugaredLogger) *Queue {
	return &Queue{
		db:          db,
		maxAttempts: maxAttempts,
		leaseTTL:    leaseTTL,
		logger:      logger,
	}
}

// ClaimBatch atomically moves up to limit visible rows to processing and
// returns their identifiers in queue_id order. Rows stuck in processing
// longer than the lease TTL (a crashed worker's leftovers) are reclaimed by
// the same query.
func (q *Queue) ClaimBatch(ctx context.Context, limit int) ([]models.QueueItem, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE event_queue eq
		SET status = 'processing', updated_at = now()
		FROM (
			SELECT queue_id
			FROM event_queue
			WHERE (status = 'queued' AND visible_at <= now())
			   OR (status = 'processing' AND updated_at < now() - ($2 * interval '1 second'))
			ORDER BY queue_id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		) claimed
		WHERE eq.queue_id = claimed.queue_id
		RETURNING eq.queue_id, eq.event_id, eq.attempts
	`, limit, q.leaseTTL.Seconds())
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		item := models.QueueItem{Status: models.StatusProcessing}
		if err := rows.Scan(&item.QueueID, &item.EventID, &item.Attempts); err != nil {
			return nil, fmt.Errorf("claim batch scan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim batch rows: %w", err)
	}

	// UPDATE ... RETURNING does not guarantee row order.
	sort.Slice(items, func(i, j int) bool { return items[i].QueueID < items[j].QueueID })
	return items, nil
}

// MarkDone bulk-transitions processing rows to done. Ids no longer in
// processing are skipped, which keeps the call safe to repeat.
func (q *Queue) MarkDone(ctx context.Context, queueIDs []int64) error {
	if len(queueIDs) == 0 {
		return nil
	}
	_, err := q.db.Exec(ctx, `
		UPDATE event_queue
		SET status = 'done', updated_at = now()
		WHERE queue_id = ANY($1) AND status = 'processing'
	`, queueIDs)
	if err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return nil
}

// MarkRetry increments the row's attempts inside a transaction and either
// reschedules it with exponential backoff or, once attempts reach the
// configured maximum, parks it in the error state for operator triage.
func (q *Queue) MarkRetry(ctx context.Context, queueID int64, errMsg string) error {
	tx, err := q.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("mark retry begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var attempts int
	err = tx.QueryRow(ctx, `
		SELECT attempts FROM event_queue WHERE queue_id = $1 FOR UPDATE
	`, queueID).Scan(&attempts)
	if err != nil {
		return fmt.Errorf("mark retry select: %w", err)
	}

	attempts++
	if attempts >= q.maxAttempts {
		_, err = tx.Exec(ctx, `
			UPDATE event_queue
			SET status = 'error', attempts = $2, last_error = $3, updated_at = now()
			WHERE queue_id = $1
		`, queueID, attempts, errMsg)
		if err != nil {
			return fmt.Errorf("mark retry exhaust: %w", err)
		}
		q.logger.Errorw("queue item exhausted retries",
			"queue_id", queueID,
			"attempts", attempts,
			"error", errMsg,
		)
	} else {
		delay := Backoff(attempts)
		_, err = tx.Exec(ctx, `
			UPDATE event_queue
			SET status = 'queued', attempts = $2, last_error = $3,
			    visible_at = now() + ($4 * interval '1 second'), updated_at = now()
			WHERE queue_id = $1
		`, queueID, attempts, errMsg, delay.Seconds())
		if err != nil {
			return fmt.Errorf("mark retry reschedule: %w", err)
		}
		q.logger.Warnw("queue item rescheduled",
			"queue_id", queueID,
			"attempts", attempts,
			"delay", delay,
			"error", errMsg,
		)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("mark retry commit: %w", err)
	}
	return nil
}

// QueueLag counts rows that are visible and waiting. Health reporting only;
// never used for control flow.
func (q *Queue) QueueLag(ctx context.Context) (int64, error) {
	var lag int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM event_queue WHERE status = 'queued' AND visible_at <= now()
	`).Scan(&lag)
	if err != nil {
		return 0, fmt.Errorf("queue lag: %w", err)
	}
	return lag, nil
}

// Backoff returns the retry delay after the given attempt count:
// 2^min(attempts,7) minutes.
func Backoff(attempts int) time.Duration {
	exp := attempts
	if exp > 7 {
		exp = 7
	}
	return time.Duration(int64(1)<<exp) * time.Minute
}
