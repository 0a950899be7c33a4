package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hooplab/achievements-worker/internal/models"
)

const maxErrorSleep = 30 * time.Second

// QueueDriver leases work and reports outcomes.
type QueueDriver interface {
	ClaimBatch(ctx context.Context, limit int) ([]models.QueueItem, error)
	MarkDone(ctx context.Context, queueIDs []int64) error
	MarkRetry(ctx context.Context, queueID int64, errMsg string) error
	QueueLag(ctx context.Context) (int64, error)
}

// EventSource loads the events behind claimed queue items.
type EventSource interface {
	LoadEvents(ctx context.Context, eventIDs []string) (map[string]*models.Event, error)
}

// EventProcessor handles a single event.
type EventProcessor interface {
	Process(ctx context.Context, ev *models.Event) error
}

// Supervisor runs the single cooperative drain loop: claim a batch, process
// each item in queue_id order, acknowledge the successes, reschedule the
// failures. Cancellation is observed between iterations, never mid-event.
type Supervisor struct {
	queue        QueueDriver
	events       EventSource
	pipeline     EventProcessor
	batchSize    int
	pollInterval time.Duration
	logger       *zap.SugaredLogger
}

func NewSupervisor(queue QueueDriver, events EventSource, pipeline EventProcessor, batchSize int, pollInterval time.Duration, logger *zap.SugaredLogger) *Supervisor {
	return &Supervisor{
		queue:        queue,
		events:       events,
		pipeline:     pipeline,
		batchSize:    batchSize,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run loops until ctx is cancelled. Iteration-level failures (store down,
// ack failures) are logged and absorbed with a longer sleep; nothing is lost
// because unacknowledged items resurface once their lease expires.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Infow("supervisor started",
		"batch_size", s.batchSize,
		"poll_interval", s.pollInterval,
	)
	for {
		if ctx.Err() != nil {
			s.logger.Info("supervisor stopped")
			return nil
		}
		if err := s.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("supervisor stopped")
				return nil
			}
			loopErrors.Inc()
			s.logger.Errorw("supervisor iteration failed", "error", err)
			sleep(ctx, errorSleep(s.pollInterval))
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context) error {
	start := time.Now()

	batch, err := s.queue.ClaimBatch(ctx, s.batchSize)
	if err != nil {
		return err
	}

	if lag, err := s.queue.QueueLag(ctx); err == nil {
		queueLag.Set(float64(lag))
	}

	if len(batch) == 0 {
		sleep(ctx, s.pollInterval)
		return nil
	}

	events, err := s.events.LoadEvents(ctx, eventIDs(batch))
	if err != nil {
		return err
	}

	var doneIDs []int64
	for _, item := range batch {
		ev, ok := events[item.EventID]
		if !ok {
			if err := s.queue.MarkRetry(ctx, item.QueueID, "event missing"); err != nil {
				return err
			}
			eventsRetried.Inc()
			continue
		}

		if perr := s.pipeline.Process(ctx, ev); perr != nil {
			s.logger.Errorw("event processing failed",
				"queue_id", item.QueueID,
				"event_id", item.EventID,
				"error", perr,
			)
			if err := s.queue.MarkRetry(ctx, item.QueueID, perr.Error()); err != nil {
				return err
			}
			eventsRetried.Inc()
			continue
		}
		doneIDs = append(doneIDs, item.QueueID)
	}

	if err := s.queue.MarkDone(ctx, doneIDs); err != nil {
		return err
	}
	eventsProcessed.Add(float64(len(doneIDs)))
	batchDuration.Observe(time.Since(start).Seconds())
	return nil
}

func eventIDs(batch []models.QueueItem) []string {
	seen := make(map[string]bool, len(batch))
	ids := make([]string, 0, len(batch))
	for _, item := range batch {
		if !seen[item.EventID] {
			seen[item.EventID] = true
			ids = append(ids, item.EventID)
		}
	}
	return ids
}

func errorSleep(pollInterval time.Duration) time.Duration {
	d := 5 * pollInterval
	if d > maxErrorSleep {
		return maxErrorSleep
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
