package worker

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// PageUpdatedEvent is the payload published on reading.progress.page_updated.
type PageUpdatedEvent struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	UserID     string         `json:"user_id"`
	BookID     string         `json:"book_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties"`
}

// StartHistoryConsumer subscribes to page-update events and maintains the
// per-user daily reading history used for activity summaries. Inserts are
// idempotent via the processed_events table.
func StartHistoryConsumer(ctx context.Context, nc *nats.Conn, pool *pgxpool.Pool, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	js, err := nc.JetStream()
	if err != nil {
		log.Error("history consumer: jetstream", zap.Error(err))
		return
	}

	sub, err := js.PullSubscribe("reading.progress.page_updated", "reading_history")
	if err != nil {
		log.Error("history consumer: subscribe", zap.Error(err))
		return
	}

	go func() {
		batchSize := envInt("WORKER_BATCH_SIZE", 100)
		batchInterval := envInt("WORKER_BATCH_INTERVAL_MS", 2000)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msgs, err := sub.Fetch(batchSize, nats.MaxWait(time.Duration(batchInterval)*time.Millisecond))
			if err != nil {
				if err == nats.ErrTimeout {
					continue
				}
				log.Warn("history consumer: fetch", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if len(msgs) == 0 {
				continue
			}

			if err := applyBatch(ctx, pool, msgs); err != nil {
				log.Warn("history consumer: batch failed", zap.Error(err))
				nakAll(msgs, log)
				continue
			}
			for _, m := range msgs {
				if err := m.Ack(); err != nil {
					log.Warn("history consumer: ack", zap.Error(err))
				}
			}
		}
	}()
}

// applyBatch processes one fetched batch inside a single transaction.
func applyBatch(ctx context.Context, pool *pgxpool.Pool, msgs []*nats.Msg) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, m := range msgs {
		var ev PageUpdatedEvent
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			// A malformed message would poison the batch forever; drop it.
			continue
		}
		if ev.EventID == "" || ev.UserID == "" || ev.BookID == "" {
			continue
		}

		ct, err := tx.Exec(ctx,
			`INSERT INTO processed_events (event_id, subject, occurred_at, payload)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (event_id) DO NOTHING`,
			ev.EventID, "reading.progress.page_updated", ev.OccurredAt, m.Data)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			// already processed
			continue
		}

		if err := applyHistoryUpsert(ctx, tx, &ev); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// applyHistoryUpsert bumps the daily page counter for the (user, book, day)
// the event falls on.
func applyHistoryUpsert(ctx context.Context, tx pgx.Tx, ev *PageUpdatedEvent) error {
	day := ev.OccurredAt.UTC().Truncate(24 * time.Hour)
	const q = `
INSERT INTO learning_activity (user_id, book_id, activity_date, pages_turned, last_seen_at)
VALUES ($1, $2, $3, 1, $4)
ON CONFLICT (user_id, book_id, activity_date)
DO UPDATE SET
	pages_turned = learning_activity.pages_turned + 1,
	last_seen_at = GREATEST(learning_activity.last_seen_at, EXCLUDED.last_seen_at)`
	_, err := tx.Exec(ctx, q, ev.UserID, ev.BookID, day, ev.OccurredAt.UTC())
	return err
}

func nakAll(msgs []*nats.Msg, log *zap.Logger) {
	for _, m := range msgs {
		if err := m.Nak(); err != nil {
			log.Warn("history consumer: nak", zap.Error(err))
		}
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
