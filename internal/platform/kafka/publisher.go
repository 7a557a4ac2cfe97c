// Package kafka publishes transactional-outbox rows to the audit topic.
//
// Audit writes land in the outbox table inside the same transaction as the
// state change they describe. This publisher drains the table in batches and
// hands the payloads to Kafka, so downstream consumers see every event at
// least once without the ledger ever blocking on the broker.
package kafka

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"sigillum/internal/platform/config"
	"sigillum/internal/platform/metrics"
)

const publishBatchSize = 100

// Publisher drains the outbox table and produces entries to the audit topic.
type Publisher struct {
	db       *sql.DB
	client   *kgo.Client
	topic    string
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewPublisher connects to the configured brokers. Callers should skip
// construction entirely when no brokers are configured.
func NewPublisher(cfg config.KafkaConfig, db *sql.DB, m *metrics.Metrics, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		db:       db,
		client:   client,
		topic:    cfg.AuditTopic,
		interval: interval,
		metrics:  m,
		logger:   logger.With("component", "outbox_publisher"),
	}, nil
}

// EnsureTopic creates the audit topic if the broker does not know it yet.
func (p *Publisher) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)
	resps, err := adm.CreateTopics(ctx, -1, -1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("kafka: create topic %q: %w", p.topic, err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka: create topic %q: %w", p.topic, resp.Err)
		}
	}
	return nil
}

// Run polls the outbox until the context is cancelled. Publish failures are
// logged and retried on the next tick; rows are only deleted after the broker
// acknowledged the batch.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}

func (p *Publisher) drain(ctx context.Context) {
	for {
		n, err := p.publishBatch(ctx)
		if err != nil {
			p.logger.Error("outbox publish failed", "error", err)
			return
		}
		p.metrics.AddOutboxPublished(n)
		if n < publishBatchSize {
			return
		}
	}
}

type outboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
}

// publishBatch claims a batch of rows with SKIP LOCKED so multiple replicas
// can drain concurrently, produces them, and deletes the rows in the same
// transaction. A produce failure rolls back the claim and the rows are
// retried later.
func (p *Publisher) publishBatch(ctx context.Context) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.QueryContext(ctx, query, publishBatchSize)
	if err != nil {
		return 0, fmt.Errorf("select outbox batch: %w", err)
	}

	var entries []outboxEntry
	for rows.Next() {
		var e outboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate outbox batch: %w", err)
	}
	// The tx cannot run the delete below while the cursor is open.
	rows.Close()
	if len(entries) == 0 {
		return 0, nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.EventType)},
			},
		})
		ids = append(ids, e.ID)
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("produce outbox batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM outbox WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("delete published outbox entries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}
	p.logger.Debug("published outbox batch", "count", len(entries))
	return len(entries), nil
}
