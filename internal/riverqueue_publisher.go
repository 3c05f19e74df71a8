package internal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// riverQueuePublisher hands records to downstream workers as durable River
// jobs. The client is insert-only; consumers run their own worker processes.
type riverQueuePublisher struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	cfg    RiverQueueConfig
}

// webhookJobArgs is the job payload: the normalized record plus routing
// metadata. Kind is configured, not hardcoded, so consumers can register a
// matching worker.
type webhookJobArgs struct {
	Provider       string          `json:"provider"`
	Event          string          `json:"event"`
	Topic          string          `json:"topic"`
	WebhookEventID string          `json:"webhookEventId,omitempty"`
	Record         json.RawMessage `json:"record"`

	kind string `json:"-"`
}

func (a webhookJobArgs) Kind() string { return a.kind }

func newRiverQueuePublisher(cfg RiverQueueConfig) (*riverQueuePublisher, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("riverqueue dsn is required")
	}
	pool, err := pgxpool.New(context.Background(), cfg.DSN)
	if err != nil {
		return nil, err
	}
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &riverQueuePublisher{pool: pool, client: client, cfg: cfg}, nil
}

// Publish inserts one job per record.
func (p *riverQueuePublisher) Publish(ctx context.Context, topic string, event Event) error {
	record := event.RawPayload
	if len(record) == 0 {
		encoded, err := json.Marshal(event)
		if err != nil {
			return err
		}
		record = encoded
	}

	args := webhookJobArgs{
		Provider:       event.Provider,
		Event:          event.Name,
		Topic:          topic,
		WebhookEventID: event.WebhookEventID,
		Record:         record,
		kind:           p.cfg.Kind,
	}

	opts := &river.InsertOpts{
		Queue:       p.cfg.Queue,
		MaxAttempts: p.cfg.MaxAttempts,
		Priority:    p.cfg.Priority,
		Tags:        p.cfg.Tags,
	}
	_, err := p.client.Insert(ctx, args, opts)
	return err
}

// Close closes the underlying connection pool.
func (p *riverQueuePublisher) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// PublishForDrivers is a convenience method that calls Publish.
func (p *riverQueuePublisher) PublishForDrivers(ctx context.Context, topic string, event Event, drivers []string) error {
	return p.Publish(ctx, topic, event)
}
