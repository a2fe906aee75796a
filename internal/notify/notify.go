// Package notify announces finished warehouse runs on a durable RabbitMQ
// queue so downstream jobs can refresh their views.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"songwarehouse/internal/warehouse"
)

// DefaultQueue is used when no queue name is configured.
const DefaultQueue = "warehouse.refreshed"

// WarehouseRefreshed is the message body published after a successful run.
type WarehouseRefreshed struct {
	RunID      string      `json:"run_id"`
	Job        string      `json:"job"`
	Output     string      `json:"output"`
	Tables     []TableInfo `json:"tables"`
	FinishedAt time.Time   `json:"finished_at"`
}

// TableInfo summarises one published table.
type TableInfo struct {
	Name  string `json:"name"`
	Dir   string `json:"dir"`
	Rows  int64  `json:"rows"`
	Bytes int64  `json:"bytes"`
	Files int    `json:"files"`
}

// NewEvent builds the event of a run from its manifests.
func NewEvent(runID, job, output string, tables []warehouse.Manifest, finished time.Time) WarehouseRefreshed {
	ev := WarehouseRefreshed{RunID: runID, Job: job, Output: output, FinishedAt: finished.UTC()}
	for _, m := range tables {
		ev.Tables = append(ev.Tables, TableInfo{
			Name:  m.Table,
			Dir:   m.Dir,
			Rows:  m.Rows,
			Bytes: m.Bytes,
			Files: len(m.Files),
		})
	}
	return ev
}

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends WarehouseRefreshed events to one queue.
type Publisher struct {
	ch    Channel
	conn  *amqp.Connection
	queue string
	log   *zap.Logger
}

// NewPublisher declares queue (durable) on ch and returns a Publisher.
func NewPublisher(ch Channel, queue string, log *zap.Logger) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("notify: declare queue %s: %w", queue, err)
	}
	return &Publisher{ch: ch, queue: queue, log: log}, nil
}

// Dial connects to the broker at url and declares queue.
func Dial(url, queue string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("notify: open channel: %w", err)
	}
	p, err := NewPublisher(ch, queue, log)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// Publish sends ev as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev WarehouseRefreshed) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.RunID,
		Timestamp:    ev.FinishedAt,
		Type:         "warehouse.refreshed",
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", p.queue, err)
	}
	p.log.Info("notify: warehouse refreshed published", zap.String("queue", p.queue), zap.String("run_id", ev.RunID), zap.Int("tables", len(ev.Tables)))
	return nil
}

// Close closes the channel and, for dialed publishers, the connection.
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
