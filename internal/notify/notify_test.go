package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"songwarehouse/internal/warehouse"
)

type declared struct {
	name                                   string
	durable, autoDelete, exclusive, noWait bool
}

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	declared   []declared
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, _ amqp.Table) (amqp.Queue, error) {
	f.declared = append(f.declared, declared{name, durable, autoDelete, exclusive, noWait})
	return amqp.Queue{Name: name}, f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error { f.closed = true; return nil }

func TestNewEvent(t *testing.T) {
	t.Parallel()

	finished := time.Date(2018, 11, 30, 12, 0, 0, 0, time.FixedZone("X", 3600))
	ev := NewEvent("run-1", "songplays", "s3://b/dw", []warehouse.Manifest{
		{Table: "songs", Dir: "songs", Rows: 3, Bytes: 900, Files: []warehouse.FileEntry{{Path: "part-00000.parquet"}}},
		{Table: "time", Dir: "time", Rows: 0},
	}, finished)

	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, time.UTC, ev.FinishedAt.Location())
	assert.Equal(t, []TableInfo{
		{Name: "songs", Dir: "songs", Rows: 3, Bytes: 900, Files: 1},
		{Name: "time", Dir: "time"},
	}, ev.Tables)
}

func TestPublish(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []declared{{name: DefaultQueue, durable: true}}, ch.declared)

	ev := NewEvent("run-2", "songplays", "/data/dw", []warehouse.Manifest{{Table: "users", Dir: "users", Rows: 2}}, time.Unix(1543622400, 0))
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "", got.exchange)
	assert.Equal(t, DefaultQueue, got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, "run-2", got.msg.MessageId)

	var back WarehouseRefreshed
	require.NoError(t, json.Unmarshal(got.msg.Body, &back))
	assert.Equal(t, ev.RunID, back.RunID)
	assert.Equal(t, ev.Tables, back.Tables)
	assert.True(t, ev.FinishedAt.Equal(back.FinishedAt))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewPublisher(&fakeChannel{declareErr: errors.New("access refused")}, "q", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declare queue q")

	boom := errors.New("channel closed")
	p, err := NewPublisher(&fakeChannel{publishErr: boom}, "q", nil)
	require.NoError(t, err)
	err = p.Publish(context.Background(), WarehouseRefreshed{RunID: "r"})
	assert.True(t, errors.Is(err, boom))
}
