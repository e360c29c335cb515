package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/airaudit/internal/config"
	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/logging"
)

func newEventSession(t *testing.T) *dataset.Session {
	t.Helper()
	base := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	f, err := dataset.NewFrame([]time.Time{base, base.Add(time.Minute)}, []string{"Benzene C6H6+"}, map[string][]float64{
		"Benzene C6H6+": {0.1, 0.2},
	})
	require.NoError(t, err)
	s, err := dataset.NewSession("sess-1", "20240315_log.csv", "20240315", "Benzene C6H6+", f, nil)
	require.NoError(t, err)
	return s
}

// collector records every message delivered to it
type collector struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *collector) handle(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *collector) first() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msgs[0]
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "airaudit.results.zero", Subject("", EventZeroAir))
	assert.Equal(t, "site7.mdl", Subject("site7.", EventMDL))
}

func TestAuditEvent_RoundTrip(t *testing.T) {
	s := newEventSession(t)
	w := dataset.Window{Start: s.Frame.Times()[0], End: s.Frame.Times()[1]}

	evt, err := NewAuditEvent(EventCalibration, s, "Benzene C6H6+", w, 2, map[string]float64{"mean": 0.15})
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	got, err := DecodeAuditEvent(data)
	require.NoError(t, err)
	assert.Equal(t, EventCalibration, got.Type)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, 2, got.Flagged)
	assert.True(t, got.Window.Start.Equal(w.Start))
	assert.JSONEq(t, `{"mean":0.15}`, string(got.Result))

	_, err = DecodeAuditEvent([]byte(`{"id":"x"}`))
	assert.Error(t, err)
	_, err = DecodeAuditEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestNewQueue_Types(t *testing.T) {
	q, err := NewQueue(config.QueueConfig{})
	require.NoError(t, err)
	assert.IsType(t, NoopQueue{}, q)

	q, err = NewQueue(config.QueueConfig{Type: "MEMORY"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryQueue{}, q)
	require.NoError(t, q.Close())

	_, err = NewQueue(config.QueueConfig{Type: "kafka"})
	assert.Error(t, err, "kafka requires brokers")

	_, err = NewQueue(config.QueueConfig{Type: "rabbitmq"})
	assert.Error(t, err)
}

func TestNoopQueue(t *testing.T) {
	q := NoopQueue{}
	assert.NoError(t, q.Publish(context.Background(), "a.b", []byte("x")))
	assert.Error(t, q.Subscribe("a.b", func([]byte) error { return nil }))
}

func TestMemoryQueue_BuffersUntilSubscribed(t *testing.T) {
	q := NewMemoryQueue()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "airaudit.results.zero", []byte("one")))
	require.NoError(t, q.Publish(ctx, "airaudit.results.zero", []byte("two")))
	require.NoError(t, q.Publish(ctx, "airaudit.results.cal", []byte("three")))
	assert.Equal(t, 2, q.Pending("airaudit.results.zero"))

	c := &collector{}
	require.NoError(t, q.Subscribe("airaudit.results.zero", c.handle))
	assert.Error(t, q.Subscribe("airaudit.results.zero", c.handle))

	assert.Eventually(t, func() bool { return c.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []byte("one"), c.first())
	assert.Equal(t, 1, q.Pending("airaudit.results.cal"))

	require.NoError(t, q.Unsubscribe("airaudit.results.zero"))
	assert.Error(t, q.Unsubscribe("airaudit.results.zero"))
}

func TestMemoryQueue_CopiesPayload(t *testing.T) {
	q := NewMemoryQueue()
	defer func() { _ = q.Close() }()

	payload := []byte("abc")
	require.NoError(t, q.Publish(context.Background(), "s", payload))
	payload[0] = 'z'

	c := &collector{}
	require.NoError(t, q.Subscribe("s", c.handle))
	assert.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []byte("abc"), c.first())
}

func TestMemoryQueue_Full(t *testing.T) {
	q := NewMemoryQueue()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	for i := 0; i < memoryBuffer; i++ {
		require.NoError(t, q.Publish(ctx, "s", []byte{1}))
	}
	assert.Error(t, q.Publish(ctx, "s", []byte{1}))
}

func TestMemoryQueue_Closed(t *testing.T) {
	q := NewMemoryQueue()
	require.NoError(t, q.Close())
	assert.Error(t, q.Publish(context.Background(), "s", []byte{1}))
	assert.Error(t, q.Subscribe("s", func([]byte) error { return nil }))
}

type failingPublisher struct{ NoopQueue }

func (failingPublisher) Publish(context.Context, string, []byte) error {
	return errors.New("broker down")
}

func TestEventPublisher(t *testing.T) {
	q := NewMemoryQueue()
	defer func() { _ = q.Close() }()

	pub := NewEventPublisher(q, "", logging.NewNop())
	assert.Equal(t, "airaudit.results", pub.Prefix())

	s := newEventSession(t)
	evt, err := NewAuditEvent(EventMDL, s, "Benzene C6H6+", dataset.Window{}, 0, map[string]int{"rank": 3})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), evt))
	assert.Equal(t, 1, q.Pending("airaudit.results.mdl"))

	failing := NewEventPublisher(failingPublisher{}, "x", logging.NewNop())
	assert.Error(t, failing.Publish(context.Background(), evt))

	discard := NewEventPublisher(nil, "", nil)
	assert.NoError(t, discard.Publish(context.Background(), evt))
}

func TestKafkaQueue_Config(t *testing.T) {
	_, err := newKafkaQueue(KafkaConfig{})
	assert.Error(t, err)

	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	assert.Equal(t, "airaudit-watch", q.config.GroupID)
	assert.Equal(t, 3, q.config.MaxAttempts)
	assert.Same(t, q.writer("t"), q.writer("t"))
	assert.Error(t, q.Unsubscribe("t"))
	assert.NoError(t, q.Close())
}

func kafkaBrokers() []string {
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		return strings.Split(v, ",")
	}
	return nil
}

func TestKafkaQueue_PublishSubscribe(t *testing.T) {
	brokers := kafkaBrokers()
	if len(brokers) == 0 {
		t.Skip("KAFKA_BROKERS not set, skipping test")
	}

	q, err := newKafkaQueue(KafkaConfig{Brokers: brokers, GroupID: "airaudit-test-" + time.Now().Format("150405")})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	topic := "airaudit.test." + time.Now().Format("150405")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, q.Publish(ctx, topic, []byte("hello")))

	c := &collector{}
	require.NoError(t, q.Subscribe(topic, c.handle))
	assert.Eventually(t, func() bool { return c.count() >= 1 }, 20*time.Second, 100*time.Millisecond)
}
