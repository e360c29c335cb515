package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestNATS starts an embedded JetStream-enabled server
func setupTestNATS(t *testing.T) string {
	t.Helper()
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

func TestNATSQueue_PublishAndSubscribe(t *testing.T) {
	url := setupTestNATS(t)

	q, err := newNATSQueue(NATSConfig{URL: url})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()
	assert.Equal(t, "airaudit-airaudit_results", q.StreamName())

	ctx := context.Background()
	subject := Subject("", EventZeroAir)

	// published before anyone listens; the durable consumer replays it
	require.NoError(t, q.Publish(ctx, subject, []byte("first")))

	c := &collector{}
	require.NoError(t, q.Subscribe(subject, c.handle))
	assert.Error(t, q.Subscribe(subject, c.handle))

	require.NoError(t, q.Publish(ctx, subject, []byte("second")))

	assert.Eventually(t, func() bool { return c.count() == 2 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []byte("first"), c.first())

	require.NoError(t, q.Unsubscribe(subject))
	assert.Error(t, q.Unsubscribe(subject))
}

func TestNATSQueue_RejectsForeignSubject(t *testing.T) {
	url := setupTestNATS(t)

	q, err := newNATSQueue(NATSConfig{URL: url, Subject: "site7"})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.Error(t, q.Publish(context.Background(), "airaudit.results.zero", []byte("x")))
	assert.NoError(t, q.Publish(context.Background(), "site7.zero", []byte("x")))
}

func TestNATSQueue_PublishStoresInStream(t *testing.T) {
	url := setupTestNATS(t)

	q, err := newNATSQueue(NATSConfig{URL: url})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, q.Publish(ctx, Subject("", EventCalibration), []byte("a")))
	require.NoError(t, q.Publish(ctx, Subject("", EventMDL), []byte("b")))
	assert.Error(t, q.Publish(ctx, "elsewhere", []byte("c")))

	info, err := q.js.StreamInfo(q.StreamName())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.State.Msgs)
}

func TestNATSQueue_NakRedelivers(t *testing.T) {
	url := setupTestNATS(t)

	conn, err := nats.Connect(url)
	require.NoError(t, err)
	defer conn.Close()

	q, err := newNATSQueueWithConn(conn, NATSConfig{})
	require.NoError(t, err)

	var attempts int32
	subject := Subject("", EventMet)
	require.NoError(t, q.Subscribe(subject, func([]byte) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("not yet")
		}
		return nil
	}))
	require.NoError(t, q.Publish(context.Background(), subject, []byte("x")))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) >= 2 }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, q.Close())
	assert.True(t, conn.IsConnected(), "borrowed connection stays open")
}

func TestNATSQueue_InvalidURL(t *testing.T) {
	_, err := newNATSQueue(NATSConfig{URL: "nats://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "airaudit_results_zero", sanitizeName("airaudit.results.zero"))
	assert.Equal(t, "a_b-c_", sanitizeName("a*b-c>"))
}
