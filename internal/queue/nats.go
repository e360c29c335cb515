package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/soltixdb/airaudit/internal/utils"
)

// NATSConfig represents NATS JetStream configuration
type NATSConfig struct {
	URL      string // e.g. nats://localhost:4222
	Username string
	Password string
	Subject  string // subject prefix; the stream captures "<Subject>.>"
	Durable  string // durable consumer prefix (default: "airaudit-watch")
}

// NATSQueue implements Queue using one JetStream stream per subject prefix
type NATSQueue struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	config        NATSConfig
	streamReady   bool
	ownsConn      bool
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

func newNATSQueue(cfg NATSConfig) (*NATSQueue, error) {
	opts := []nats.Option{
		nats.Name("airaudit"),
		nats.Timeout(utils.ConnectTimeout),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	q.ownsConn = true
	return q, nil
}

// newNATSQueueWithConn wraps an existing connection; Close leaves it open
func newNATSQueueWithConn(conn *nats.Conn, cfg NATSConfig) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if cfg.Subject == "" {
		cfg.Subject = utils.DefaultResultSubject
	}
	cfg.Subject = strings.TrimSuffix(cfg.Subject, ".")
	if cfg.Durable == "" {
		cfg.Durable = "airaudit-watch"
	}

	return &NATSQueue{
		conn:          conn,
		js:            js,
		config:        cfg,
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// StreamName returns the JetStream stream backing the subject prefix
func (q *NATSQueue) StreamName() string {
	return "airaudit-" + sanitizeName(q.config.Subject)
}

func (q *NATSQueue) checkSubject(subject string) error {
	if !strings.HasPrefix(subject, q.config.Subject+".") {
		return fmt.Errorf("subject %s is outside stream prefix %s", subject, q.config.Subject)
	}
	return nil
}

// ensureStream creates the stream on first use
func (q *NATSQueue) ensureStream() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.streamReady {
		return nil
	}

	name := q.StreamName()
	if _, err := q.js.StreamInfo(name); err != nil {
		_, err = q.js.AddStream(&nats.StreamConfig{
			Name:     name,
			Subjects: []string{q.config.Subject + ".>"},
			Storage:  nats.FileStorage,
			MaxAge:   7 * 24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}
	}
	q.streamReady = true
	return nil
}

// Publish publishes a message and waits for the JetStream ack
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.checkSubject(subject); err != nil {
		return err
	}
	if err := q.ensureStream(); err != nil {
		return err
	}
	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches a durable, manually acked consumer to subject.
// A handler error NAKs the message for redelivery, up to three attempts.
func (q *NATSQueue) Subscribe(subject string, handler MessageHandler) error {
	if err := q.checkSubject(subject); err != nil {
		return err
	}
	if err := q.ensureStream(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	durable := q.config.Durable + "-" + sanitizeName(subject)
	sub, err := q.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.BindStream(q.StreamName()),
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxAckPending(100),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	q.subscriptions[subject] = sub
	return nil
}

// Unsubscribe removes the subscription; the durable consumer keeps its position
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	delete(q.subscriptions, subject)

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}
	return nil
}

// Close drains subscriptions and closes the connection if the queue opened it
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subscriptions {
		_ = sub.Drain()
		delete(q.subscriptions, subject)
	}

	if q.ownsConn {
		q.conn.Close()
	}
	return nil
}

// sanitizeName maps a subject onto the characters JetStream allows in stream
// and consumer names: A-Z, a-z, 0-9, dash and underscore.
func sanitizeName(subject string) string {
	result := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
