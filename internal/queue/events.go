package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/logging"
	"github.com/soltixdb/airaudit/internal/utils"
)

// EventType names the analysis that produced an event
type EventType string

const (
	EventZeroAir     EventType = "zero"
	EventCalibration EventType = "cal"
	EventMDL         EventType = "mdl"
	EventMet         EventType = "imet"
)

// EventTypes lists every event type in publishing order
var EventTypes = []EventType{EventZeroAir, EventCalibration, EventMDL, EventMet}

// AuditEvent is published after a successful analysis
type AuditEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	FileName  string          `json:"file_name,omitempty"`
	AuditDate string          `json:"audit_date"`
	Channel   string          `json:"channel,omitempty"`
	Window    dataset.Window  `json:"window"`
	Flagged   int             `json:"flagged_rows"`
	Result    json.RawMessage `json:"result"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewAuditEvent builds an event with a fresh id. result is encoded as JSON.
func NewAuditEvent(typ EventType, s *dataset.Session, channel string, w dataset.Window, flagged int, result interface{}) (*AuditEvent, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", typ, err)
	}
	return &AuditEvent{
		ID:        uuid.New().String(),
		Type:      typ,
		SessionID: s.ID,
		FileName:  s.FileName,
		AuditDate: s.AuditDate,
		Channel:   channel,
		Window:    w,
		Flagged:   flagged,
		Result:    raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// DecodeAuditEvent parses a message produced by EventPublisher
func DecodeAuditEvent(data []byte) (*AuditEvent, error) {
	var evt AuditEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("decode audit event: %w", err)
	}
	if evt.Type == "" || evt.SessionID == "" {
		return nil, fmt.Errorf("decode audit event: missing type or session id")
	}
	return &evt, nil
}

// Subject returns "<prefix>.<type>"
func Subject(prefix string, typ EventType) string {
	if prefix == "" {
		prefix = utils.DefaultResultSubject
	}
	return strings.TrimSuffix(prefix, ".") + "." + string(typ)
}

// EventPublisher serializes audit events onto a Publisher
type EventPublisher struct {
	pub    Publisher
	prefix string
	logger *logging.Logger
}

// NewEventPublisher wraps pub. A nil pub discards every event.
func NewEventPublisher(pub Publisher, prefix string, logger *logging.Logger) *EventPublisher {
	if pub == nil {
		pub = NoopQueue{}
	}
	if logger == nil {
		logger = logging.Global()
	}
	if prefix == "" {
		prefix = utils.DefaultResultSubject
	}
	return &EventPublisher{pub: pub, prefix: prefix, logger: logger}
}

// Prefix returns the subject prefix events are published under
func (p *EventPublisher) Prefix() string {
	return p.prefix
}

// Publish sends the event under a bounded timeout
func (p *EventPublisher) Publish(ctx context.Context, evt *AuditEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()

	subject := Subject(p.prefix, evt.Type)
	if err := p.pub.Publish(ctx, subject, data); err != nil {
		p.logger.Warn("Failed to publish audit event",
			"subject", subject,
			"event_id", evt.ID,
			"session_id", evt.SessionID,
			"error", err)
		return err
	}

	p.logger.Debug("Audit event published", "subject", subject, "event_id", evt.ID, "bytes", len(data))
	return nil
}

// Close closes the underlying publisher
func (p *EventPublisher) Close() error {
	return p.pub.Close()
}
