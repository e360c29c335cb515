package queue

import (
	"context"
	"fmt"
)

// NoopQueue drops every message. Used when result events are disabled.
type NoopQueue struct{}

func (NoopQueue) Publish(context.Context, string, []byte) error { return nil }

func (NoopQueue) Subscribe(subject string, _ MessageHandler) error {
	return fmt.Errorf("result events are disabled, cannot subscribe to %s", subject)
}

func (NoopQueue) Unsubscribe(subject string) error {
	return fmt.Errorf("not subscribed to subject: %s", subject)
}

func (NoopQueue) Close() error { return nil }
