package main

import (
	"fmt"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soltixdb/airaudit/internal/queue"
)

func newWatchCommand(opts *options) *cobra.Command {
	var types []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print result events as analyses finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}

			selected, err := parseEventTypes(types)
			if err != nil {
				return err
			}

			sub, err := queue.NewSubscriber(cfg.Queue)
			if err != nil {
				return fmt.Errorf("connect to queue: %w", err)
			}
			defer func() { _ = sub.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			handler := func(data []byte) error {
				evt, err := queue.DecodeAuditEvent(data)
				if err != nil {
					logger.Warn("Skipping malformed event", "error", err)
					return nil
				}
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintln(out, formatEvent(evt))
				return nil
			}

			for _, typ := range selected {
				subject := queue.Subject(cfg.Queue.Subject, typ)
				if err := sub.Subscribe(subject, handler); err != nil {
					return fmt.Errorf("subscribe %s: %w", subject, err)
				}
				logger.Info("Watching", "subject", subject)
			}

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "event types to follow: zero, cal, mdl, imet (default all)")
	return cmd
}

func parseEventTypes(names []string) ([]queue.EventType, error) {
	if len(names) == 0 {
		return queue.EventTypes, nil
	}
	out := make([]queue.EventType, 0, len(names))
	for _, name := range names {
		typ := queue.EventType(strings.ToLower(strings.TrimSpace(name)))
		known := false
		for _, t := range queue.EventTypes {
			known = known || t == typ
		}
		if !known {
			return nil, fmt.Errorf("unknown event type %q", name)
		}
		out = append(out, typ)
	}
	return out, nil
}

func formatEvent(evt *queue.AuditEvent) string {
	channel := evt.Channel
	if channel == "" {
		channel = "-"
	}
	return fmt.Sprintf("%s %-4s session=%s date=%s channel=%q window=%s flagged=%d",
		evt.Timestamp.Format("2006-01-02T15:04:05Z07:00"), evt.Type, evt.SessionID,
		evt.AuditDate, channel, window(evt.Window), evt.Flagged)
}
