package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/soltixdb/airaudit/internal/config"
	"github.com/soltixdb/airaudit/internal/ingest"
	"github.com/soltixdb/airaudit/internal/logging"
	"github.com/soltixdb/airaudit/internal/queue"
	"github.com/soltixdb/airaudit/internal/services"
	"github.com/soltixdb/airaudit/internal/sessionstore"
)

// options are the persistent flags shared by every command
type options struct {
	configPath string
	jsonOut    bool
	verbose    bool
}

// inputFlags select the instrument logs an analysis runs on
type inputFlags struct {
	files    []string
	compound string
	channel  string
	export   string
}

func (in *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&in.files, "file", "f", nil, "instrument log CSV (repeatable, same header)")
	cmd.Flags().StringVar(&in.compound, "compound", "", "channel cleaned with the GSU state (default from config)")
	cmd.Flags().StringVar(&in.channel, "channel", "", "channel to analyze (default: the compound)")
	cmd.Flags().StringVarP(&in.export, "export", "o", "", "write the flagged dataset to this CSV path")
	_ = cmd.MarkFlagRequired("file")
}

// localSession is a single uploaded dataset held in an in-process store
type localSession struct {
	cfg    *config.Config
	svc    *services.AuditService
	events *queue.EventPublisher
	info   *services.SessionInfo
	logger *logging.Logger
}

func loadConfig(opts *options) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.Logging.OutputPath = "stderr"
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "warn"
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func openSession(ctx context.Context, opts *options, in *inputFlags) (*localSession, error) {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	q, err := queue.NewQueue(cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("connect to queue: %w", err)
	}
	events := queue.NewEventPublisher(q, cfg.Queue.Subject, logger)

	svc, err := services.NewAuditService(logger, cfg.Audit, sessionstore.NewMemoryStore(0, 0, logger), events, nil)
	if err != nil {
		_ = events.Close()
		return nil, err
	}

	files := make([]ingest.File, 0, len(in.files))
	for _, path := range in.files {
		f, err := os.Open(path)
		if err != nil {
			_ = events.Close()
			return nil, err
		}
		defer func() { _ = f.Close() }()
		files = append(files, ingest.File{Name: filepath.Base(path), Reader: f})
	}

	info, err := svc.CreateSession(ctx, services.UploadRequest{Compound: in.compound, Files: files})
	if err != nil {
		_ = events.Close()
		return nil, err
	}

	return &localSession{cfg: cfg, svc: svc, events: events, info: info, logger: logger}, nil
}

// channel returns the requested channel or the session's compound
func (s *localSession) channel(in *inputFlags) string {
	if in.channel != "" {
		return in.channel
	}
	return s.info.Compound
}

// finish writes the export and prints the report
func (s *localSession) finish(ctx context.Context, cmd *cobra.Command, opts *options, in *inputFlags, report interface{}, render func(*cobra.Command)) error {
	defer func() { _ = s.events.Close() }()

	if in.export != "" {
		f, err := os.Create(in.export)
		if err != nil {
			return err
		}
		if _, err := s.svc.ExportSession(ctx, s.info.ID, f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		s.logger.Info("Flagged dataset exported", "path", in.export)
	}

	if opts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	render(cmd)
	return nil
}
