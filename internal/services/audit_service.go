package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soltixdb/airaudit/internal/analytics/grouping"
	"github.com/soltixdb/airaudit/internal/analytics/stats"
	"github.com/soltixdb/airaudit/internal/config"
	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/ingest"
	"github.com/soltixdb/airaudit/internal/logging"
	"github.com/soltixdb/airaudit/internal/metrics"
	"github.com/soltixdb/airaudit/internal/queue"
	"github.com/soltixdb/airaudit/internal/sessionstore"
	"github.com/soltixdb/airaudit/internal/utils"
)

// AuditService owns the session lifecycle and runs analyses against stored sessions
type AuditService struct {
	logger   *logging.Logger
	store    sessionstore.Store
	events   *queue.EventPublisher
	metrics  *metrics.Metrics
	engine   *grouping.Engine
	mdl      *stats.MDLEstimator
	location *time.Location
	compound string
	met      []MetVariable

	// one lock per session id serializes load-analyze-flag-save cycles
	locks sync.Map
}

// NewAuditService validates the audit configuration and builds the service.
// events and m may be nil.
func NewAuditService(
	logger *logging.Logger,
	cfg config.AuditConfig,
	store sessionstore.Store,
	events *queue.EventPublisher,
	m *metrics.Metrics,
) (*AuditService, error) {
	if logger == nil {
		logger = logging.Global()
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}

	engineCfg := grouping.Config{
		MinGroupSize:        cfg.MinGroupSize,
		IQRMultiplier:       cfg.IQRMultiplier,
		LowerTailPercentile: cfg.LowerTailPercentile,
		UpperTailPercentile: cfg.UpperTailPercentile,
	}
	if err := engineCfg.Validate(); err != nil {
		return nil, fmt.Errorf("audit config: %w", err)
	}
	loc, err := config.ParseTimezone(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("audit config: %w", err)
	}
	if events == nil {
		events = queue.NewEventPublisher(nil, "", logger)
	}

	compound := cfg.Compound
	if compound == "" {
		compound = ingest.DefaultCompound
	}

	return &AuditService{
		logger:   logger,
		store:    store,
		events:   events,
		metrics:  m,
		engine:   grouping.NewEngine(engineCfg, logger),
		mdl:      stats.NewMDLEstimator(cfg.MDLConfidence, cfg.RankThreshold),
		location: loc,
		compound: compound,
		met:      DefaultMetVariables(),
	}, nil
}

// Location returns the reference zone windows are localized in
func (s *AuditService) Location() *time.Location {
	return s.location
}

// UploadRequest carries one or more instrument logs sharing a header
type UploadRequest struct {
	FileName string
	Compound string
	Files    []ingest.File
}

// CreateSession parses the upload, stores it under a new id and returns its summary
func (s *AuditService) CreateSession(ctx context.Context, req UploadRequest) (*SessionInfo, error) {
	if len(req.Files) == 0 {
		s.metrics.Upload(metrics.OutcomeRejected, 0)
		return nil, NewServiceError(CodeInvalidFile, "no files uploaded")
	}

	compound := req.Compound
	if compound == "" {
		compound = s.compound
	}

	parser := ingest.NewParser(ingest.Options{Location: s.location, Compound: compound}, s.logger)
	parsed, err := parser.Parse(req.Files...)
	if err != nil {
		s.metrics.Upload(metrics.OutcomeRejected, 0)
		return nil, wrapError(err)
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = req.Files[0].Name
	}

	sess, err := dataset.NewSession(uuid.New().String(), fileName, parsed.AuditDate, compound, parsed.Frame, parsed.Raw)
	if err != nil {
		s.metrics.Upload(metrics.OutcomeRejected, 0)
		return nil, wrapError(err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, utils.SessionStoreTimeout)
	defer cancel()
	if err := s.store.Put(storeCtx, sess); err != nil {
		s.metrics.Upload(metrics.OutcomeFailed, 0)
		s.logger.Error("Failed to store session", "session_id", sess.ID, "error", err)
		return nil, &ServiceError{Code: CodeStoreFailed, Message: "failed to store session", cause: err}
	}

	s.metrics.Upload(metrics.OutcomeOK, parsed.Cleaned)
	s.log(ctx).Info("Session created",
		"session_id", sess.ID,
		"file_name", fileName,
		"audit_date", sess.AuditDate,
		"rows", sess.Frame.Len(),
		"cleaned", parsed.Cleaned)

	return newSessionInfo(sess, parsed.Cleaned), nil
}

// GetSession returns the summary of a stored session
func (s *AuditService) GetSession(ctx context.Context, id string) (*SessionInfo, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newSessionInfo(sess, 0), nil
}

// DeleteSession ends the analysis and drops the session
func (s *AuditService) DeleteSession(ctx context.Context, id string) error {
	storeCtx, cancel := context.WithTimeout(ctx, utils.SessionStoreTimeout)
	defer cancel()

	if err := s.store.Delete(storeCtx, id); err != nil {
		return wrapError(err)
	}
	s.locks.Delete(id)
	s.log(ctx).Info("Session deleted", "session_id", id)
	return nil
}

// ExportSession writes the flagged dataset as CSV and returns the download file name
func (s *AuditService) ExportSession(ctx context.Context, id string, w io.Writer) (string, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if err := sess.WriteCSV(w); err != nil {
		return "", &ServiceError{Code: CodeAnalysisFailed, Message: "failed to export session", cause: err}
	}
	return dataset.ExportFileName(time.Now().In(s.location)), nil
}

// Channels lists the channels of a session; used by request validation
func (s *AuditService) Channels(ctx context.Context, id string) ([]string, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Frame.Channels(), nil
}

func (s *AuditService) load(ctx context.Context, id string) (*dataset.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewServiceError(CodeInvalidRequest, "session id is required")
	}
	storeCtx, cancel := context.WithTimeout(ctx, utils.SessionStoreTimeout)
	defer cancel()

	sess, err := s.store.Get(storeCtx, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return sess, nil
}

func (s *AuditService) save(ctx context.Context, sess *dataset.Session) error {
	storeCtx, cancel := context.WithTimeout(ctx, utils.SessionStoreTimeout)
	defer cancel()

	if err := s.store.Put(storeCtx, sess); err != nil {
		return &ServiceError{Code: CodeStoreFailed, Message: "failed to save flags", cause: err}
	}
	return nil
}

func (s *AuditService) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *AuditService) log(ctx context.Context) *logging.Logger {
	return logging.FromContextOr(ctx, s.logger)
}
