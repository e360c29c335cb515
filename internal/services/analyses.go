package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/soltixdb/airaudit/internal/analytics"
	"github.com/soltixdb/airaudit/internal/analytics/grouping"
	"github.com/soltixdb/airaudit/internal/analytics/stats"
	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/downsampling"
	"github.com/soltixdb/airaudit/internal/ingest"
	"github.com/soltixdb/airaudit/internal/metrics"
	"github.com/soltixdb/airaudit/internal/queue"
)

// WindowRequest selects one channel between two "hh:mm" times of the audit date
type WindowRequest struct {
	Start   string
	End     string
	Channel string
}

// CalibrationRequest adds the certified concentration of the calibration gas
type CalibrationRequest struct {
	WindowRequest
	Concentration float64
}

// MDLRequest selects a spike and a blank window of one channel
type MDLRequest struct {
	SpikeStart    string
	SpikeEnd      string
	BlankStart    string
	BlankEnd      string
	Channel       string
	TimeAveraging string
}

// MetRequest compares the session's iMet channels to a reference station export
type MetRequest struct {
	Start     string
	End       string
	Reference io.Reader
}

// ZeroAir groups the zero-air window and reports its basic statistics
func (s *AuditService) ZeroAir(ctx context.Context, id string, req WindowRequest) (*ZeroAirReport, error) {
	started := time.Now()
	defer s.lock(id)()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, queue.EventZeroAir, id, started, err)
	}
	w, group, err := s.groupWindow(sess, req.Channel, req.Start, req.End, downsampling.ModeNone)
	if err != nil {
		return nil, s.fail(ctx, queue.EventZeroAir, id, started, err)
	}
	basic, err := stats.ComputeBasic(group.Series.Values())
	if err != nil {
		return nil, s.fail(ctx, queue.EventZeroAir, id, started, err)
	}

	report := &ZeroAirReport{
		SessionID: id,
		Channel:   req.Channel,
		Window:    w,
		Grouping:  newGroupingReport(group),
		Stats:     basic,
	}
	if report.Flagged, err = s.flag(ctx, sess, dataset.FlagZero, w); err != nil {
		return nil, s.fail(ctx, queue.EventZeroAir, id, started, err)
	}
	s.succeed(ctx, queue.EventZeroAir, sess, req.Channel, w, report.Flagged, report, started)
	return report, nil
}

// Calibration groups the calibration window and compares it with the certified concentration
func (s *AuditService) Calibration(ctx context.Context, id string, req CalibrationRequest) (*CalibrationReport, error) {
	started := time.Now()
	defer s.lock(id)()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, queue.EventCalibration, id, started, err)
	}
	w, group, err := s.groupWindow(sess, req.Channel, req.Start, req.End, downsampling.ModeNone)
	if err != nil {
		return nil, s.fail(ctx, queue.EventCalibration, id, started, err)
	}
	basic, err := stats.ComputeBasic(group.Series.Values())
	if err != nil {
		return nil, s.fail(ctx, queue.EventCalibration, id, started, err)
	}
	audit, err := stats.ComputeAudit(basic, req.Concentration)
	if err != nil {
		return nil, s.fail(ctx, queue.EventCalibration, id, started, err)
	}
	if _, err := audit.RangeDifference(); err != nil {
		s.log(ctx).Warn("Range percent difference is undefined", "session_id", id, "min", basic.Min, "max", basic.Max)
	}

	report := &CalibrationReport{
		SessionID:     id,
		Channel:       req.Channel,
		Window:        w,
		Concentration: req.Concentration,
		Grouping:      newGroupingReport(group),
		Stats:         basic,
		Audit:         audit,
	}
	if report.Flagged, err = s.flag(ctx, sess, dataset.FlagCal, w); err != nil {
		return nil, s.fail(ctx, queue.EventCalibration, id, started, err)
	}
	s.succeed(ctx, queue.EventCalibration, sess, req.Channel, w, report.Flagged, report, started)
	return report, nil
}

// MDLCheck groups the spike and blank windows independently, optionally after time
// averaging, and estimates the method detection limit. Only rows inside the two
// windows are flagged; the result event reports their hull.
func (s *AuditService) MDLCheck(ctx context.Context, id string, req MDLRequest) (*MDLReport, error) {
	started := time.Now()
	defer s.lock(id)()

	mode, err := downsampling.ParseMode(req.TimeAveraging)
	if err != nil {
		return nil, s.fail(ctx, queue.EventMDL, id, started, err)
	}
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, queue.EventMDL, id, started, err)
	}

	spikeWindow, spike, err := s.groupWindow(sess, req.Channel, req.SpikeStart, req.SpikeEnd, mode)
	if err != nil {
		return nil, s.fail(ctx, queue.EventMDL, id, started, fmt.Errorf("spike: %w", err))
	}
	blankWindow, blank, err := s.groupWindow(sess, req.Channel, req.BlankStart, req.BlankEnd, mode)
	if err != nil {
		return nil, s.fail(ctx, queue.EventMDL, id, started, fmt.Errorf("blank: %w", err))
	}

	spikeStats, err := stats.ComputeBasic(spike.Series.Values())
	if err != nil {
		return nil, s.fail(ctx, queue.EventMDL, id, started, fmt.Errorf("spike: %w", err))
	}
	blankStats, err := stats.ComputeBasic(blank.Series.Values())
	if err != nil {
		return nil, s.fail(ctx, queue.EventMDL, id, started, fmt.Errorf("blank: %w", err))
	}
	result, err := s.mdl.Estimate(spike.Series.Values(), blank.Series.Values())
	if err != nil {
		return nil, s.fail(ctx, queue.EventMDL, id, started, err)
	}

	report := &MDLReport{
		SessionID:     id,
		Channel:       req.Channel,
		TimeAveraging: string(mode),
		SpikeWindow:   spikeWindow,
		BlankWindow:   blankWindow,
		Spike:         newGroupingReport(spike),
		Blank:         newGroupingReport(blank),
		SpikeStats:    spikeStats,
		BlankStats:    blankStats,
		Result:        result,
	}
	if report.Flagged, err = s.flag(ctx, sess, dataset.FlagMDL, spikeWindow, blankWindow); err != nil {
		return nil, s.fail(ctx, queue.EventMDL, id, started, err)
	}
	s.succeed(ctx, queue.EventMDL, sess, req.Channel, spikeWindow.Hull(blankWindow), report.Flagged, report, started)
	return report, nil
}

// MetCheck aligns the session's iMet channels with a reference weather-meter export
// on shared timestamps and reports percent differences per variable
func (s *AuditService) MetCheck(ctx context.Context, id string, req MetRequest) (*MetReport, error) {
	started := time.Now()
	defer s.lock(id)()

	if req.Reference == nil {
		return nil, s.fail(ctx, queue.EventMet, id, started, NewServiceError(CodeInvalidFile, "reference file is required"))
	}
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, queue.EventMet, id, started, err)
	}
	w, err := dataset.LocalizeWindow(sess.AuditDate, req.Start, req.End, s.location)
	if err != nil {
		return nil, s.fail(ctx, queue.EventMet, id, started, err)
	}

	parser := ingest.NewParser(ingest.Options{Location: s.location}, s.logger)
	reference, err := parser.ParseKestrel(req.Reference)
	if err != nil {
		return nil, s.fail(ctx, queue.EventMet, id, started, err)
	}

	report := &MetReport{SessionID: id, Window: w}
	var (
		pairs []stats.MetPair
		used  []MetVariable
	)
	selected := 0
	for _, v := range s.met {
		if !sess.Frame.HasChannel(v.Instrument) || !reference.HasChannel(v.Reference) {
			report.Skipped = append(report.Skipped, v.Title)
			continue
		}
		inst, _ := sess.Frame.Select(v.Instrument, w)
		ref, _ := reference.Select(v.Reference, w)
		selected += len(inst)
		pairs = append(pairs, stats.MetPair{Name: v.Title, Instrument: inst, Reference: ref})
		used = append(used, v)
	}
	if len(pairs) == 0 {
		return nil, s.fail(ctx, queue.EventMet, id, started,
			fmt.Errorf("no meteorological variable present in both files: %w", analytics.ErrChannelNotFound))
	}
	if selected == 0 {
		return nil, s.fail(ctx, queue.EventMet, id, started,
			fmt.Errorf("%s..%s: %w", w.Start.Format(time.Kitchen), w.End.Format(time.Kitchen), analytics.ErrEmptyWindow))
	}

	comparisons, err := stats.CompareMet(pairs)
	if err != nil {
		return nil, s.fail(ctx, queue.EventMet, id, started, err)
	}
	for i, cmp := range comparisons {
		report.Variables = append(report.Variables, MetVariableReport{
			Title:      used[i].Title,
			Instrument: used[i].Instrument,
			Reference:  used[i].Reference,
			Comparison: cmp,
		})
	}

	if report.Flagged, err = s.flag(ctx, sess, dataset.FlagIMet, w); err != nil {
		return nil, s.fail(ctx, queue.EventMet, id, started, err)
	}
	s.succeed(ctx, queue.EventMet, sess, "", w, report.Flagged, report, started)
	return report, nil
}

// groupWindow localizes the window, selects the channel, applies time averaging and
// runs the ideal-grouping engine
func (s *AuditService) groupWindow(sess *dataset.Session, channel, start, end string, mode downsampling.Mode) (dataset.Window, grouping.Result, error) {
	w, err := dataset.LocalizeWindow(sess.AuditDate, start, end, s.location)
	if err != nil {
		return dataset.Window{}, grouping.Result{}, err
	}
	series, err := sess.Frame.Select(channel, w)
	if err != nil {
		return w, grouping.Result{}, err
	}
	if len(series) == 0 {
		return w, grouping.Result{}, fmt.Errorf("%s %s-%s: %w", channel, start, end, analytics.ErrEmptyWindow)
	}
	series = mode.Apply(series)
	return w, s.engine.FindIdealGrouping(series), nil
}

// flag tags the windows and persists the session. Only called after the analysis succeeded.
func (s *AuditService) flag(ctx context.Context, sess *dataset.Session, flag dataset.FlagType, windows ...dataset.Window) (int, error) {
	n, err := sess.Flags.ApplyWindows(flag, windows...)
	if err != nil {
		return 0, err
	}
	if err := s.save(ctx, sess); err != nil {
		return 0, err
	}
	s.metrics.Flagged(string(flag), n)
	return n, nil
}

func (s *AuditService) succeed(ctx context.Context, typ queue.EventType, sess *dataset.Session, channel string, w dataset.Window, flagged int, report interface{}, started time.Time) {
	s.metrics.Analysis(string(typ), metrics.OutcomeOK, started)
	s.log(ctx).Info("Analysis completed",
		"type", string(typ),
		"session_id", sess.ID,
		"channel", channel,
		"flagged", flagged,
		"duration", time.Since(started).String())

	evt, err := queue.NewAuditEvent(typ, sess, channel, w, flagged, report)
	if err != nil {
		s.metrics.PublishFailed()
		s.log(ctx).Warn("Failed to encode result event",
			"type", string(typ),
			"session_id", sess.ID,
			"error", err)
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.metrics.PublishFailed()
	}
}

func (s *AuditService) fail(ctx context.Context, typ queue.EventType, id string, started time.Time, err error) error {
	svcErr := wrapError(err)
	outcome := metrics.OutcomeRejected
	if svcErr.Code == CodeStoreFailed || svcErr.Code == CodeAnalysisFailed {
		outcome = metrics.OutcomeFailed
	}
	s.metrics.Analysis(string(typ), outcome, started)
	s.log(ctx).Warn("Analysis rejected",
		"type", string(typ),
		"session_id", id,
		"code", svcErr.Code,
		"error", err)
	return svcErr
}
