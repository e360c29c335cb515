package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/airaudit/internal/downsampling"
	"github.com/soltixdb/airaudit/internal/models"
	"github.com/soltixdb/airaudit/internal/services"
)

// channels loads the session's channel list for request validation
func (h *Handler) channels(c *fiber.Ctx) ([]string, error) {
	return h.audit.Channels(c.UserContext(), sessionID(c))
}

// ZeroAir runs the zero-air baseline check.
// POST /v1/sessions/:id/analyses/zero
func (h *Handler) ZeroAir(c *fiber.Ctx) error {
	var req models.WindowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	channels, err := h.channels(c)
	if err != nil {
		return h.serviceError(c, err)
	}

	var v validationError
	v.checkClock("start_time", req.StartTime)
	v.checkClock("end_time", req.EndTime)
	v.checkChannel(req.Channel, channels)
	if !v.empty() {
		return v.respond(c)
	}

	report, err := h.audit.ZeroAir(c.UserContext(), sessionID(c), services.WindowRequest{
		Start: req.StartTime, End: req.EndTime, Channel: req.Channel,
	})
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(report)
}

// Calibration runs the calibration-gas recovery check.
// POST /v1/sessions/:id/analyses/cal
func (h *Handler) Calibration(c *fiber.Ctx) error {
	var req models.CalibrationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	channels, err := h.channels(c)
	if err != nil {
		return h.serviceError(c, err)
	}

	var v validationError
	v.checkClock("start_time", req.StartTime)
	v.checkClock("end_time", req.EndTime)
	v.checkChannel(req.Channel, channels)
	concentration := v.parseConcentration(req.Concentration)
	if !v.empty() {
		return v.respond(c)
	}

	report, err := h.audit.Calibration(c.UserContext(), sessionID(c), services.CalibrationRequest{
		WindowRequest: services.WindowRequest{Start: req.StartTime, End: req.EndTime, Channel: req.Channel},
		Concentration: concentration,
	})
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(report)
}

// MDLCheck runs the method-detection-limit check.
// POST /v1/sessions/:id/analyses/mdl
func (h *Handler) MDLCheck(c *fiber.Ctx) error {
	var req models.MDLRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	channels, err := h.channels(c)
	if err != nil {
		return h.serviceError(c, err)
	}

	var v validationError
	v.checkClock("spike_start", req.SpikeStart)
	v.checkClock("spike_end", req.SpikeEnd)
	v.checkClock("blank_start", req.BlankStart)
	v.checkClock("blank_end", req.BlankEnd)
	v.checkChannel(req.Channel, channels)
	if !downsampling.IsValid(req.TimeAveraging) {
		v.add("time_averaging", "must be one of: none, 1m, 5m")
	}
	if !v.empty() {
		return v.respond(c)
	}

	report, err := h.audit.MDLCheck(c.UserContext(), sessionID(c), services.MDLRequest{
		SpikeStart:    req.SpikeStart,
		SpikeEnd:      req.SpikeEnd,
		BlankStart:    req.BlankStart,
		BlankEnd:      req.BlankEnd,
		Channel:       req.Channel,
		TimeAveraging: req.TimeAveraging,
	})
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(report)
}

// MetCheck compares iMet channels with a reference weather-meter export.
// POST /v1/sessions/:id/analyses/imet
func (h *Handler) MetCheck(c *fiber.Ctx) error {
	var req models.MetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	var v validationError
	v.checkClock("start_time", req.StartTime)
	v.checkClock("end_time", req.EndTime)

	svcReq := services.MetRequest{Start: req.StartTime, End: req.EndTime}
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("reference")
		if err != nil {
			v.add("reference", "file part is required")
		} else {
			f, err := fh.Open()
			if err != nil {
				return badRequest(c, "cannot read "+fh.Filename)
			}
			defer func() { _ = f.Close() }()
			svcReq.Reference = f
		}
	} else if strings.TrimSpace(req.ReferenceCSV) == "" {
		v.add("reference_csv", "is required")
	} else {
		svcReq.Reference = strings.NewReader(req.ReferenceCSV)
	}
	if !v.empty() {
		return v.respond(c)
	}

	report, err := h.audit.MetCheck(c.UserContext(), sessionID(c), svcReq)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(report)
}
