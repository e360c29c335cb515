// Package handlers implements the HTTP API over the audit service
package handlers

import (
	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"

	"github.com/soltixdb/airaudit/internal/logging"
	"github.com/soltixdb/airaudit/internal/metrics"
	"github.com/soltixdb/airaudit/internal/services"
)

// Version is reported by the health endpoint; overridden at build time
var Version = "dev"

// Handler contains all HTTP handlers
type Handler struct {
	logger  *logging.Logger
	audit   *services.AuditService
	metrics *metrics.Metrics

	sessionBackend string
	eventBackend   string
}

// Options describes the backends reported by /health
type Options struct {
	SessionBackend string
	EventBackend   string
}

// New creates a new handler instance
func New(logger *logging.Logger, audit *services.AuditService, m *metrics.Metrics, opts Options) *Handler {
	if logger == nil {
		logger = logging.Global()
	}
	return &Handler{
		logger:         logger,
		audit:          audit,
		metrics:        m,
		sessionBackend: opts.SessionBackend,
		eventBackend:   opts.EventBackend,
	}
}

// sessionID copies the :id route param out of the reused request buffer
func sessionID(c *fiber.Ctx) string {
	return fiberutils.CopyString(c.Params("id"))
}

// query copies a query value that outlives the request
func query(c *fiber.Ctx, key string) string {
	return fiberutils.CopyString(c.Query(key))
}
