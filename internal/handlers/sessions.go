package handlers

import (
	"bytes"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/airaudit/internal/ingest"
	"github.com/soltixdb/airaudit/internal/models"
	"github.com/soltixdb/airaudit/internal/services"
)

// CreateSession uploads one or more instrument logs.
// POST /v1/sessions
//
// The body is either raw CSV (file name in ?file_name=) or multipart with one or
// more "file" parts sharing a header. ?compound= overrides the cleaned channel.
func (h *Handler) CreateSession(c *fiber.Ctx) error {
	req := services.UploadRequest{
		FileName: query(c, "file_name"),
		Compound: query(c, "compound"),
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return badRequest(c, "invalid multipart body: "+err.Error())
		}
		if v := form.Value["compound"]; len(v) > 0 && req.Compound == "" {
			req.Compound = v[0]
		}
		for _, fh := range form.File["file"] {
			f, err := fh.Open()
			if err != nil {
				return badRequest(c, "cannot read "+fh.Filename)
			}
			defer func() { _ = f.Close() }()
			req.Files = append(req.Files, ingest.File{Name: fh.Filename, Reader: f})
		}
		if len(req.Files) == 0 {
			return badRequest(c, `multipart body has no "file" part`)
		}
	} else {
		body := c.Body()
		if len(bytes.TrimSpace(body)) == 0 {
			return badRequest(c, "request body is empty")
		}
		name := req.FileName
		if name == "" {
			name = "upload.csv"
		}
		req.Files = []ingest.File{{Name: name, Reader: bytes.NewReader(body)}}
	}

	info, err := h.audit.CreateSession(c.UserContext(), req)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(info)
}

// GetSession returns the session summary.
// GET /v1/sessions/:id
func (h *Handler) GetSession(c *fiber.Ctx) error {
	info, err := h.audit.GetSession(c.UserContext(), sessionID(c))
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(info)
}

// DeleteSession ends the analysis.
// DELETE /v1/sessions/:id
func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	id := sessionID(c)
	if err := h.audit.DeleteSession(c.UserContext(), id); err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(models.DeleteResponse{ID: id, Deleted: true})
}

// DownloadSession exports the flagged dataset as CSV.
// GET /v1/sessions/:id/download
func (h *Handler) DownloadSession(c *fiber.Ctx) error {
	var buf bytes.Buffer
	name, err := h.audit.ExportSession(c.UserContext(), sessionID(c), &buf)
	if err != nil {
		return h.serviceError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment(name)
	return c.Send(buf.Bytes())
}
