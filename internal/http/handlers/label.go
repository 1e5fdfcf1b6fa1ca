package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"shippinglabel/internal/domain"
	"shippinglabel/internal/http/middleware"
	"shippinglabel/internal/infra/logging"
	"shippinglabel/internal/infra/postgres"
	"shippinglabel/internal/label"
)

const (
	labelFilename      = "shipping-label.pdf"
	generateFailureMsg = "Failed to generate shipping label"
	auditTimeout       = 5 * time.Second
)

// LabelService is the label pipeline as seen by the transport.
type LabelService interface {
	Generate(ctx context.Context, req domain.LabelRequest) (label.Result, error)
	Preview(req domain.LabelRequest) (string, error)
}

// AuditRecorder stores one row per generated label.
type AuditRecorder interface {
	Record(ctx context.Context, entry postgres.AuditEntry) error
}

// LabelHandler serves /get-label.
type LabelHandler struct {
	labels LabelService
	audit  AuditRecorder
}

// NewLabelHandler builds the handler. audit may be nil.
func NewLabelHandler(labels LabelService, audit AuditRecorder) *LabelHandler {
	return &LabelHandler{labels: labels, audit: audit}
}

func parseLabelRequest(c *fiber.Ctx) (domain.LabelRequest, error) {
	var req domain.LabelRequest
	body := c.Body()
	if len(body) == 0 {
		return req, nil
	}
	if err := c.App().Config().JSONDecoder(body, &req); err != nil {
		return req, err
	}
	return req, nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "Invalid label request",
		"message": err.Error(),
	})
}

// GenerateLabel responds with the label PDF as an attachment.
func (h *LabelHandler) GenerateLabel(c *fiber.Ctx) error {
	req, err := parseLabelRequest(c)
	if err != nil {
		logging.Warn("Invalid label request", "error", err, "request_id", middleware.RequestID(c))
		return badRequest(c, err)
	}

	res, err := h.labels.Generate(c.UserContext(), req)
	if err != nil {
		logging.Error("Failed to generate shipping label",
			"error", err,
			"order", req.Order,
			"request_id", middleware.RequestID(c),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   generateFailureMsg,
			"message": err.Error(),
		})
	}

	h.recordAudit(req, res, middleware.RequestID(c))

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+labelFilename)
	return c.Send(res.PDF)
}

// Preview responds with the rendered label HTML.
func (h *LabelHandler) Preview(c *fiber.Ctx) error {
	req, err := parseLabelRequest(c)
	if err != nil {
		return badRequest(c, err)
	}

	html, err := h.labels.Preview(req)
	if err != nil {
		logging.Error("Failed to render label preview", "error", err, "request_id", middleware.RequestID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   generateFailureMsg,
			"message": err.Error(),
		})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}

// recordAudit writes the audit row in the background. Failures are logged only.
func (h *LabelHandler) recordAudit(req domain.LabelRequest, res label.Result, requestID string) {
	if h.audit == nil {
		return
	}
	entry := postgres.AuditEntry{
		OrderRef:          req.Order,
		Name:              req.Name,
		RequestedLanguage: req.Language,
		ResolvedLanguage:  res.ResolvedLanguage,
		LogoFallback:      res.LogoFallback,
		PDFBytes:          len(res.PDF),
		RequestID:         requestID,
		CreatedAt:         time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := h.audit.Record(ctx, entry); err != nil {
			logging.Error("Failed to record label audit", "error", err, "order", entry.OrderRef)
		}
	}()
}
