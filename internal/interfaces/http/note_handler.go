package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
)

// NoteHandler notas crédito y débito.
type NoteHandler struct {
	notes *billing.NoteIssuer
	pdf   *billing.PDFUseCase
	log   zerolog.Logger
}

// NewNoteHandler construye el handler.
func NewNoteHandler(notes *billing.NoteIssuer, pdf *billing.PDFUseCase, log zerolog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, pdf: pdf, log: log}
}

// IssueCredit emite una nota crédito sobre la factura :id.
// @Summary Emitir nota crédito
// @Tags notes
// @Param Idempotency-Key header string false "llave de idempotencia"
// @Router /api/invoices/{id}/credit-notes [post]
func (h *NoteHandler) IssueCredit(c *fiber.Ctx) error {
	var in dto.CreditNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.notes.IssueCreditNote(c.UserContext(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// IssueDebit emite una nota débito sobre la factura :id.
// POST /api/invoices/:id/debit-notes
func (h *NoteHandler) IssueDebit(c *fiber.Ctx) error {
	var in dto.DebitNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.notes.IssueDebitNote(c.UserContext(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// ListByInvoice GET /api/invoices/:id/notes
func (h *NoteHandler) ListByInvoice(c *fiber.Ctx) error {
	out, err := h.notes.ListInvoiceNotes(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"items": out})
}

// GetByID GET /api/notes/:id
func (h *NoteHandler) GetByID(c *fiber.Ctx) error {
	n, err := h.notes.GetNote(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(n)
}

// Send reintenta la entrega de una nota que quedó en borrador.
// POST /api/notes/:id/send
func (h *NoteHandler) Send(c *fiber.Ctx) error {
	var in dto.SendRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	res, err := h.notes.SendNote(c.UserContext(), GetCompanyID(c), c.Params("id"), billing.SendOptions{Force: in.Force})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// Status GET /api/notes/:id/dian-status
func (h *NoteHandler) Status(c *fiber.Ctx) error {
	res, err := h.notes.CheckNoteStatus(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// DownloadPDF GET /api/notes/:id/pdf
func (h *NoteHandler) DownloadPDF(c *fiber.Ctx) error {
	pdf, filename, err := h.pdf.DownloadNotePDF(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return sendPDF(c, pdf, filename)
}
