package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockflow-api/internal/application/accounting"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
)

// JournalHandler asientos contables (módulo accounting).
type JournalHandler struct {
	uc  *accounting.JournalUseCase
	log zerolog.Logger
}

// NewJournalHandler construye el handler.
func NewJournalHandler(uc *accounting.JournalUseCase, log zerolog.Logger) *JournalHandler {
	return &JournalHandler{uc: uc, log: log}
}

// Create crea un asiento manual en DRAFT.
// @Summary Crear asiento
// @Tags journal
// @Router /api/journal-entries [post]
func (h *JournalHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateJournalEntryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	e, err := h.uc.Create(c.UserContext(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

// List GET /api/journal-entries?status=POSTED&source_type=INVOICE
func (h *JournalHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	out, err := h.uc.List(c.UserContext(), GetCompanyID(c), c.Query("status"), c.Query("source_type"), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID GET /api/journal-entries/:id
func (h *JournalHandler) GetByID(c *fiber.Ctx) error {
	e, err := h.uc.Get(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(e)
}

// Post contabiliza un asiento balanceado.
// POST /api/journal-entries/:id/post
func (h *JournalHandler) Post(c *fiber.Ctx) error {
	e, err := h.uc.Post(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(e)
}

// Void anula un asiento contabilizado.
// POST /api/journal-entries/:id/void
func (h *JournalHandler) Void(c *fiber.Ctx) error {
	var in dto.VoidJournalEntryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	e, err := h.uc.Void(c.UserContext(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(e)
}
