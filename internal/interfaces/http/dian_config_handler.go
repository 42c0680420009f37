package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
)

// DianConfigHandler configuración DIAN del tenant.
type DianConfigHandler struct {
	uc  *billing.DianConfigUseCase
	log zerolog.Logger
}

// NewDianConfigHandler construye el handler.
func NewDianConfigHandler(uc *billing.DianConfigUseCase, log zerolog.Logger) *DianConfigHandler {
	return &DianConfigHandler{uc: uc, log: log}
}

// Get GET /api/settings/dian
func (h *DianConfigHandler) Get(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), GetCompanyID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Put reemplaza la configuración completa.
// PUT /api/settings/dian
func (h *DianConfigHandler) Put(c *fiber.Ctx) error {
	var in dto.DianConfigRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Put(c.UserContext(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Patch actualización parcial: ausente no cambia, null borra.
// PATCH /api/settings/dian
func (h *DianConfigHandler) Patch(c *fiber.Ctx) error {
	var in dto.DianConfigPatchRequest
	// json.Unmarshal directo: la distinción ausente/null depende de Optional.UnmarshalJSON.
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Patch(c.UserContext(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
