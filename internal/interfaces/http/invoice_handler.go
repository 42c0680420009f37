package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
)

// InvoiceHandler maneja las peticiones HTTP de facturas electrónicas (protegido).
type InvoiceHandler struct {
	invoices  *billing.InvoiceUseCase
	lifecycle *billing.Lifecycle
	pdf       *billing.PDFUseCase
	log       zerolog.Logger
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(invoices *billing.InvoiceUseCase, lifecycle *billing.Lifecycle, pdf *billing.PDFUseCase, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, lifecycle: lifecycle, pdf: pdf, log: log}
}

// Create crea una factura en borrador (sin número).
// @Summary Crear factura
// @Tags invoices
// @Router /api/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	inv, err := h.invoices.CreateInvoice(c.UserContext(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

// List lista facturas filtrando por status y customer_id.
// GET /api/invoices?status=SENT&limit=20&offset=0
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	out, err := h.invoices.ListInvoices(c.UserContext(), GetCompanyID(c), c.Query("status"), c.Query("customer_id"), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID obtiene el detalle completo de una factura.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	inv, err := h.invoices.GetInvoice(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(inv)
}

// Send asigna consecutivo y entrega la factura a la DIAN. El resultado de negocio (SENT, REJECTED,
// RETRYABLE) responde 200; solo los errores de precondición o configuración usan 4xx.
// @Summary Enviar factura a la DIAN
// @Tags invoices
// @Param Idempotency-Key header string false "llave de idempotencia"
// @Router /api/invoices/{id}/send [post]
func (h *InvoiceHandler) Send(c *fiber.Ctx) error {
	var in dto.SendRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	res, err := h.lifecycle.Send(c.UserContext(), GetCompanyID(c), c.Params("id"), billing.SendOptions{Force: in.Force})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// Status consulta a la DIAN el estado de una factura enviada.
// GET /api/invoices/:id/dian-status
func (h *InvoiceHandler) Status(c *fiber.Ctx) error {
	res, err := h.lifecycle.CheckStatus(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// Void anula un borrador.
// POST /api/invoices/:id/void
func (h *InvoiceHandler) Void(c *fiber.Ctx) error {
	var in dto.VoidInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	inv, err := h.invoices.VoidInvoice(c.UserContext(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(inv)
}

// DownloadPDF descarga la representación gráfica.
// GET /api/invoices/:id/pdf
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	pdf, filename, err := h.pdf.DownloadInvoicePDF(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return sendPDF(c, pdf, filename)
}

func sendPDF(c *fiber.Ctx, pdf []byte, filename string) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
