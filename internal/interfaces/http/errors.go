package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// El orden importa: ErrValidation es alias de ErrInvalidInput.
var errorMappings = []errorMapping{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrValidation, fiber.StatusUnprocessableEntity, "VALIDATION"},
	{domain.ErrPrecondition, fiber.StatusPreconditionFailed, "PRECONDITION_FAILED"},
	{domain.ErrConfiguration, fiber.StatusUnprocessableEntity, "DIAN_NOT_CONFIGURED"},
	{domain.ErrSequenceExhausted, fiber.StatusConflict, "SEQUENCE_EXHAUSTED"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrGatewayTransport, fiber.StatusServiceUnavailable, "DIAN_UNAVAILABLE"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
}

// writeError traduce un error de caso de uso a la respuesta HTTP. Los errores no tipados se
// registran y se responden como 500 sin exponer el detalle.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			resp := dto.ErrorResponse{Code: m.code, Message: err.Error()}
			var fields dto.FieldErrors
			if errors.As(err, &fields) {
				resp.Fields = fields
			}
			return c.Status(m.status).JSON(resp)
		}
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// ErrorHandler manejador de errores de Fiber para los que no pasan por writeError (rutas inexistentes, pánicos).
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: "HTTP_ERROR", Message: fe.Message})
		}
		return writeError(c, log, err)
	}
}
