package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockflow-api/internal/application/dto"
)

// HeaderIdempotencyKey cabecera opcional en los POST de envío y emisión.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// idempotencyStore lo implementa *cache.IdempotencyStore.
type idempotencyStore interface {
	Acquire(ctx context.Context, scope, key, fingerprint string) (bool, error)
	Release(ctx context.Context, scope, key string) error
}

// Idempotency rechaza con 409 IDEMPOTENCY_CONFLICT la repetición de una llave ya usada por la
// misma empresa en la misma ruta. Si la petición termina en 5xx la llave se libera para permitir el reintento.
// Sin cabecera la petición pasa sin control.
func Idempotency(store idempotencyStore, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderIdempotencyKey)
		if key == "" || store == nil {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_IDEMPOTENCY_KEY", Message: "Idempotency-Key demasiado larga"})
		}
		scope := GetCompanyID(c) + ":" + c.Method() + " " + c.Path()
		sum := sha256.Sum256(c.Body())

		ok, err := store.Acquire(c.UserContext(), scope, key, hex.EncodeToString(sum[:]))
		if err != nil {
			log.Error().Err(err).Str("scope", scope).Msg("idempotencia no disponible")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_UNAVAILABLE", Message: "no se pudo verificar la llave de idempotencia"})
		}
		if !ok {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_CONFLICT", Message: "la llave de idempotencia ya fue usada"})
		}

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusInternalServerError {
			if rerr := store.Release(context.WithoutCancel(c.UserContext()), scope, key); rerr != nil {
				log.Warn().Err(rerr).Str("scope", scope).Msg("no se liberó la llave de idempotencia")
			}
		}
		return err
	}
}
