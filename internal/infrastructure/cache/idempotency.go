package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idem:"

// IdempotencyStore reserva llaves Idempotency-Key con SET NX y expiración.
type IdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewIdempotencyStore construye el store. ttl <= 0 usa 24 horas.
func NewIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Acquire reserva la llave para el alcance dado (empresa + operación). Devuelve false si ya estaba
// tomada por una petición anterior.
func (s *IdempotencyStore) Acquire(ctx context.Context, scope, key, fingerprint string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.redisKey(scope, key), fingerprint, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache: reservar llave de idempotencia: %w", err)
	}
	return ok, nil
}

// Release libera la llave para que el cliente pueda reintentar (la petición falló sin efectos).
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, s.redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("cache: liberar llave de idempotencia: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) redisKey(scope, key string) string {
	return idempotencyPrefix + scope + ":" + key
}
