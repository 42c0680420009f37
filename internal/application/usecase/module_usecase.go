package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// ModuleService responde si una empresa tiene contratado un módulo (billing, accounting).
// Con WithCacheTTL guarda la respuesta por empresa y módulo; los errores no se guardan.
type ModuleService struct {
	companies repository.CompanyRepository
	ttl       time.Duration
	now       func() time.Time

	mu     sync.Mutex
	cache  map[string]moduleEntry
	flight singleflight.Group
}

type moduleEntry struct {
	active  bool
	expires time.Time
}

// NewModuleService construye el servicio sin caché.
func NewModuleService(companies repository.CompanyRepository) *ModuleService {
	return &ModuleService{companies: companies, now: time.Now, cache: map[string]moduleEntry{}}
}

// WithCacheTTL activa la caché en proceso. Un módulo desactivado puede seguir visible hasta ttl.
func (s *ModuleService) WithCacheTTL(ttl time.Duration) *ModuleService {
	s.ttl = ttl
	return s
}

// WithClock reloj de la caché.
func (s *ModuleService) WithClock(now func() time.Time) *ModuleService {
	s.now = now
	return s
}

// HasActiveModule false sin error si el módulo no está contratado o es desconocido;
// error solo ante fallos de infraestructura.
func (s *ModuleService) HasActiveModule(ctx context.Context, companyID, moduleName string) (bool, error) {
	if companyID == "" || moduleName == "" {
		return false, fmt.Errorf("module: companyID y moduleName son obligatorios")
	}
	if !knownModule(moduleName) {
		return false, nil
	}
	if s.ttl <= 0 {
		return s.companies.HasActiveModule(ctx, companyID, moduleName)
	}

	key := companyID + "/" + moduleName
	s.mu.Lock()
	e, ok := s.cache[key]
	s.mu.Unlock()
	if ok && s.now().Before(e.expires) {
		return e.active, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		active, err := s.companies.HasActiveModule(ctx, companyID, moduleName)
		if err != nil {
			return false, err
		}
		s.mu.Lock()
		s.cache[key] = moduleEntry{active: active, expires: s.now().Add(s.ttl)}
		s.mu.Unlock()
		return active, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func knownModule(name string) bool {
	switch name {
	case entity.ModuleBilling, entity.ModuleAccounting:
		return true
	}
	return false
}
