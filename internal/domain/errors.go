package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Los casos de uso los envuelven con fmt.Errorf("%w: detalle") para dar contexto;
// la capa HTTP los traduce con errors.Is.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// ErrPrecondition: el documento no está en el estado requerido por la operación.
	ErrPrecondition = errors.New("precondición no cumplida")
	// ErrConfiguration: la configuración DIAN del tenant está incompleta.
	ErrConfiguration = errors.New("configuración DIAN incompleta")
	// ErrSequenceExhausted: el rango de numeración autorizado se agotó.
	ErrSequenceExhausted = errors.New("rango de numeración agotado")
	// ErrGatewayTransport: fallo de red o timeout hablando con la DIAN. Es reintentable.
	ErrGatewayTransport = errors.New("fallo de transporte con la DIAN")
)

// ErrValidation es el nombre usado por los casos de uso de facturación para ErrInvalidInput.
var ErrValidation = ErrInvalidInput
