// Package queue programa y procesa la consulta diferida del estado DIAN con asynq sobre Redis.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

const (
	// QueueDIAN cola de las consultas de estado.
	QueueDIAN = "dian"
	// TaskCheckStatus consulta GetStatusZip de un documento SENT.
	TaskCheckStatus = "dian:check_status"
)

// ErrStillPending lo devuelve el handler mientras la DIAN no resuelva, para que asynq reintente.
var ErrStillPending = errors.New("documento aún en validación DIAN")

// CheckStatusPayload identifica el documento a consultar.
type CheckStatusPayload struct {
	CompanyID    string              `json:"company_id"`
	DocumentID   string              `json:"document_id"`
	DocumentType entity.DocumentType `json:"document_type"`
}

// NewCheckStatusTask construye la tarea asynq.
func NewCheckStatusTask(p CheckStatusPayload) (*asynq.Task, error) {
	if p.CompanyID == "" || p.DocumentID == "" || !p.DocumentType.Valid() {
		return nil, fmt.Errorf("%w: tarea de consulta incompleta", domain.ErrValidation)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCheckStatus, data), nil
}

// taskID clave de deduplicación: una consulta viva por documento.
func (p CheckStatusPayload) taskID() string {
	return "status:" + string(p.DocumentType) + ":" + p.DocumentID
}

// InvoiceStatusChecker lo implementa billing.Lifecycle.
type InvoiceStatusChecker interface {
	CheckStatus(ctx context.Context, companyID, invoiceID string) (*dto.StatusResult, error)
}

// NoteStatusChecker lo implementa billing.NoteIssuer.
type NoteStatusChecker interface {
	CheckNoteStatus(ctx context.Context, companyID, noteID string) (*dto.StatusResult, error)
}

// StatusCheckRecorder cuenta las consultas ejecutadas (metrics.Metrics).
type StatusCheckRecorder interface {
	StatusCheck(docType entity.DocumentType, outcome string)
}

// StatusCheckHandler procesa TaskCheckStatus.
type StatusCheckHandler struct {
	Invoices InvoiceStatusChecker
	Notes    NoteStatusChecker
	Recorder StatusCheckRecorder
	Logger   zerolog.Logger
}

// ProcessTask implementa asynq.Handler. Pendiente o reintentable devuelve error para que asynq
// reprograme con backoff; documento inexistente o sin enviar se descarta con SkipRetry.
func (h *StatusCheckHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p CheckStatusPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return asynq.SkipRetry
	}
	log := h.Logger.With().
		Str("company_id", p.CompanyID).
		Str("document_id", p.DocumentID).
		Str("family", string(p.DocumentType)).
		Logger()

	var (
		res *dto.StatusResult
		err error
	)
	switch p.DocumentType {
	case entity.DocumentTypeInvoice:
		res, err = h.Invoices.CheckStatus(ctx, p.CompanyID, p.DocumentID)
	case entity.DocumentTypeCreditNote, entity.DocumentTypeDebitNote:
		res, err = h.Notes.CheckNoteStatus(ctx, p.CompanyID, p.DocumentID)
	default:
		log.Warn().Msg("tipo de documento desconocido en tarea de consulta")
		return asynq.SkipRetry
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrPrecondition) {
			log.Warn().Err(err).Msg("consulta DIAN descartada")
			h.record(p.DocumentType, "DISCARDED")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		h.record(p.DocumentType, "ERROR")
		return err
	}
	h.record(p.DocumentType, res.Outcome)
	switch res.Outcome {
	case billing.OutcomePending, billing.OutcomeRetryable:
		log.Debug().Str("outcome", res.Outcome).Str("reason", res.Reason).Msg("documento sigue en validación")
		return fmt.Errorf("%w (%s)", ErrStillPending, res.Outcome)
	}
	log.Info().Str("status", res.Status).Msg("estado DIAN resuelto por el worker")
	return nil
}

func (h *StatusCheckHandler) record(docType entity.DocumentType, outcome string) {
	if h.Recorder != nil {
		h.Recorder.StatusCheck(docType, outcome)
	}
}
