package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// Lifecycle envía facturas a la DIAN y consulta su estado.
//
//	DRAFT ──Send──► SENT ──CheckStatus──► ACCEPTED | REJECTED
//	  │               fallo de red: sigue DRAFT con número y LastSendError
//	  └──────────────► REJECTED (rechazo inmediato)
//
// El consecutivo se asigna en el primer envío, dentro de la misma transacción
// que bloquea la factura. La llamada a la DIAN ocurre fuera de la transacción.
type Lifecycle struct {
	*core
}

// NewLifecycle construye el ciclo de vida de facturas.
func NewLifecycle(d Dependencies) *Lifecycle {
	return &Lifecycle{core: newCore(d)}
}

// Send numera (si hace falta) y envía una factura en DRAFT.
func (l *Lifecycle) Send(ctx context.Context, companyID, invoiceID string, opts SendOptions) (*dto.SendResult, error) {
	docType := entity.DocumentTypeInvoice
	log := l.docLogger(companyID, invoiceID, docType)

	var (
		inv *entity.Invoice
		sub *dian.Submission
	)
	err := l.TxRunner.RunBilling(ctx, func(repos repository.TxRepos) error {
		var err error
		inv, err = repos.Invoices.GetByIDForUpdate(ctx, companyID, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
		}
		if inv.Status != entity.StatusDraft {
			return fmt.Errorf("%w: la factura está en %s", domain.ErrPrecondition, inv.Status)
		}
		if inv.Details, err = repos.Invoices.GetDetails(ctx, inv.ID); err != nil {
			return err
		}
		customer, err := l.customerFor(ctx, companyID, inv.CustomerID)
		if err != nil {
			return err
		}
		if err := dian.ValidateInvoice(inv, customer); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		cfg, err := l.readyConfig(ctx, repos, companyID)
		if err != nil {
			return err
		}
		if sub, err = l.invoiceSubmission(ctx, inv, customer, cfg); err != nil {
			return err
		}
		res, err := l.reserveNumber(ctx, repos, companyID, docType, &inv.DianTracking, opts.Force, log)
		if err != nil {
			return err
		}
		numberSubmission(sub, &inv.DianTracking, res)
		inv.LastSendError = ""
		inv.SendAttempts++
		inv.UpdatedAt = l.Now()
		return repos.Invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("number", inv.FullNumber()).Int("attempt", inv.SendAttempts).Msg("enviando factura a la DIAN")
	gctx, cancel := l.detached(ctx)
	resp, callErr := l.Gateway.Submit(gctx, sub)
	cancel()

	outcome, reason := applySubmit(&inv.DianTracking, resp, callErr)
	if resp != nil && resp.DocumentKey != "" {
		inv.CUFE = resp.DocumentKey
	}
	inv.UpdatedAt = l.Now()

	pctx, cancel := l.detached(ctx)
	defer cancel()
	err = l.TxRunner.RunBilling(pctx, func(repos repository.TxRepos) error {
		cur, err := repos.Invoices.GetByIDForUpdate(pctx, companyID, invoiceID)
		if err != nil {
			return err
		}
		if cur == nil || cur.Status != entity.StatusDraft || cur.SequenceNumber != inv.SequenceNumber {
			return fmt.Errorf("%w: la factura cambió durante el envío", domain.ErrConflict)
		}
		return repos.Invoices.Update(pctx, inv)
	})
	if err != nil {
		log.Error().Err(err).Str("number", inv.FullNumber()).Str("outcome", outcome).Msg("no se pudo registrar el resultado del envío")
		return nil, err
	}
	l.afterSubmit(ctx, log, docType, companyID, inv.ID, &inv.DianTracking, outcome, reason)
	return sendResult(docType, inv.ID, &inv.DianTracking, outcome, reason), nil
}

// CheckStatus consulta a la DIAN el estado de una factura enviada.
// En estados terminales no llama a la DIAN. Consultas concurrentes de la misma factura se unen en una.
func (l *Lifecycle) CheckStatus(ctx context.Context, companyID, invoiceID string) (*dto.StatusResult, error) {
	docType := entity.DocumentTypeInvoice
	inv, err := l.Repos.Invoices.GetByID(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}
	switch {
	case inv.Status.IsTerminal():
		return statusResult(docType, inv.ID, inv.CUFE, &inv.DianTracking, string(inv.Status), inv.DIANErrors), nil
	case inv.Status == entity.StatusDraft:
		return nil, fmt.Errorf("%w: la factura no ha sido enviada", domain.ErrPrecondition)
	}
	v, err, _ := l.flight.Do("invoice:"+inv.ID, func() (any, error) {
		return l.pollInvoice(context.WithoutCancel(ctx), inv)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dto.StatusResult), nil
}

func (l *Lifecycle) pollInvoice(ctx context.Context, inv *entity.Invoice) (*dto.StatusResult, error) {
	docType := entity.DocumentTypeInvoice
	log := l.docLogger(inv.CompanyID, inv.ID, docType)

	cfg, err := l.Repos.Configs.Get(ctx, inv.CompanyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: la empresa no tiene configuración DIAN", domain.ErrConfiguration)
	}
	gctx, cancel := l.detached(ctx)
	resp, callErr := l.Gateway.CheckStatus(gctx, cfg, inv.TrackID)
	cancel()
	if callErr != nil {
		log.Warn().Err(callErr).Str("track_id", inv.TrackID).Msg("consulta de estado DIAN fallida")
		return statusResult(docType, inv.ID, inv.CUFE, &inv.DianTracking, OutcomeRetryable, callErr.Error()), nil
	}
	switch resp.Outcome {
	case dian.OutcomeAccepted, dian.OutcomeRejected:
	case dian.OutcomePending:
		return statusResult(docType, inv.ID, inv.CUFE, &inv.DianTracking, OutcomePending, resp.Reason), nil
	default:
		return statusResult(docType, inv.ID, inv.CUFE, &inv.DianTracking, OutcomeRetryable, resp.Reason), nil
	}

	var (
		final   *entity.Invoice
		changed bool
	)
	err = l.TxRunner.RunBilling(ctx, func(repos repository.TxRepos) error {
		cur, err := repos.Invoices.GetByIDForUpdate(ctx, inv.CompanyID, inv.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, inv.ID)
		}
		final = cur
		if cur.Status != entity.StatusSent {
			return nil
		}
		applyStatus(&cur.DianTracking, resp)
		if cur.CUFE == "" {
			cur.CUFE = resp.DocumentKey
		}
		cur.UpdatedAt = l.Now()
		changed = true
		return repos.Invoices.Update(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		l.Observer.Transition(docType, final.Status)
		log.Info().Str("number", final.FullNumber()).Str("status", string(final.Status)).Msg("estado DIAN actualizado")
		if final.Status == entity.StatusAccepted && l.Hook != nil {
			if err := l.Hook.InvoiceAccepted(ctx, final); err != nil {
				log.Error().Err(err).Msg("no se pudo generar el asiento contable de la factura")
			}
		}
	}
	return statusResult(docType, final.ID, final.CUFE, &final.DianTracking, string(final.Status), final.DIANErrors), nil
}
