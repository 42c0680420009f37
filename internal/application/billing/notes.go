package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	pkgdian "github.com/jhoicas/stockflow-api/pkg/dian"
)

// NoteIssuer emite notas crédito y débito sobre facturas ya enviadas y las envía a la DIAN.
// Cada familia de notas tiene su propio rango de numeración.
type NoteIssuer struct {
	*core
}

// NewNoteIssuer construye el emisor de notas.
func NewNoteIssuer(d Dependencies) *NoteIssuer {
	return &NoteIssuer{core: newCore(d)}
}

// IssueCreditNote crea una nota crédito y la envía de inmediato.
// Sin ítems es TOTAL (refleja todas las líneas); con ítems es PARCIAL: cada línea de la
// factura aparece una vez, su cantidad se recorta a la facturada y se valora a precio
// unitario de lista (cantidad x precio, IVA sobre ese subtotal).
func (n *NoteIssuer) IssueCreditNote(ctx context.Context, companyID, invoiceID string, in dto.CreditNoteRequest) (*dto.IssueNoteResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if entity.ReasonName(entity.NoteCredit, in.ReasonCode) == "" {
		return nil, fmt.Errorf("%w: concepto de corrección %d desconocido", domain.ErrValidation, in.ReasonCode)
	}
	parent, err := n.parentInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	note := n.newNote(parent, entity.NoteCredit, in.ReasonCode, in.Reason, in.Description)
	if len(in.Items) == 0 {
		note.Scope = entity.ScopeTotal
		for _, d := range parent.Details {
			note.Lines = append(note.Lines, mirrorLine(d))
		}
	} else {
		note.Scope = entity.ScopePartial
		byID := make(map[string]*entity.InvoiceDetail, len(parent.Details))
		for _, d := range parent.Details {
			byID[d.ID] = d
		}
		for _, item := range in.Items {
			d, ok := byID[item.InvoiceItemID]
			if !ok {
				return nil, fmt.Errorf("%w: la línea %s no pertenece a la factura", domain.ErrValidation, item.InvoiceItemID)
			}
			qty := decimal.Min(item.Quantity, d.Quantity)
			if qty.IsZero() {
				continue
			}
			note.Lines = append(note.Lines, entity.NewNoteLine(d.ID, d.ProductID, d.Description, qty, d.UnitPrice, d.TaxRate))
		}
	}
	note.ComputeTotals()
	return n.issue(ctx, parent, note)
}

// IssueDebitNote crea una nota débito con cargos libres y la envía de inmediato.
func (n *NoteIssuer) IssueDebitNote(ctx context.Context, companyID, invoiceID string, in dto.DebitNoteRequest) (*dto.IssueNoteResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if entity.ReasonName(entity.NoteDebit, in.ReasonCode) == "" {
		return nil, fmt.Errorf("%w: concepto de corrección %d desconocido", domain.ErrValidation, in.ReasonCode)
	}
	parent, err := n.parentInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	note := n.newNote(parent, entity.NoteDebit, in.ReasonCode, in.Reason, in.Description)
	for _, item := range in.Items {
		rate := entity.NormalizeTaxRate(item.TaxRate)
		if !pkgdian.IsValidIVARate(rate) {
			return nil, fmt.Errorf("%w: tarifa de IVA %s no permitida", domain.ErrValidation, rate.String())
		}
		note.Lines = append(note.Lines, entity.NewNoteLine("", "", item.Description,
			decimal.NewFromInt(int64(item.Quantity)), item.UnitPrice, rate))
	}
	note.ComputeTotals()
	return n.issue(ctx, parent, note)
}

// issue valida y guarda la nota en DRAFT y luego intenta el primer envío. Si el envío no
// puede hacerse, la nota queda en DRAFT y el motivo va en el resultado.
func (n *NoteIssuer) issue(ctx context.Context, parent *entity.Invoice, note *entity.Note) (*dto.IssueNoteResponse, error) {
	if err := dian.ValidateNote(note); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	for _, l := range note.Lines {
		l.ID = uuid.New().String()
		l.NoteID = note.ID
	}
	if err := n.TxRunner.RunBilling(ctx, func(repos repository.TxRepos) error {
		locked, err := repos.Invoices.GetByIDForUpdate(ctx, parent.CompanyID, parent.ID)
		if err != nil {
			return err
		}
		if err := acceptsNotes(locked, parent.ID); err != nil {
			return err
		}
		if note.Kind == entity.NoteCredit {
			if err := checkCreditBalance(ctx, repos.Notes, locked, note); err != nil {
				return err
			}
		}
		return repos.Notes.Create(ctx, note)
	}); err != nil {
		return nil, err
	}
	log := n.docLogger(note.CompanyID, note.ID, note.Kind.DocumentType())
	log.Info().
		Str("invoice_id", parent.ID).
		Str("scope", string(note.Scope)).
		Str("total", note.Total.StringFixed(2)).
		Msg("nota creada")

	result, err := n.SendNote(ctx, note.CompanyID, note.ID, SendOptions{})
	if err != nil {
		if !isSendRefusal(err) {
			return nil, err
		}
		log.Warn().Err(err).Msg("la nota quedó en DRAFT sin enviarse")
		result = sendResult(note.Kind.DocumentType(), note.ID, &note.DianTracking, OutcomeNotSent, err.Error())
	}
	saved, err := n.Repos.Notes.GetByID(ctx, note.CompanyID, note.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		saved = note
	}
	return &dto.IssueNoteResponse{Note: *toNoteResponse(saved), Result: *result}, nil
}

// isSendRefusal errores que dejan la nota guardada en DRAFT para un reintento posterior.
func isSendRefusal(err error) bool {
	return errors.Is(err, domain.ErrConfiguration) ||
		errors.Is(err, domain.ErrSequenceExhausted) ||
		errors.Is(err, domain.ErrPrecondition) ||
		errors.Is(err, domain.ErrConflict)
}

// SendNote numera (si hace falta) y envía una nota en DRAFT.
func (n *NoteIssuer) SendNote(ctx context.Context, companyID, noteID string, opts SendOptions) (*dto.SendResult, error) {
	var (
		note    *entity.Note
		sub     *dian.Submission
		docType entity.DocumentType
	)
	log := n.Logger
	err := n.TxRunner.RunBilling(ctx, func(repos repository.TxRepos) error {
		var err error
		note, err = repos.Notes.GetByIDForUpdate(ctx, companyID, noteID)
		if err != nil {
			return err
		}
		if note == nil {
			return fmt.Errorf("%w: nota %s", domain.ErrNotFound, noteID)
		}
		docType = note.Kind.DocumentType()
		log = n.docLogger(companyID, note.ID, docType)
		if note.Status != entity.StatusDraft {
			return fmt.Errorf("%w: la nota está en %s", domain.ErrPrecondition, note.Status)
		}
		if err := dian.ValidateNote(note); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		parent, err := repos.Invoices.GetByID(ctx, companyID, note.InvoiceID)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, note.InvoiceID)
		}
		customer, err := n.customerFor(ctx, companyID, parent.CustomerID)
		if err != nil {
			return err
		}
		cfg, err := n.readyConfig(ctx, repos, companyID)
		if err != nil {
			return err
		}
		if sub, err = n.noteSubmission(ctx, note, parent, customer, cfg); err != nil {
			return err
		}
		res, err := n.reserveNumber(ctx, repos, companyID, docType, &note.DianTracking, opts.Force, log)
		if err != nil {
			return err
		}
		numberSubmission(sub, &note.DianTracking, res)
		note.LastSendError = ""
		note.SendAttempts++
		note.UpdatedAt = n.Now()
		return repos.Notes.Update(ctx, note)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("number", note.FullNumber()).Int("attempt", note.SendAttempts).Msg("enviando nota a la DIAN")
	gctx, cancel := n.detached(ctx)
	resp, callErr := n.Gateway.Submit(gctx, sub)
	cancel()

	outcome, reason := applySubmit(&note.DianTracking, resp, callErr)
	if resp != nil && resp.DocumentKey != "" {
		note.CUDE = resp.DocumentKey
	}
	note.UpdatedAt = n.Now()

	pctx, cancel := n.detached(ctx)
	defer cancel()
	err = n.TxRunner.RunBilling(pctx, func(repos repository.TxRepos) error {
		cur, err := repos.Notes.GetByIDForUpdate(pctx, companyID, noteID)
		if err != nil {
			return err
		}
		if cur == nil || cur.Status != entity.StatusDraft || cur.SequenceNumber != note.SequenceNumber {
			return fmt.Errorf("%w: la nota cambió durante el envío", domain.ErrConflict)
		}
		return repos.Notes.Update(pctx, note)
	})
	if err != nil {
		log.Error().Err(err).Str("number", note.FullNumber()).Str("outcome", outcome).Msg("no se pudo registrar el resultado del envío")
		return nil, err
	}
	n.afterSubmit(ctx, log, docType, companyID, note.ID, &note.DianTracking, outcome, reason)
	return sendResult(docType, note.ID, &note.DianTracking, outcome, reason), nil
}

// CheckNoteStatus consulta a la DIAN el estado de una nota enviada.
func (n *NoteIssuer) CheckNoteStatus(ctx context.Context, companyID, noteID string) (*dto.StatusResult, error) {
	note, err := n.Repos.Notes.GetByID(ctx, companyID, noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, fmt.Errorf("%w: nota %s", domain.ErrNotFound, noteID)
	}
	docType := note.Kind.DocumentType()
	switch {
	case note.Status.IsTerminal():
		return statusResult(docType, note.ID, note.CUDE, &note.DianTracking, string(note.Status), note.DIANErrors), nil
	case note.Status == entity.StatusDraft:
		return nil, fmt.Errorf("%w: la nota no ha sido enviada", domain.ErrPrecondition)
	}
	v, err, _ := n.flight.Do("note:"+note.ID, func() (any, error) {
		return n.pollNote(context.WithoutCancel(ctx), note)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dto.StatusResult), nil
}

func (n *NoteIssuer) pollNote(ctx context.Context, note *entity.Note) (*dto.StatusResult, error) {
	docType := note.Kind.DocumentType()
	log := n.docLogger(note.CompanyID, note.ID, docType)

	cfg, err := n.Repos.Configs.Get(ctx, note.CompanyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: la empresa no tiene configuración DIAN", domain.ErrConfiguration)
	}
	gctx, cancel := n.detached(ctx)
	resp, callErr := n.Gateway.CheckStatus(gctx, cfg, note.TrackID)
	cancel()
	if callErr != nil {
		log.Warn().Err(callErr).Str("track_id", note.TrackID).Msg("consulta de estado DIAN fallida")
		return statusResult(docType, note.ID, note.CUDE, &note.DianTracking, OutcomeRetryable, callErr.Error()), nil
	}
	switch resp.Outcome {
	case dian.OutcomeAccepted, dian.OutcomeRejected:
	case dian.OutcomePending:
		return statusResult(docType, note.ID, note.CUDE, &note.DianTracking, OutcomePending, resp.Reason), nil
	default:
		return statusResult(docType, note.ID, note.CUDE, &note.DianTracking, OutcomeRetryable, resp.Reason), nil
	}

	var (
		final   *entity.Note
		changed bool
	)
	err = n.TxRunner.RunBilling(ctx, func(repos repository.TxRepos) error {
		cur, err := repos.Notes.GetByIDForUpdate(ctx, note.CompanyID, note.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: nota %s", domain.ErrNotFound, note.ID)
		}
		final = cur
		if cur.Status != entity.StatusSent {
			return nil
		}
		applyStatus(&cur.DianTracking, resp)
		if cur.CUDE == "" {
			cur.CUDE = resp.DocumentKey
		}
		cur.UpdatedAt = n.Now()
		changed = true
		return repos.Notes.Update(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		n.Observer.Transition(docType, final.Status)
		log.Info().Str("number", final.FullNumber()).Str("status", string(final.Status)).Msg("estado DIAN actualizado")
		if final.Status == entity.StatusAccepted && n.Hook != nil {
			if err := n.Hook.NoteAccepted(ctx, final); err != nil {
				log.Error().Err(err).Msg("no se pudo generar el asiento contable de la nota")
			}
		}
	}
	return statusResult(docType, final.ID, final.CUDE, &final.DianTracking, string(final.Status), final.DIANErrors), nil
}

// GetNote obtiene una nota con sus líneas.
func (n *NoteIssuer) GetNote(ctx context.Context, companyID, noteID string) (*dto.NoteResponse, error) {
	note, err := n.Repos.Notes.GetByID(ctx, companyID, noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, fmt.Errorf("%w: nota %s", domain.ErrNotFound, noteID)
	}
	return toNoteResponse(note), nil
}

// ListInvoiceNotes lista las notas emitidas sobre una factura.
func (n *NoteIssuer) ListInvoiceNotes(ctx context.Context, companyID, invoiceID string) ([]dto.NoteResponse, error) {
	notes, err := n.Repos.Notes.ListByInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.NoteResponse, 0, len(notes))
	for _, note := range notes {
		out = append(out, *toNoteResponse(note))
	}
	return out, nil
}

// parentInvoice carga la factura a corregir. Solo se emiten notas sobre facturas enviadas o aceptadas.
func (n *NoteIssuer) parentInvoice(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, error) {
	inv, err := n.Repos.Invoices.GetByID(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := acceptsNotes(inv, invoiceID); err != nil {
		return nil, err
	}
	if inv.Details, err = n.Repos.Invoices.GetDetails(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func acceptsNotes(inv *entity.Invoice, invoiceID string) error {
	if inv == nil {
		return fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}
	if inv.Status != entity.StatusSent && inv.Status != entity.StatusAccepted {
		return fmt.Errorf("%w: solo se emiten notas sobre facturas enviadas o aceptadas (estado %s)",
			domain.ErrPrecondition, inv.Status)
	}
	return nil
}

func (n *NoteIssuer) newNote(parent *entity.Invoice, kind entity.NoteKind, code int, reason, description string) *entity.Note {
	now := n.Now()
	return &entity.Note{
		ID:           uuid.New().String(),
		CompanyID:    parent.CompanyID,
		InvoiceID:    parent.ID,
		Kind:         kind,
		ReasonCode:   code,
		Reason:       reason,
		Description:  description,
		Date:         now,
		DianTracking: entity.DianTracking{Status: entity.StatusDraft},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// checkCreditBalance impide acreditar más de lo facturado sumando las notas crédito vigentes.
// Corre con la factura bloqueada, en la misma transacción que guarda la nota.
func checkCreditBalance(ctx context.Context, notes repository.NoteRepository, parent *entity.Invoice, note *entity.Note) error {
	existing, err := notes.ListByInvoice(ctx, parent.CompanyID, parent.ID)
	if err != nil {
		return err
	}
	credited := note.Total
	for _, e := range existing {
		if e.Kind == entity.NoteCredit && e.Status != entity.StatusRejected && e.Status != entity.StatusVoided {
			credited = credited.Add(e.Total)
		}
	}
	if credited.Round(2).GreaterThan(parent.GrandTotal.Round(2)) {
		return fmt.Errorf("%w: las notas crédito (%s) superan el total de la factura (%s)",
			domain.ErrValidation, credited.StringFixed(2), parent.GrandTotal.StringFixed(2))
	}
	return nil
}

// mirrorLine copia una línea de factura neta de descuento.
func mirrorLine(d *entity.InvoiceDetail) *entity.NoteLine {
	return &entity.NoteLine{
		InvoiceDetailID: d.ID,
		ProductID:       d.ProductID,
		Description:     d.Description,
		Quantity:        d.Quantity,
		UnitPrice:       netUnitPrice(d),
		TaxRate:         d.TaxRate,
		Subtotal:        d.Subtotal.Sub(d.Discount),
		TaxAmount:       d.TaxAmount,
	}
}

// netUnitPrice precio unitario después del descuento de la línea.
func netUnitPrice(d *entity.InvoiceDetail) decimal.Decimal {
	if d.Discount.IsZero() || d.Quantity.IsZero() {
		return d.UnitPrice
	}
	return d.Subtotal.Sub(d.Discount).Div(d.Quantity).Round(2)
}

func toNoteResponse(n *entity.Note) *dto.NoteResponse {
	resp := &dto.NoteResponse{
		ID:            n.ID,
		InvoiceID:     n.InvoiceID,
		Kind:          string(n.Kind),
		Scope:         string(n.Scope),
		ReasonCode:    n.ReasonCode,
		ReasonName:    entity.ReasonName(n.Kind, n.ReasonCode),
		Reason:        n.Reason,
		Description:   n.Description,
		Prefix:        n.Prefix,
		Number:        n.Number,
		Date:          n.Date.Format("2006-01-02"),
		Subtotal:      n.Subtotal,
		TaxTotal:      n.TaxTotal,
		Total:         n.Total,
		Status:        string(n.Status),
		CUDE:          n.CUDE,
		QRData:        n.QRData,
		TrackID:       n.TrackID,
		DIANErrors:    n.DIANErrors,
		LastSendError: n.LastSendError,
		SendAttempts:  n.SendAttempts,
	}
	if n.HasNumber() {
		resp.FullNumber = n.FullNumber()
	}
	for _, l := range n.Lines {
		resp.Lines = append(resp.Lines, dto.NoteLineResponse{
			ID:              l.ID,
			InvoiceDetailID: l.InvoiceDetailID,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			TaxRate:         l.TaxRate,
			Subtotal:        l.Subtotal,
			TaxAmount:       l.TaxAmount,
		})
	}
	return resp
}
