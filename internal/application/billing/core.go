package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// FailedSendPolicy qué pasa con el consecutivo de un envío que falló por red.
type FailedSendPolicy string

const (
	PolicyRetain  FailedSendPolicy = "retain"  // el reintento reutiliza el número
	PolicyConsume FailedSendPolicy = "consume" // el reintento toma un número nuevo y deja un hueco registrado
)

// Resultados de envío y consulta.
const (
	OutcomeSent      = "SENT"
	OutcomeAccepted  = "ACCEPTED"
	OutcomeRejected  = "REJECTED"
	OutcomePending   = "PENDING"
	OutcomeRetryable = "RETRYABLE"
	OutcomeNotSent   = "NOT_SENT" // la nota quedó en DRAFT sin llegar a la DIAN
)

// Options parámetros del ciclo de envío.
type Options struct {
	Policy         FailedSendPolicy
	GatewayTimeout time.Duration
}

// SendOptions opciones de un envío puntual.
type SendOptions struct {
	Force bool // reintentar un documento con número y envío fallido (o atascado en curso)
}

// Dependencies dependencias compartidas por los casos de uso de facturación.
// Poller, Hook, Observer y Now son opcionales.
type Dependencies struct {
	TxRunner  BillingTxRunner
	Repos     repository.TxRepos // lecturas fuera de transacción
	Companies repository.CompanyRepository
	Customers repository.CustomerRepository
	Products  repository.ProductRepository
	Gateway   dian.Gateway
	Poller    StatusPoller
	Hook      AccountingHook
	Observer  Observer
	Logger    zerolog.Logger
	Options   Options
	Now       func() time.Time
}

type core struct {
	Dependencies
	flight singleflight.Group
}

func newCore(d Dependencies) *core {
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Options.Policy == "" {
		d.Options.Policy = PolicyRetain
	}
	if d.Options.GatewayTimeout <= 0 {
		d.Options.GatewayTimeout = 30 * time.Second
	}
	return &core{Dependencies: d}
}

// detached contexto para hablar con la DIAN y guardar su respuesta: sobrevive a la cancelación del llamador.
func (c *core) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.Options.GatewayTimeout)
}

func (c *core) docLogger(companyID, documentID string, docType entity.DocumentType) zerolog.Logger {
	return c.Logger.With().
		Str("company_id", companyID).
		Str("document_id", documentID).
		Str("family", string(docType)).
		Logger()
}

// readyConfig carga la configuración DIAN con sus rangos y exige que esté completa.
func (c *core) readyConfig(ctx context.Context, repos repository.TxRepos, companyID string) (*entity.DianConfig, error) {
	cfg, err := repos.Configs.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: la empresa no tiene configuración DIAN", domain.ErrConfiguration)
	}
	if cfg.Resolutions, err = repos.Resolutions.ListByCompany(ctx, companyID); err != nil {
		return nil, err
	}
	now := c.Now()
	if !cfg.IsReady(now) {
		return nil, fmt.Errorf("%w: falta %s", domain.ErrConfiguration, strings.Join(cfg.Missing(now), ", "))
	}
	return cfg, nil
}

// reserveNumber aplica las reglas de reintento y, si hace falta, toma el siguiente consecutivo de la familia.
// Corre dentro de la transacción que tiene bloqueado el documento.
func (c *core) reserveNumber(
	ctx context.Context,
	repos repository.TxRepos,
	companyID string,
	docType entity.DocumentType,
	tr *entity.DianTracking,
	force bool,
	log zerolog.Logger,
) (*entity.BillingResolution, error) {
	if tr.HasNumber() && !force {
		if tr.LastSendError == "" {
			return nil, fmt.Errorf("%w: hay un envío en curso para %s", domain.ErrPrecondition, tr.FullNumber())
		}
		return nil, fmt.Errorf("%w: el envío anterior de %s falló (%s); reintente con force",
			domain.ErrPrecondition, tr.FullNumber(), tr.LastSendError)
	}
	res, err := repos.Resolutions.GetActive(ctx, companyID, docType)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: no hay rango de numeración activo para %s", domain.ErrConfiguration, docType)
	}
	if tr.HasNumber() {
		if c.Options.Policy == PolicyRetain {
			return res, nil
		}
		log.Warn().
			Str("event", "sequence_gap").
			Str("discarded_number", tr.FullNumber()).
			Str("last_send_error", tr.LastSendError).
			Msg("consecutivo descartado por reintento")
		c.Observer.NumberDiscarded(docType)
	}
	n, err := repos.Resolutions.NextNumber(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	tr.AssignNumber(res.Prefix, n)
	c.Observer.NumberAllocated(docType)
	return res, nil
}

// applySubmit traduce la respuesta del envío al seguimiento del documento.
func applySubmit(tr *entity.DianTracking, resp *dian.Response, callErr error) (outcome, reason string) {
	switch {
	case callErr != nil:
		tr.LastSendError = callErr.Error()
		return OutcomeRetryable, tr.LastSendError
	case resp.Outcome == dian.OutcomeAccepted || resp.Outcome == dian.OutcomePending:
		tr.Status = entity.StatusSent
		tr.TrackID = resp.TrackingID
		tr.XMLSigned, tr.QRData = resp.SignedXML, resp.QRData
		tr.DIANErrors, tr.LastSendError = "", ""
		return OutcomeSent, ""
	case resp.Outcome == dian.OutcomeRejected:
		tr.Status = entity.StatusRejected
		tr.TrackID = resp.TrackingID
		tr.XMLSigned, tr.QRData = resp.SignedXML, resp.QRData
		tr.DIANErrors, tr.LastSendError = resp.Reason, ""
		return OutcomeRejected, resp.Reason
	default:
		reason = resp.Reason
		if reason == "" {
			reason = "la DIAN no devolvió un resultado"
		}
		tr.LastSendError = reason
		return OutcomeRetryable, reason
	}
}

// applyStatus aplica un resultado definitivo de la consulta de estado.
func applyStatus(tr *entity.DianTracking, resp *dian.Response) {
	if resp.Outcome == dian.OutcomeAccepted {
		tr.Status = entity.StatusAccepted
		tr.DIANErrors = ""
		return
	}
	tr.Status = entity.StatusRejected
	tr.DIANErrors = resp.Reason
}

// afterSubmit registra la transición y programa la consulta de estado de los documentos recibidos.
func (c *core) afterSubmit(ctx context.Context, log zerolog.Logger, docType entity.DocumentType, companyID, documentID string, tr *entity.DianTracking, outcome, reason string) {
	switch outcome {
	case OutcomeSent:
		c.Observer.Transition(docType, entity.StatusSent)
		log.Info().Str("number", tr.FullNumber()).Str("track_id", tr.TrackID).Msg("documento recibido por la DIAN")
		if c.Poller == nil {
			return
		}
		if err := c.Poller.ScheduleStatusCheck(context.WithoutCancel(ctx), companyID, documentID, docType); err != nil {
			log.Error().Err(err).Msg("no se pudo programar la consulta de estado")
		}
	case OutcomeRejected:
		c.Observer.Transition(docType, entity.StatusRejected)
		log.Warn().Str("number", tr.FullNumber()).Str("dian_errors", reason).Msg("documento rechazado por la DIAN")
	default:
		log.Warn().Str("number", tr.FullNumber()).Int("attempt", tr.SendAttempts).Str("reason", reason).Msg("envío a la DIAN fallido; reintentable")
	}
}

func sendResult(docType entity.DocumentType, id string, tr *entity.DianTracking, outcome, reason string) *dto.SendResult {
	return &dto.SendResult{
		DocumentID:   id,
		DocumentType: string(docType),
		Number:       tr.FullNumber(),
		Status:       string(tr.Status),
		Outcome:      outcome,
		TrackID:      tr.TrackID,
		Reason:       reason,
		Attempts:     tr.SendAttempts,
	}
}

func statusResult(docType entity.DocumentType, id, key string, tr *entity.DianTracking, outcome, reason string) *dto.StatusResult {
	return &dto.StatusResult{
		DocumentID:   id,
		DocumentType: string(docType),
		Status:       string(tr.Status),
		Outcome:      outcome,
		TrackID:      tr.TrackID,
		DocumentKey:  key,
		Reason:       reason,
	}
}

// customerFor devuelve el adquiriente; sin cliente es consumidor final.
func (c *core) customerFor(ctx context.Context, companyID, customerID string) (*entity.Customer, error) {
	if customerID == "" {
		return entity.FinalConsumer(), nil
	}
	cust, err := c.Customers.GetByID(ctx, companyID, customerID)
	if err != nil {
		return nil, err
	}
	if cust == nil {
		return nil, fmt.Errorf("%w: el cliente %s no existe", domain.ErrValidation, customerID)
	}
	return cust, nil
}

func (c *core) company(ctx context.Context, companyID string) (*entity.Company, error) {
	company, err := c.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("%w: empresa %s", domain.ErrNotFound, companyID)
	}
	return company, nil
}
