package dian

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stockflow-api/internal/domain"
	domdian "github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/dian/signer"
	pkgdian "github.com/jhoicas/stockflow-api/pkg/dian"
)

var tracer = otel.Tracer("stockflow/dian")

// mockTrackPrefix TrackID de los envíos simulados en ambiente dev.
const mockTrackPrefix = "MOCK-"

// Gateway implementa domdian.Gateway:
//
//	CUFE/CUDE → XML UBL 2.1 → Firma XAdES-EPES → ZIP → SOAP
//
// En dev genera y firma (si hay certificado) pero no llama al WS; responde ACCEPTED.
type Gateway struct {
	builder *XMLBuilderService
	signer  pkgdian.Signer
	client  *SOAPDIANClient
	certs   *certCache
	maxEnv  string
	log     zerolog.Logger
}

// NewGateway construye el gateway sobre el cliente SOAP.
func NewGateway(client *SOAPDIANClient, log zerolog.Logger) *Gateway {
	return &Gateway{
		builder: NewXMLBuilderService(),
		signer:  signer.NewDigitalSignatureService(),
		client:  client,
		certs:   newCertCache(),
		log:     log.With().Str("component", "dian_gateway").Logger(),
	}
}

// LimitEnvironment fija el ambiente máximo del proceso. Un tenant en prod con tope test se envía
// a habilitación; con tope dev nunca sale al WS.
func (g *Gateway) LimitEnvironment(env string) *Gateway {
	g.maxEnv = env
	return g
}

var envRank = map[string]int{entity.DianEnvDev: 0, entity.DianEnvTest: 1, entity.DianEnvProd: 2}

// capped devuelve la configuración con el ambiente recortado al tope. No modifica cfg.
func (g *Gateway) capped(cfg *entity.DianConfig) *entity.DianConfig {
	max, ok := envRank[g.maxEnv]
	if !ok || envRank[cfg.Environment] <= max {
		return cfg
	}
	c := *cfg
	c.Environment = g.maxEnv
	return &c
}

// Submit prepara y entrega el documento. Los errores de preparación (certificado, XML) vuelven
// como OutcomeError; solo los fallos de red se devuelven como error.
func (g *Gateway) Submit(ctx context.Context, sub *domdian.Submission) (_ *domdian.Response, err error) {
	if cfg := g.capped(sub.Config); cfg != sub.Config {
		s := *sub
		s.Config = cfg
		sub = &s
	}
	ctx, span := tracer.Start(ctx, "dian.submit", trace.WithAttributes(
		attribute.String("dian.kind", string(sub.Kind)),
		attribute.String("dian.number", sub.FullNumber()),
		attribute.String("dian.environment", sub.Config.Environment),
	))
	defer func() { endSpan(span, err) }()

	key, err := documentKey(sub)
	if err != nil {
		return serviceError(err), nil
	}
	xmlBytes, err := g.builder.Build(sub, key)
	if err != nil {
		return serviceError(err), nil
	}
	signed, err := g.sign(sub.Config, xmlBytes)
	if err != nil {
		return serviceError(err), nil
	}
	resp := &domdian.Response{
		DocumentKey: key,
		SignedXML:   string(signed),
		QRData:      qrData(sub, key),
	}
	log := g.log.With().Str("document_id", sub.DocumentID).Str("number", sub.FullNumber()).Logger()

	xmlName, zipName := filenames(sub)
	zipBytes, err := compressXMLToZip(signed, xmlName)
	if err != nil {
		return serviceError(err), nil
	}

	if sub.Config.Environment == entity.DianEnvDev {
		resp.TrackingID = mockTrackPrefix + uuid.New().String()
		resp.Outcome = domdian.OutcomeAccepted
		log.Info().Str("zip", zipName).Int("bytes", len(zipBytes)).Msg("[DEV] envío DIAN simulado")
		return resp, nil
	}

	result, err := g.client.SendDocument(ctx, zipBytes, zipName, sub.Config.Environment, sub.Config.TestSetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayTransport, err)
	}
	resp.TrackingID = result.TrackID
	switch {
	case result.Fault != "":
		resp.Outcome = domdian.OutcomeError
		resp.Reason = result.Fault
	case result.Rejected():
		resp.Outcome = domdian.OutcomeRejected
		resp.Reason = strings.Join(result.Errors, "; ")
	default:
		// Recibido; la validación es asíncrona y se consulta con GetStatusZip.
		resp.Outcome = domdian.OutcomePending
	}
	log.Info().Str("track_id", resp.TrackingID).Str("outcome", string(resp.Outcome)).Msg("documento entregado a la DIAN")
	return resp, nil
}

// CheckStatus consulta GetStatusZip. "00" es válido, "99" rechazado y cualquier otro código sigue en proceso.
func (g *Gateway) CheckStatus(ctx context.Context, cfg *entity.DianConfig, trackingID string) (_ *domdian.Response, err error) {
	cfg = g.capped(cfg)
	ctx, span := tracer.Start(ctx, "dian.check_status", trace.WithAttributes(
		attribute.String("dian.track_id", trackingID),
		attribute.String("dian.environment", cfg.Environment),
	))
	defer func() { endSpan(span, err) }()

	if cfg.Environment == entity.DianEnvDev || strings.HasPrefix(trackingID, mockTrackPrefix) {
		return &domdian.Response{TrackingID: trackingID, Outcome: domdian.OutcomeAccepted}, nil
	}
	st, err := g.client.GetStatusZip(ctx, trackingID, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayTransport, err)
	}
	resp := &domdian.Response{TrackingID: trackingID, DocumentKey: st.DocumentKey}
	switch {
	case st.Fault != "":
		resp.Outcome = domdian.OutcomeError
		resp.Reason = st.Fault
	case st.Code == statusCodeValid:
		resp.Outcome = domdian.OutcomeAccepted
	case st.Code == statusCodeRejected:
		resp.Outcome = domdian.OutcomeRejected
		resp.Reason = strings.Join(append([]string{st.Description}, st.Errors...), "; ")
	default:
		resp.Outcome = domdian.OutcomePending
		resp.Reason = st.Description
	}
	return resp, nil
}

// sign firma con el certificado del tenant. En dev sin certificado el XML va sin firma.
func (g *Gateway) sign(cfg *entity.DianConfig, xmlBytes []byte) ([]byte, error) {
	if cfg.Environment == entity.DianEnvDev && cfg.CertificatePath == "" {
		return xmlBytes, nil
	}
	cert, err := g.certs.load(cfg)
	if err != nil {
		return nil, err
	}
	return g.signer.Sign(xmlBytes, cert)
}

func serviceError(err error) *domdian.Response {
	return &domdian.Response{Outcome: domdian.OutcomeError, Reason: err.Error()}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

var _ domdian.Gateway = (*Gateway)(nil)
