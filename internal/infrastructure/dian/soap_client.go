package dian

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

const (
	soapURLTest = "https://vpfe-hab.dian.gov.co/WcfDianCustomerServices.svc"
	soapURLProd = "https://vpfe.dian.gov.co/WcfDianCustomerServices.svc"

	soapNS         = "http://www.w3.org/2003/05/soap-envelope"
	soapNSTempuri  = "http://tempuri.org/"
	soapActionBase = "http://tempuri.org/IWcfDianCustomerServices/"
)

// Códigos de GetStatusZip.
const (
	statusCodeValid    = "00"
	statusCodeRejected = "99"
)

// Endpoints URLs del WS por ambiente. Vacío usa las oficiales.
type Endpoints struct {
	Test string
	Prod string
}

func (e Endpoints) url(env string) (string, error) {
	switch env {
	case entity.DianEnvProd:
		if e.Prod != "" {
			return e.Prod, nil
		}
		return soapURLProd, nil
	case entity.DianEnvTest:
		if e.Test != "" {
			return e.Test, nil
		}
		return soapURLTest, nil
	}
	return "", fmt.Errorf("soap: entorno desconocido %q (usar 'test' o 'prod')", env)
}

// SubmitResult resultado de la entrega al WS DIAN.
type SubmitResult struct {
	TrackID string // ZipKey
	Fault   string // SOAP Fault o respuesta ilegible; el servicio falló
	Errors  []string
}

// Rejected informa si la DIAN devolvió errores de validación.
func (r *SubmitResult) Rejected() bool { return r.Fault == "" && len(r.Errors) > 0 }

// StatusResult resultado de GetStatusZip.
type StatusResult struct {
	Code        string
	Description string
	DocumentKey string
	Fault       string
	Errors      []string
}

// SOAPDIANClient cliente del WS SOAP de la DIAN sobre net/http.
type SOAPDIANClient struct {
	httpClient *http.Client
	endpoints  Endpoints
}

// NewSOAPDIANClient construye el cliente. El timeout de red lo pone el contexto de cada llamada;
// el del http.Client es solo un tope.
func NewSOAPDIANClient(endpoints Endpoints, maxTimeout time.Duration) *SOAPDIANClient {
	if maxTimeout <= 0 {
		maxTimeout = 60 * time.Second
	}
	return &SOAPDIANClient{
		httpClient: &http.Client{Timeout: maxTimeout},
		endpoints:  endpoints,
	}
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	XmlnsS  string   `xml:"xmlns:soap,attr"`
	XmlnsW  string   `xml:"xmlns:wcf,attr"`
	Header  struct{} `xml:"soap:Header"`
	Body    soapBody `xml:"soap:Body"`
}

type soapBody struct {
	Content any
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soap:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type sendBillAsyncBody struct {
	XMLName     xml.Name `xml:"wcf:SendBillAsync"`
	FileName    string   `xml:"wcf:fileName"`
	ContentFile string   `xml:"wcf:contentFile"`
}

type sendTestSetAsyncBody struct {
	XMLName     xml.Name `xml:"wcf:SendTestSetAsync"`
	FileName    string   `xml:"wcf:fileName"`
	ContentFile string   `xml:"wcf:contentFile"`
	TestSetID   string   `xml:"wcf:testSetId"`
}

type getStatusZipBody struct {
	XMLName xml.Name `xml:"wcf:GetStatusZip"`
	TrackID string   `xml:"wcf:trackId"`
}

type soapResponseEnvelope struct {
	Body struct {
		SendBill    *struct{ Result uploadResult `xml:"SendBillAsyncResult"` }    `xml:"SendBillAsyncResponse"`
		SendTestSet *struct{ Result uploadResult `xml:"SendTestSetAsyncResult"` } `xml:"SendTestSetAsyncResponse"`
		GetStatus   *struct {
			Result struct {
				Responses []dianResponse `xml:"DianResponse"`
			} `xml:"GetStatusZipResult"`
		} `xml:"GetStatusZipResponse"`
		Fault *soapFault `xml:"Fault"`
	} `xml:"Body"`
}

type uploadResult struct {
	ZipKey string `xml:"ZipKey"`
	Errors []struct {
		Message string `xml:"ProcessedMessage"`
	} `xml:"ErrorMessageList>XmlParamsResponseTrackId"`
}

type dianResponse struct {
	IsValid           bool     `xml:"IsValid"`
	StatusCode        string   `xml:"StatusCode"`
	StatusDescription string   `xml:"StatusDescription"`
	StatusMessage     string   `xml:"StatusMessage"`
	XMLDocumentKey    string   `xml:"XmlDocumentKey"`
	Errors            []string `xml:"ErrorMessage>string"`
}

type soapFault struct {
	Code   string `xml:"Code>Value"`
	Reason string `xml:"Reason>Text"`
	// SOAP 1.1
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

func (f *soapFault) String() string {
	code, reason := f.Code, f.Reason
	if code == "" {
		code, reason = f.FaultCode, f.FaultString
	}
	return fmt.Sprintf("SOAP Fault [%s]: %s", code, reason)
}

// SendDocument envía el ZIP: SendTestSetAsync en habilitación, SendBillAsync en producción.
func (c *SOAPDIANClient) SendDocument(ctx context.Context, zipBytes []byte, filename, env, testSetID string) (*SubmitResult, error) {
	content := base64.StdEncoding.EncodeToString(zipBytes)
	var (
		action string
		body   any
	)
	if env == entity.DianEnvTest {
		action = "SendTestSetAsync"
		body = &sendTestSetAsyncBody{FileName: filename, ContentFile: content, TestSetID: testSetID}
	} else {
		action = "SendBillAsync"
		body = &sendBillAsyncBody{FileName: filename, ContentFile: content}
	}
	cr, err := c.call(ctx, env, action, body)
	if err != nil {
		return nil, err
	}
	if cr.fault != "" {
		return &SubmitResult{Fault: cr.fault}, nil
	}
	b := cr.resp.Body
	var res *uploadResult
	switch {
	case b.SendBill != nil:
		res = &b.SendBill.Result
	case b.SendTestSet != nil:
		res = &b.SendTestSet.Result
	default:
		return &SubmitResult{Fault: "respuesta SOAP vacía o inesperada"}, nil
	}
	out := &SubmitResult{TrackID: res.ZipKey}
	for _, e := range res.Errors {
		if e.Message != "" {
			out.Errors = append(out.Errors, e.Message)
		}
	}
	return out, nil
}

// GetStatusZip consulta el estado de validación de un envío por su TrackID.
func (c *SOAPDIANClient) GetStatusZip(ctx context.Context, trackID, env string) (*StatusResult, error) {
	cr, err := c.call(ctx, env, "GetStatusZip", &getStatusZipBody{TrackID: trackID})
	if err != nil {
		return nil, err
	}
	if cr.fault != "" {
		return &StatusResult{Fault: cr.fault}, nil
	}
	gs := cr.resp.Body.GetStatus
	if gs == nil || len(gs.Result.Responses) == 0 {
		return &StatusResult{Fault: "respuesta GetStatusZip vacía"}, nil
	}
	r := gs.Result.Responses[0]
	desc := r.StatusDescription
	if r.StatusMessage != "" && r.StatusMessage != desc {
		desc = strings.TrimSpace(desc + ". " + r.StatusMessage)
	}
	return &StatusResult{
		Code:        r.StatusCode,
		Description: desc,
		DocumentKey: r.XMLDocumentKey,
		Errors:      r.Errors,
	}, nil
}

type callResult struct {
	resp  soapResponseEnvelope
	fault string
}

// call arma el envelope SOAP 1.2, hace el POST y decodifica la respuesta.
// Solo los fallos de red y de contexto se devuelven como error.
func (c *SOAPDIANClient) call(ctx context.Context, env, action string, body any) (*callResult, error) {
	url, err := c.endpoints.url(env)
	if err != nil {
		return nil, err
	}
	payload, err := xml.Marshal(soapEnvelope{XmlnsS: soapNS, XmlnsW: soapNSTempuri, Body: soapBody{Content: body}})
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", `application/soap+xml; charset=utf-8; action="`+soapActionBase+action+`"`)
	req.Header.Set("SOAPAction", soapActionBase+action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}
	out := &callResult{}
	if err := xml.Unmarshal(raw, &out.resp); err != nil {
		out.fault = fmt.Sprintf("HTTP %d: respuesta SOAP ilegible", resp.StatusCode)
		return out, nil
	}
	if f := out.resp.Body.Fault; f != nil {
		out.fault = f.String()
	} else if resp.StatusCode >= http.StatusBadRequest {
		out.fault = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return out, nil
}
