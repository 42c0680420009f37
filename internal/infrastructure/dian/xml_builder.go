package dian

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	domdian "github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/dian/signer"
	pkgdian "github.com/jhoicas/stockflow-api/pkg/dian"
)

// Namespaces oficiales UBL 2.1 y DIAN (Anexo Técnico 1.9).
const (
	NsCac   = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc   = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt   = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsSts   = "dian:gov:co:facturaelectronica:v1"
	NsDs    = "http://www.w3.org/2000/09/xmldsig#"
	NsXades = "http://uri.etsi.org/01903/v1.3.2#"
	nsXsi   = "http://www.w3.org/2001/XMLSchema-instance"
)

const currency = "COP"

// XMLBuilderService construye el XML UBL 2.1 de facturas y notas (sin firma XAdES).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// ublWriter escribe elementos con prefijo y guarda el primer error del encoder.
type ublWriter struct {
	enc *xml.Encoder
	err error
}

func (w *ublWriter) token(t xml.Token) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(t)
	}
}

func (w *ublWriter) open(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *ublWriter) close(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *ublWriter) leaf(name, value string, attrs ...xml.Attr) {
	w.open(name, attrs...)
	w.token(xml.CharData(value))
	w.close(name)
}

func (w *ublWriter) amount(name string, d decimal.Decimal) {
	w.leaf(name, formatDecimal(d), attr("currencyID", currency))
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// Build genera el documento según su tipo. key es el CUFE o CUDE ya calculado.
func (s *XMLBuilderService) Build(sub *domdian.Submission, key string) ([]byte, error) {
	if sub == nil || sub.Supplier == nil || sub.Customer == nil || sub.Config == nil {
		return nil, fmt.Errorf("dian: faltan emisor, adquiriente o configuración en el documento")
	}
	p, ok := profiles[sub.Kind]
	if !ok {
		return nil, fmt.Errorf("dian: tipo de documento %q no soportado", sub.Kind)
	}
	if sub.Kind != domdian.KindInvoice && sub.Reference == nil {
		return nil, fmt.Errorf("dian: la nota %s no referencia factura", sub.FullNumber())
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	w := &ublWriter{enc: enc}

	// Id en la raíz para la Reference URI de la firma.
	w.open(p.root,
		attr("Id", signer.DocumentElementID),
		attr("xmlns", p.namespace),
		attr("xmlns:cac", NsCac),
		attr("xmlns:cbc", NsCbc),
		attr("xmlns:ds", NsDs),
		attr("xmlns:ext", NsExt),
		attr("xmlns:sts", NsSts),
		attr("xmlns:xades", NsXades),
		attr("xmlns:xsi", nsXsi),
		attr("xsi:schemaLocation", p.schemaLocation),
	)
	// ext:UBLExtensions debe ser el primer hijo: el firmador lo busca ahí.
	s.writeUBLExtensions(w, sub)

	w.leaf("cbc:UBLVersionID", "UBL 2.1")
	w.leaf("cbc:CustomizationID", p.customization)
	w.leaf("cbc:ProfileID", p.profileID)
	w.leaf("cbc:ProfileExecutionID", sub.Config.AmbientCode())
	w.leaf("cbc:ID", sub.FullNumber())
	w.leaf("cbc:UUID", key, attr("schemeID", sub.Config.AmbientCode()), attr("schemeName", p.keyScheme))
	w.leaf("cbc:IssueDate", sub.IssueDate.Format("2006-01-02"))
	w.leaf("cbc:IssueTime", sub.IssueDate.Format("15:04:05-07:00"))
	if p.typeCodeTag != "" {
		w.leaf("cbc:"+p.typeCodeTag, string(sub.Kind))
	}
	w.leaf("cbc:DocumentCurrencyCode", currency)
	w.leaf("cbc:LineCountNumeric", strconv.Itoa(len(sub.Lines)))

	if ref := sub.Reference; ref != nil {
		w.open("cac:DiscrepancyResponse")
		w.leaf("cbc:ReferenceID", ref.Number)
		w.leaf("cbc:ResponseCode", strconv.Itoa(sub.ReasonCode))
		w.leaf("cbc:Description", sub.Reason)
		w.close("cac:DiscrepancyResponse")

		w.open("cac:BillingReference")
		w.open("cac:InvoiceDocumentReference")
		w.leaf("cbc:ID", ref.Number)
		w.leaf("cbc:UUID", ref.CUFE, attr("schemeName", "CUFE-SHA384"))
		w.leaf("cbc:IssueDate", ref.IssueDate.Format("2006-01-02"))
		w.close("cac:InvoiceDocumentReference")
		w.close("cac:BillingReference")
	}

	s.writeSupplierParty(w, sub.Supplier)
	s.writeCustomerParty(w, sub.Customer)
	s.writePaymentMeans(w)
	s.writeTaxTotal(w, sub.Lines)
	s.writeMonetaryTotal(w, p.totalTag, sub)
	for i, line := range sub.Lines {
		s.writeLine(w, p, i+1, line)
	}

	w.close(p.root)
	if w.err != nil {
		return nil, fmt.Errorf("dian: generar XML: %w", w.err)
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeUBLExtensions extensión 1: datos DIAN (la resolución solo aplica a facturas).
// Extensión 2: ExtensionContent vacío donde el firmador inyecta ds:Signature.
func (s *XMLBuilderService) writeUBLExtensions(w *ublWriter, sub *domdian.Submission) {
	w.open("ext:UBLExtensions")

	w.open("ext:UBLExtension")
	w.open("ext:ExtensionContent")
	w.open("sts:DianExtensions")
	if res := sub.Resolution; res != nil && sub.Kind == domdian.KindInvoice {
		w.open("sts:InvoiceControl")
		w.leaf("sts:InvoiceAuthorization", res.ResolutionNumber)
		w.open("sts:AuthorizationPeriod")
		w.leaf("cbc:StartDate", res.DateFrom.Format("2006-01-02"))
		w.leaf("cbc:EndDate", res.DateTo.Format("2006-01-02"))
		w.close("sts:AuthorizationPeriod")
		w.open("sts:AuthorizedInvoices")
		w.leaf("sts:Prefix", res.Prefix)
		w.leaf("sts:From", strconv.FormatInt(res.RangeFrom, 10))
		w.leaf("sts:To", strconv.FormatInt(res.RangeTo, 10))
		w.close("sts:AuthorizedInvoices")
		w.close("sts:InvoiceControl")
	}
	if sub.Config.SoftwareID != "" {
		w.open("sts:SoftwareProvider")
		w.leaf("sts:ProviderID", normalizeNIT(sub.Supplier.NIT))
		w.leaf("sts:SoftwareID", sub.Config.SoftwareID)
		w.close("sts:SoftwareProvider")
	}
	w.close("sts:DianExtensions")
	w.close("ext:ExtensionContent")
	w.close("ext:UBLExtension")

	w.open("ext:UBLExtension")
	w.open("ext:ExtensionContent")
	w.close("ext:ExtensionContent")
	w.close("ext:UBLExtension")

	w.close("ext:UBLExtensions")
}

func (s *XMLBuilderService) writeSupplierParty(w *ublWriter, c *entity.Company) {
	w.open("cac:AccountingSupplierParty")
	w.leaf("cbc:AdditionalAccountID", "1") // persona jurídica
	w.open("cac:Party")
	w.open("cac:PartyName")
	w.leaf("cbc:Name", c.Name)
	w.close("cac:PartyName")
	if c.Address != "" {
		w.open("cac:PhysicalLocation")
		w.open("cac:Address")
		w.open("cac:AddressLine")
		w.leaf("cbc:Line", c.Address)
		w.close("cac:AddressLine")
		w.close("cac:Address")
		w.close("cac:PhysicalLocation")
	}
	writePartyTaxScheme(w, c.Name, c.NIT, pkgdian.IdentificationTypeNIT)
	if c.Email != "" {
		w.open("cac:Contact")
		w.leaf("cbc:ElectronicMail", c.Email)
		w.close("cac:Contact")
	}
	w.close("cac:Party")
	w.close("cac:AccountingSupplierParty")
}

func (s *XMLBuilderService) writeCustomerParty(w *ublWriter, c *entity.Customer) {
	idType := c.IdentificationType
	if idType == "" {
		idType = pkgdian.IdentificationTypeFor(c.TaxID)
	}
	accountID := "2" // persona natural
	if idType == pkgdian.IdentificationTypeNIT {
		accountID = "1"
	}
	w.open("cac:AccountingCustomerParty")
	w.leaf("cbc:AdditionalAccountID", accountID)
	w.open("cac:Party")
	w.open("cac:PartyIdentification")
	number, _ := splitTaxID(c.TaxID, idType)
	w.leaf("cbc:ID", number, attr("schemeName", idType))
	w.close("cac:PartyIdentification")
	w.open("cac:PartyName")
	w.leaf("cbc:Name", c.Name)
	w.close("cac:PartyName")
	writePartyTaxScheme(w, c.Name, c.TaxID, idType)
	if c.Email != "" {
		w.open("cac:Contact")
		w.leaf("cbc:ElectronicMail", c.Email)
		w.close("cac:Contact")
	}
	w.close("cac:Party")
	w.close("cac:AccountingCustomerParty")
}

func writePartyTaxScheme(w *ublWriter, name, taxID, idType string) {
	number, dv := splitTaxID(taxID, idType)
	attrs := []xml.Attr{attr("schemeAgencyID", "195"), attr("schemeName", idType)}
	if dv != "" {
		attrs = append(attrs, attr("schemeID", dv))
	}
	w.open("cac:PartyTaxScheme")
	w.leaf("cbc:RegistrationName", name)
	w.leaf("cbc:CompanyID", number, attrs...)
	w.open("cac:TaxScheme")
	w.leaf("cbc:ID", pkgdian.TaxCodeIVA)
	w.leaf("cbc:Name", "IVA")
	w.close("cac:TaxScheme")
	w.close("cac:PartyTaxScheme")
}

func (s *XMLBuilderService) writePaymentMeans(w *ublWriter) {
	w.open("cac:PaymentMeans")
	w.leaf("cbc:ID", pkgdian.PaymentFormContado)
	w.leaf("cbc:PaymentMeansCode", pkgdian.PaymentMethodEfectivo)
	w.close("cac:PaymentMeans")
}

type taxGroup struct {
	rate    decimal.Decimal
	taxable decimal.Decimal
	tax     decimal.Decimal
}

// groupTaxes agrupa base e impuesto por tarifa, ordenado por tarifa ascendente.
func groupTaxes(lines []domdian.Line) []taxGroup {
	byRate := map[string]*taxGroup{}
	for _, l := range lines {
		k := l.TaxRate.String()
		g, ok := byRate[k]
		if !ok {
			g = &taxGroup{rate: l.TaxRate}
			byRate[k] = g
		}
		g.taxable = g.taxable.Add(l.Subtotal.Sub(l.Discount))
		g.tax = g.tax.Add(l.TaxAmount)
	}
	out := make([]taxGroup, 0, len(byRate))
	for _, g := range byRate {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rate.LessThan(out[j].rate) })
	return out
}

func (s *XMLBuilderService) writeTaxTotal(w *ublWriter, lines []domdian.Line) {
	groups := groupTaxes(lines)
	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.tax)
	}
	w.open("cac:TaxTotal")
	w.amount("cbc:TaxAmount", total)
	for _, g := range groups {
		writeTaxSubtotal(w, g.taxable, g.tax, g.rate)
	}
	w.close("cac:TaxTotal")
}

func writeTaxSubtotal(w *ublWriter, taxable, tax, rate decimal.Decimal) {
	w.open("cac:TaxSubtotal")
	w.amount("cbc:TaxableAmount", taxable)
	w.amount("cbc:TaxAmount", tax)
	w.open("cac:TaxCategory")
	w.leaf("cbc:Percent", formatDecimal(rate))
	w.open("cac:TaxScheme")
	w.leaf("cbc:ID", pkgdian.TaxCodeIVA)
	w.leaf("cbc:Name", "IVA")
	w.close("cac:TaxScheme")
	w.close("cac:TaxCategory")
	w.close("cac:TaxSubtotal")
}

func (s *XMLBuilderService) writeMonetaryTotal(w *ublWriter, tag string, sub *domdian.Submission) {
	net := sub.Subtotal.Sub(sub.DiscountTotal)
	w.open("cac:" + tag)
	w.amount("cbc:LineExtensionAmount", net)
	w.amount("cbc:TaxExclusiveAmount", net)
	w.amount("cbc:TaxInclusiveAmount", net.Add(sub.TaxTotal))
	w.amount("cbc:PayableAmount", sub.Total)
	w.close("cac:" + tag)
}

func (s *XMLBuilderService) writeLine(w *ublWriter, p profile, lineNum int, line domdian.Line) {
	unitCode := line.UnitCode
	if unitCode == "" {
		unitCode = pkgdian.UnitUnit
	}
	net := line.Subtotal.Sub(line.Discount)
	w.open("cac:" + p.lineTag)
	w.leaf("cbc:ID", strconv.Itoa(lineNum))
	w.leaf("cbc:"+p.quantityTag, formatDecimal(line.Quantity), attr("unitCode", unitCode))
	w.amount("cbc:LineExtensionAmount", net)
	if line.Discount.IsPositive() {
		w.open("cac:AllowanceCharge")
		w.leaf("cbc:ID", "1")
		w.leaf("cbc:ChargeIndicator", "false")
		w.amount("cbc:Amount", line.Discount)
		w.amount("cbc:BaseAmount", line.Subtotal)
		w.close("cac:AllowanceCharge")
	}
	w.open("cac:TaxTotal")
	w.amount("cbc:TaxAmount", line.TaxAmount)
	writeTaxSubtotal(w, net, line.TaxAmount, line.TaxRate)
	w.close("cac:TaxTotal")

	w.open("cac:Item")
	desc := line.Description
	if desc == "" {
		desc = "Ítem " + strconv.Itoa(lineNum)
	}
	w.leaf("cbc:Description", desc)
	if line.Code != "" {
		w.open("cac:SellersItemIdentification")
		w.leaf("cbc:ID", line.Code)
		w.close("cac:SellersItemIdentification")
	}
	w.close("cac:Item")

	w.open("cac:Price")
	w.amount("cbc:PriceAmount", line.UnitPrice)
	w.leaf("cbc:BaseQuantity", "1", attr("unitCode", unitCode))
	w.close("cac:Price")
	w.close("cac:" + p.lineTag)
}

// splitTaxID separa número y DV. Solo el NIT lleva dígito de verificación; si no viene se calcula.
func splitTaxID(taxID, idType string) (number, dv string) {
	if idType != pkgdian.IdentificationTypeNIT {
		return normalizeNIT(taxID), ""
	}
	number, dv = pkgdian.SplitNIT(taxID)
	if dv == "" {
		if d, err := pkgdian.ComputeNITVerificationDigit(number); err == nil {
			dv = string(d)
		}
	}
	return number, dv
}

func normalizeNIT(nit string) string {
	var out []byte
	for _, b := range []byte(nit) {
		if b >= '0' && b <= '9' {
			out = append(out, b)
		}
	}
	return string(out)
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
