package dian

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	domdian "github.com/jhoicas/stockflow-api/internal/domain/dian"
)

const qrBaseURL = "https://catalogo-vpfe.dian.gov.co/document/searchqr?documentkey="

var keyCalculator = domdian.NewCufeCalculatorService()

// documentKey calcula el CUFE de una factura o el CUDE de una nota.
// ValFac es el valor antes de impuestos, neto de descuentos.
func documentKey(sub *domdian.Submission) (string, error) {
	if sub.Supplier == nil || sub.Customer == nil || sub.Config == nil {
		return "", errors.New("dian: se requieren emisor, adquiriente y configuración para el CUFE/CUDE")
	}
	net := sub.Subtotal.Sub(sub.DiscountTotal)
	if sub.Kind == domdian.KindInvoice {
		return keyCalculator.Calculate(&domdian.CufeParams{
			NumFac:    sub.FullNumber(),
			FecFac:    sub.IssueDate.Format("2006-01-02"),
			ValFac:    net,
			ValImp_01: sub.TaxTotal,
			ValImp_04: decimal.Zero,
			ValImp_03: decimal.Zero,
			ValPag:    sub.Total,
			NitOfe:    sub.Supplier.NIT,
			DocAdq:    sub.Customer.TaxID,
			ClTec:     sub.Config.TechnicalKey,
			TipoAmb:   sub.Config.AmbientCode(),
		})
	}
	pin := sub.Config.SoftwarePIN
	if pin == "" {
		// En dev no hay software registrado; la clave técnica hace sus veces.
		pin = sub.Config.TechnicalKey
	}
	return keyCalculator.CalculateCude(&domdian.CudeParams{
		NumDoc:      sub.FullNumber(),
		FecDoc:      sub.IssueDate.Format("2006-01-02"),
		HorDoc:      sub.IssueDate.Format("15:04:05-07:00"),
		ValDoc:      net,
		ValImp_01:   sub.TaxTotal,
		ValImp_04:   decimal.Zero,
		ValImp_03:   decimal.Zero,
		ValTot:      sub.Total,
		NitOfe:      sub.Supplier.NIT,
		DocAdq:      sub.Customer.TaxID,
		SoftwarePIN: pin,
		TipoAmb:     sub.Config.AmbientCode(),
	})
}

// qrData cadena del código QR impreso en la representación gráfica.
func qrData(sub *domdian.Submission, key string) string {
	return strings.Join([]string{
		sub.FullNumber(),
		sub.IssueDate.Format("2006-01-02"),
		sub.Total.Round(2).StringFixed(2),
		string(sub.Kind),
		sub.TaxTotal.Round(2).StringFixed(2),
		key,
		qrBaseURL + key,
	}, "|")
}
