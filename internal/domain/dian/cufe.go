// Package dian: CUFE (facturas) y CUDE (notas crédito/débito), Anexo Técnico DIAN 1.9.
// Ambos son SHA-384 en hex sobre una cadena sin separadores; cambian la hora y el secreto.

package dian

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Códigos de impuesto DIAN en la cadena.
const (
	CodImpIVA         = "01" // IVA
	CodImpImpoconsumo = "04" // Impuesto Nacional al Consumo
	CodImpICA         = "03" // ICA
)

// CufeParams datos del CUFE en el orden exigido por la DIAN.
type CufeParams struct {
	NumFac    string          // Prefijo + número, sin espacios
	FecFac    string          // YYYY-MM-DD
	ValFac    decimal.Decimal // Valor sin impuestos
	ValImp_01 decimal.Decimal
	ValImp_04 decimal.Decimal
	ValImp_03 decimal.Decimal
	ValPag    decimal.Decimal // Total a pagar
	NitOfe    string
	DocAdq    string
	ClTec     string // Clave técnica de la resolución
	TipoAmb   string // 1 = producción, 2 = pruebas
}

// CudeParams datos del CUDE de una nota. Lleva hora de emisión y el PIN del software.
type CudeParams struct {
	NumDoc      string
	FecDoc      string // YYYY-MM-DD
	HorDoc      string // HH:MM:SS-05:00
	ValDoc      decimal.Decimal
	ValImp_01   decimal.Decimal
	ValImp_04   decimal.Decimal
	ValImp_03   decimal.Decimal
	ValTot      decimal.Decimal
	NitOfe      string
	DocAdq      string
	SoftwarePIN string
	TipoAmb     string
}

// documentKey campos comunes a CUFE y CUDE.
type documentKey struct {
	number, date, time  string
	net, iva, inc, ica  decimal.Decimal
	total               decimal.Decimal
	issuer, buyer       string
	secret, environment string
}

var (
	errNoNumber = errors.New("dian: número del documento obligatorio")
	errNoDate   = errors.New("dian: fecha de emisión obligatoria")
	errNoParty  = errors.New("dian: NIT del emisor y documento del adquiriente obligatorios")
)

func (k documentKey) hash() (string, error) {
	number := strings.Join(strings.Fields(k.number), "")
	if number == "" {
		return "", errNoNumber
	}
	if k.date == "" {
		return "", errNoDate
	}
	issuer, buyer := onlyDigits(k.issuer), onlyDigits(k.buyer)
	if issuer == "" || buyer == "" {
		return "", errNoParty
	}
	env := k.environment
	if env == "" {
		env = "1"
	}

	var b strings.Builder
	b.WriteString(number)
	b.WriteString(k.date)
	b.WriteString(k.time)
	b.WriteString(formatAmount(k.net))
	b.WriteString(CodImpIVA + formatAmount(k.iva))
	b.WriteString(CodImpImpoconsumo + formatAmount(k.inc))
	b.WriteString(CodImpICA + formatAmount(k.ica))
	b.WriteString(formatAmount(k.total))
	b.WriteString(issuer)
	b.WriteString(buyer)
	b.WriteString(k.secret)
	b.WriteString(env)

	sum := sha512.Sum384([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// CufeCalculatorService calcula CUFE y CUDE.
type CufeCalculatorService struct{}

func NewCufeCalculatorService() *CufeCalculatorService {
	return &CufeCalculatorService{}
}

// Calculate CUFE = NumFac+FecFac+ValFac+01+ValImp1+04+ValImp2+03+ValImp3+ValPag+NitOFE+DocAdq+ClTec+TipoAmb.
func (s *CufeCalculatorService) Calculate(p *CufeParams) (string, error) {
	if p == nil {
		return "", errors.New("dian: CufeParams es obligatorio")
	}
	if p.ClTec == "" {
		return "", errors.New("dian: ClTec es obligatoria para el CUFE")
	}
	return documentKey{
		number: p.NumFac, date: p.FecFac,
		net: p.ValFac, iva: p.ValImp_01, inc: p.ValImp_04, ica: p.ValImp_03, total: p.ValPag,
		issuer: p.NitOfe, buyer: p.DocAdq,
		secret: p.ClTec, environment: p.TipoAmb,
	}.hash()
}

// CalculateCude CUDE = NumDoc+FecDoc+HorDoc+ValDoc+01+ValImp1+04+ValImp2+03+ValImp3+ValTot+NitOFE+DocAdq+PIN+TipoAmb.
func (s *CufeCalculatorService) CalculateCude(p *CudeParams) (string, error) {
	if p == nil {
		return "", errors.New("dian: CudeParams es obligatorio")
	}
	if p.HorDoc == "" {
		return "", errors.New("dian: hora de emisión obligatoria para el CUDE")
	}
	if p.SoftwarePIN == "" {
		return "", errors.New("dian: el PIN del software es obligatorio para el CUDE")
	}
	return documentKey{
		number: p.NumDoc, date: p.FecDoc, time: p.HorDoc,
		net: p.ValDoc, iva: p.ValImp_01, inc: p.ValImp_04, ica: p.ValImp_03, total: p.ValTot,
		issuer: p.NitOfe, buyer: p.DocAdq,
		secret: p.SoftwarePIN, environment: p.TipoAmb,
	}.hash()
}

// formatAmount punto decimal, dos decimales, sin separador de miles (1500.00).
func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
