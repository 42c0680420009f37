package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// numberRange nodo NumberRangeResponse de GetNumberingRange (o su exportación desde el portal).
type numberRange struct {
	ResolutionNumber string `xml:"ResolutionNumber"`
	Prefix           string `xml:"Prefix"`
	FromNumber       int64  `xml:"FromNumber"`
	ToNumber         int64  `xml:"ToNumber"`
	ValidDateFrom    string `xml:"ValidDateFrom"`
	ValidDateTo      string `xml:"ValidDateTo"`
	TechnicalKey     string `xml:"TechnicalKey"`
}

const dianDate = "2006-01-02"

// parseRanges lee todos los NumberRangeResponse del documento, con o sin sobre SOAP.
// Los XML de la DIAN suelen venir en ISO-8859-1.
func parseRanges(r io.Reader) ([]numberRange, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	var out []numberRange
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("leer XML: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "NumberRangeResponse" {
			continue
		}
		var nr numberRange
		if err := dec.DecodeElement(&nr, &se); err != nil {
			return nil, fmt.Errorf("decodificar rango: %w", err)
		}
		out = append(out, nr)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("el archivo no contiene NumberRangeResponse")
	}
	return out, nil
}

// pick selecciona el rango del prefijo pedido; vacío exige que haya uno solo.
func pick(ranges []numberRange, prefix string) (numberRange, error) {
	if prefix == "" {
		if len(ranges) != 1 {
			return numberRange{}, fmt.Errorf("hay %d rangos; indicar -prefix", len(ranges))
		}
		return ranges[0], nil
	}
	for _, r := range ranges {
		if strings.EqualFold(strings.TrimSpace(r.Prefix), prefix) {
			return r, nil
		}
	}
	return numberRange{}, fmt.Errorf("no hay rango con prefijo %q", prefix)
}

// toResolution convierte el rango al registro de numeración de la familia.
func (n numberRange) toResolution(companyID string, docType entity.DocumentType) (*entity.BillingResolution, error) {
	from, err := time.Parse(dianDate, strings.TrimSpace(n.ValidDateFrom))
	if err != nil {
		return nil, fmt.Errorf("ValidDateFrom: %w", err)
	}
	to, err := time.Parse(dianDate, strings.TrimSpace(n.ValidDateTo))
	if err != nil {
		return nil, fmt.Errorf("ValidDateTo: %w", err)
	}
	res := &entity.BillingResolution{
		CompanyID:        companyID,
		DocumentType:     docType,
		ResolutionNumber: strings.TrimSpace(n.ResolutionNumber),
		Prefix:           strings.TrimSpace(n.Prefix),
		RangeFrom:        n.FromNumber,
		RangeTo:          n.ToNumber,
		DateFrom:         from,
		DateTo:           to,
		IsActive:         true,
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}
