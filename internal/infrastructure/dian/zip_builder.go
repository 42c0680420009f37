package dian

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zip"

	domdian "github.com/jhoicas/stockflow-api/internal/domain/dian"
)

// compressXMLToZip empaqueta el XML firmado en un ZIP en memoria con una única entrada.
func compressXMLToZip(xmlBytes []byte, xmlFilename string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create(xmlFilename)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", xmlFilename, err)
	}
	if _, err := fw.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// filenames nombres del XML y del ZIP: {NIT sin DV}{PREFIJO}{NÚMERO}.
func filenames(sub *domdian.Submission) (xmlName, zipName string) {
	nit := sub.Supplier.NIT
	if idx := strings.Index(nit, "-"); idx != -1 {
		nit = nit[:idx]
	}
	base := normalizeNIT(nit) + strings.TrimSpace(sub.Prefix) + strings.TrimSpace(sub.Number)
	return base + ".xml", base + ".zip"
}
