package dian

import "crypto/tls"

// Signer firma documentos UBL (factura, nota crédito, nota débito) con XAdES-EPES.
// El XML de entrada debe traer el segundo ext:ExtensionContent vacío y el Id del
// elemento raíz al que apunta la Reference.
type Signer interface {
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}
