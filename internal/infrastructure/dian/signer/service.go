// Firma XAdES-EPES de facturas y notas electrónicas (Anexo Técnico 1.9).
// El nodo ds:Signature va dentro del segundo ext:ExtensionContent.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/stockflow-api/pkg/dian"
)

// signingTimeLayout formato de xades:SigningTime.
const signingTimeLayout = "2006-01-02T15:04:05.000Z"

// DigitalSignatureService firma documentos UBL con el certificado del emisor.
type DigitalSignatureService struct {
	now func() time.Time
}

// NewDigitalSignatureService crea el servicio con el reloj del sistema.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{now: time.Now}
}

// WithClock fija el reloj usado para xades:SigningTime.
func (s *DigitalSignatureService) WithClock(now func() time.Time) *DigitalSignatureService {
	s.now = now
	return s
}

// Sign implementa pkg/dian.Signer.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("dian: XML vacío")
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("dian: certificado sin cadena")
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("dian: el certificado debe incluir llave privada RSA")
	}
	leaf := cert.Leaf
	if leaf == nil {
		var err error
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, fmt.Errorf("dian: parsear certificado: %w", err)
		}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("dian: parsear XML: %w", err)
	}
	slot, err := signatureSlot(doc)
	if err != nil {
		return nil, err
	}

	// Con enveloped-signature el digest se calcula sobre el documento sin firma.
	canonical, err := canonicalize(xmlBytes)
	if err != nil {
		canonical = xmlBytes
	}
	docDigest := sha256.Sum256(canonical)

	signedInfo := buildSignedInfo(base64.StdEncoding.EncodeToString(docDigest[:]))
	siBytes, err := elementBytes(signedInfo)
	if err != nil {
		return nil, err
	}
	if c, err := canonicalize(siBytes); err == nil {
		siBytes = c
	}
	siHash := sha256.Sum256(siBytes)
	sigValue, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA256, siHash[:])
	if err != nil {
		return nil, fmt.Errorf("dian: firmar SignedInfo: %w", err)
	}

	sig := etree.NewElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NamespaceDS)
	sig.CreateAttr("xmlns:xades", NamespaceXAdES)
	sig.AddChild(signedInfo)
	sig.CreateElement("ds:SignatureValue").SetText(base64.StdEncoding.EncodeToString(sigValue))
	sig.CreateElement("ds:KeyInfo").
		CreateElement("ds:X509Data").
		CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(leaf.Raw))
	sig.CreateElement("ds:Object").AddChild(s.qualifyingProperties(leaf))

	slot.AddChild(sig)

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("dian: serializar XML firmado: %w", err)
	}
	return out.Bytes(), nil
}

// signatureSlot devuelve el segundo ext:ExtensionContent; el primero lleva los datos DIAN.
func signatureSlot(doc *etree.Document) (*etree.Element, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("dian: documento sin raíz")
	}
	contents := root.FindElements("./UBLExtensions/UBLExtension/ExtensionContent")
	if len(contents) < 2 {
		return nil, fmt.Errorf("dian: no se encontró el segundo ext:ExtensionContent para inyectar la firma")
	}
	return contents[1], nil
}

func buildSignedInfo(docDigestB64 string) *etree.Element {
	si := etree.NewElement("ds:SignedInfo")
	si.CreateAttr("xmlns:ds", NamespaceDS)
	si.CreateElement("ds:CanonicalizationMethod").CreateAttr("Algorithm", AlgC14N)
	si.CreateElement("ds:SignatureMethod").CreateAttr("Algorithm", AlgRSASHA256)

	ref := si.CreateElement("ds:Reference")
	ref.CreateAttr("URI", "#"+DocumentElementID)
	transforms := ref.CreateElement("ds:Transforms")
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", TransformEnveloped)
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", AlgC14N)
	ref.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	ref.CreateElement("ds:DigestValue").SetText(docDigestB64)
	return si
}

// qualifyingProperties SigningTime, SigningCertificate y la política de firma v2.
func (s *DigitalSignatureService) qualifyingProperties(leaf *x509.Certificate) *etree.Element {
	certDigest, issuer, serial := CertDigestAndIssuerSerial(leaf)

	qp := etree.NewElement("xades:QualifyingProperties")
	ssp := qp.CreateElement("xades:SignedProperties")
	ssp.CreateAttr("Id", "signed-props")
	props := ssp.CreateElement("xades:SignedSignatureProperties")
	props.CreateElement("xades:SigningTime").SetText(s.now().UTC().Format(signingTimeLayout))

	c := props.CreateElement("xades:SigningCertificate").CreateElement("xades:Cert")
	digest := c.CreateElement("xades:CertDigest")
	digest.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	digest.CreateElement("ds:DigestValue").SetText(certDigest)
	is := c.CreateElement("xades:IssuerSerial")
	is.CreateElement("ds:X509IssuerName").SetText(issuer)
	is.CreateElement("ds:X509SerialNumber").SetText(serial)

	policy := props.CreateElement("xades:SignaturePolicyIdentifier").CreateElement("xades:SignaturePolicyId")
	policy.CreateElement("xades:SigPolicyId").CreateElement("xades:Identifier").SetText(SignaturePolicyURLV2)
	if SigPolicyHashDigest != "" {
		h := policy.CreateElement("xades:SigPolicyHash")
		h.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
		h.CreateElement("ds:DigestValue").SetText(SigPolicyHashDigest)
	}
	return qp
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// elementBytes serializa un elemento suelto, sin declaración XML.
func elementBytes(e *etree.Element) ([]byte, error) {
	d := etree.NewDocument()
	d.SetRoot(e.Copy())
	b, err := d.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("dian: serializar SignedInfo: %w", err)
	}
	return b, nil
}

var _ dian.Signer = (*DigitalSignatureService)(nil)
