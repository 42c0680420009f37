package signer_test

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow-api/internal/infrastructure/dian/signer"
)

const unsignedInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2" xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2" xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2" Id="document-id">
<ext:UBLExtensions>
<ext:UBLExtension><ext:ExtensionContent><DianExtensions/></ext:ExtensionContent></ext:UBLExtension>
<ext:UBLExtension><ext:ExtensionContent></ext:ExtensionContent></ext:UBLExtension>
</ext:UBLExtensions>
<cbc:ID>SETP990000001</cbc:ID>
</Invoice>`

func rsaCert(t *testing.T) (tls.Certificate, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tpl := &x509.Certificate{
		SerialNumber: big.NewInt(0xbeef),
		Subject:      pkix.Name{CommonName: "Andina SAS", Organization: []string{"Andina & Cía"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, key
}

func TestSign_InyectaFirmaVerificable(t *testing.T) {
	cert, key := rsaCert(t)
	at := time.Date(2024, 3, 1, 15, 4, 5, 0, time.FixedZone("COT", -5*3600))
	svc := signer.NewDigitalSignatureService().WithClock(func() time.Time { return at })

	out, err := svc.Sign([]byte(unsignedInvoice), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	contents := doc.Root().FindElements("./UBLExtensions/UBLExtension/ExtensionContent")
	require.Len(t, contents, 2)
	assert.Nil(t, contents[0].FindElement("./Signature"), "la primera extensión queda intacta")
	sig := contents[1].FindElement("./Signature")
	require.NotNil(t, sig)

	assert.Equal(t, "#document-id", sig.FindElement("./SignedInfo/Reference").SelectAttrValue("URI", ""))
	assert.Equal(t, "2024-03-01T20:04:05.000Z", sig.FindElement(".//SigningTime").Text())
	assert.Equal(t, "beef", sig.FindElement(".//X509SerialNumber").Text())
	assert.Contains(t, sig.FindElement(".//X509IssuerName").Text(), "Andina & Cía")
	assert.Equal(t, signer.SignaturePolicyURLV2, sig.FindElement(".//SigPolicyId/Identifier").Text())

	// SignatureValue corresponde a SignedInfo con la llave pública del certificado
	si := etree.NewDocument()
	si.SetRoot(sig.FindElement("./SignedInfo").Copy())
	siBytes, err := si.WriteToBytes()
	require.NoError(t, err)
	canonical, err := signer.Canonicalize(siBytes)
	require.NoError(t, err)
	h := sha256.Sum256(canonical)
	sigValue, err := base64.StdEncoding.DecodeString(sig.FindElement("./SignatureValue").Text())
	require.NoError(t, err)
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, h[:], sigValue))
}

func TestSign_Rechazos(t *testing.T) {
	cert, _ := rsaCert(t)
	svc := signer.NewDigitalSignatureService()

	_, err := svc.Sign(nil, cert)
	assert.Error(t, err)

	_, err = svc.Sign([]byte(`<Invoice><UBLExtensions><UBLExtension><ExtensionContent/></UBLExtension></UBLExtensions></Invoice>`), cert)
	assert.ErrorContains(t, err, "segundo ext:ExtensionContent")

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, err = svc.Sign([]byte(unsignedInvoice), tls.Certificate{Certificate: cert.Certificate, PrivateKey: ecKey})
	assert.ErrorContains(t, err, "RSA")

	_, err = svc.Sign([]byte(unsignedInvoice), tls.Certificate{PrivateKey: cert.PrivateKey})
	assert.Error(t, err)
}
