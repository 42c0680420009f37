package dian

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/dian/signer"
)

// certCache guarda los certificados ya cargados por ruta. Cambiar la ruta en la configuración
// del tenant fuerza una nueva carga.
type certCache struct {
	mu    sync.Mutex
	certs map[string]tls.Certificate
}

func newCertCache() *certCache {
	return &certCache{certs: map[string]tls.Certificate{}}
}

// load devuelve el certificado del tenant. .p12/.pfx usa la contraseña; el resto se lee como PEM.
func (c *certCache) load(cfg *entity.DianConfig) (tls.Certificate, error) {
	if cfg.CertificatePath == "" {
		return tls.Certificate{}, errors.New("dian: certificado de firma no configurado")
	}
	key := cfg.CertificatePath + "|" + cfg.CertificateKeyPath
	c.mu.Lock()
	defer c.mu.Unlock()
	if cert, ok := c.certs[key]; ok {
		return cert, nil
	}
	cert, err := loadCertificate(cfg)
	if err != nil {
		return tls.Certificate{}, err
	}
	if _, err := inspect(cert, time.Now()); err != nil {
		return tls.Certificate{}, err
	}
	c.certs[key] = cert
	return cert, nil
}

func loadCertificate(cfg *entity.DianConfig) (tls.Certificate, error) {
	var (
		cert tls.Certificate
		err  error
	)
	lower := strings.ToLower(cfg.CertificatePath)
	if strings.HasSuffix(lower, ".p12") || strings.HasSuffix(lower, ".pfx") {
		cert, err = signer.LoadFromP12(cfg.CertificatePath, cfg.CertificatePassword)
	} else {
		cert, err = signer.LoadFromPEM(cfg.CertificatePath, cfg.CertificateKeyPath)
	}
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("dian: cargar certificado: %w", err)
	}
	if len(cert.Certificate) == 0 || cert.PrivateKey == nil {
		return tls.Certificate{}, errors.New("dian: certificado sin llave privada")
	}
	return cert, nil
}

// CertificateInfo datos del certificado de firma de un tenant.
type CertificateInfo struct {
	Subject   string
	Issuer    string
	Serial    string
	Digest    string // SHA-256 en Base64, el mismo que va en XAdES
	NotBefore time.Time
	NotAfter  time.Time
	DaysLeft  int
}

// CheckCertificate carga el certificado configurado y verifica que esté vigente en now.
// Devuelve la información aun cuando el certificado está vencido.
func CheckCertificate(cfg *entity.DianConfig, now time.Time) (*CertificateInfo, error) {
	if cfg.CertificatePath == "" {
		return nil, errors.New("dian: certificado de firma no configurado")
	}
	cert, err := loadCertificate(cfg)
	if err != nil {
		return nil, err
	}
	return inspect(cert, now)
}

func inspect(cert tls.Certificate, now time.Time) (*CertificateInfo, error) {
	leaf := cert.Leaf
	if leaf == nil {
		var err error
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, fmt.Errorf("dian: leer certificado: %w", err)
		}
	}
	digest, issuer, serial := signer.CertDigestAndIssuerSerial(leaf)
	info := &CertificateInfo{
		Subject:   leaf.Subject.String(),
		Issuer:    issuer,
		Serial:    serial,
		Digest:    digest,
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
		DaysLeft:  int(leaf.NotAfter.Sub(now).Hours() / 24),
	}
	switch {
	case now.Before(leaf.NotBefore):
		return info, fmt.Errorf("dian: el certificado es válido desde %s", leaf.NotBefore.Format(time.DateOnly))
	case now.After(leaf.NotAfter):
		return info, fmt.Errorf("dian: el certificado venció el %s", leaf.NotAfter.Format(time.DateOnly))
	}
	return info, nil
}
