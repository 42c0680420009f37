package entity

import "time"

// Ambientes DIAN del tenant.
const (
	DianEnvDev  = "dev"  // No envía al WS; simula la respuesta
	DianEnvTest = "test" // Habilitación (vpfe-hab)
	DianEnvProd = "prod" // Producción (vpfe)
)

// DianConfig configuración de facturación electrónica de una empresa (una por tenant).
// Los rangos de numeración viven en BillingResolution; Resolutions se llena al consultar.
type DianConfig struct {
	CompanyID           string
	Environment         string // dev | test | prod
	SoftwareID          string
	SoftwarePIN         string
	TechnicalKey        string // Clave técnica de la resolución (CUFE)
	TestSetID           string // Set de pruebas de habilitación
	CertificatePath     string // Ruta al .p12/.pfx o PEM
	CertificateKeyPath  string // Llave PEM si el certificado va separado
	CertificatePassword string
	Resolutions         []*BillingResolution
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AmbientCode devuelve el código de ambiente para CUFE/CUDE: "1" producción, "2" pruebas.
func (c *DianConfig) AmbientCode() string {
	if c.Environment == DianEnvProd {
		return "1"
	}
	return "2"
}

// ActiveResolution devuelve el rango activo de la familia indicada, o nil.
func (c *DianConfig) ActiveResolution(t DocumentType) *BillingResolution {
	for _, r := range c.Resolutions {
		if r.DocumentType == t && r.IsActive {
			return r
		}
	}
	return nil
}

// HasResolution informa si hay rango de facturas activo y vigente a la fecha.
// DateFrom y DateTo son días completos.
func (c *DianConfig) HasResolution(now time.Time) bool {
	r := c.ActiveResolution(DocumentTypeInvoice)
	if r == nil {
		return false
	}
	if !r.DateFrom.IsZero() && now.Before(r.DateFrom) {
		return false
	}
	if !r.DateTo.IsZero() && now.After(r.DateTo.Add(24*time.Hour)) {
		return false
	}
	return true
}

// HasSoftwareConfig informa si están los datos del software registrado ante la DIAN.
func (c *DianConfig) HasSoftwareConfig() bool {
	if c.Environment == DianEnvDev {
		return c.TechnicalKey != ""
	}
	return c.SoftwareID != "" && c.SoftwarePIN != "" && c.TechnicalKey != ""
}

// HasCertificate informa si hay certificado de firma configurado. En dev no se exige.
func (c *DianConfig) HasCertificate() bool {
	if c.Environment == DianEnvDev {
		return true
	}
	return c.CertificatePath != ""
}

// IsReady evalúa los tres requisitos juntos: sin ellos no se consume consecutivo.
func (c *DianConfig) IsReady(now time.Time) bool {
	return c.HasResolution(now) && c.HasSoftwareConfig() && c.HasCertificate()
}

// Missing lista los requisitos faltantes (para mensajes de error).
func (c *DianConfig) Missing(now time.Time) []string {
	var out []string
	if !c.HasResolution(now) {
		out = append(out, "resolución de facturación activa")
	}
	if !c.HasSoftwareConfig() {
		out = append(out, "software DIAN (id, pin, clave técnica)")
	}
	if !c.HasCertificate() {
		out = append(out, "certificado de firma digital")
	}
	return out
}
