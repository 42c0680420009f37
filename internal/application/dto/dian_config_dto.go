package dto

// DianConfigRequest body de PUT /api/settings/dian (reemplazo completo).
type DianConfigRequest struct {
	Environment         string              `json:"environment" validate:"required,oneof=dev test prod"`
	SoftwareID          string              `json:"software_id" validate:"max=100"`
	SoftwarePIN         string              `json:"software_pin" validate:"max=100"`
	TechnicalKey        string              `json:"technical_key" validate:"max=200"`
	TestSetID           string              `json:"test_set_id" validate:"max=100"`
	CertificatePath     string              `json:"certificate_path" validate:"max=500"`
	CertificateKeyPath  string              `json:"certificate_key_path" validate:"max=500"`
	CertificatePassword string              `json:"certificate_password" validate:"max=200"`
	Resolutions         []ResolutionRequest `json:"resolutions" validate:"omitempty,dive"`
}

// DianConfigPatchRequest body de PATCH /api/settings/dian.
// Campo ausente = sin cambio; null = borrar (salvo environment, que es obligatorio).
type DianConfigPatchRequest struct {
	Environment         Optional[string]              `json:"environment"`
	SoftwareID          Optional[string]              `json:"software_id"`
	SoftwarePIN         Optional[string]              `json:"software_pin"`
	TechnicalKey        Optional[string]              `json:"technical_key"`
	TestSetID           Optional[string]              `json:"test_set_id"`
	CertificatePath     Optional[string]              `json:"certificate_path"`
	CertificateKeyPath  Optional[string]              `json:"certificate_key_path"`
	CertificatePassword Optional[string]              `json:"certificate_password"`
	Resolutions         Optional[[]ResolutionRequest] `json:"resolutions"`
}

// ResolutionRequest rango de numeración de una familia (INVOICE, CREDIT_NOTE, DEBIT_NOTE).
type ResolutionRequest struct {
	DocumentType     string `json:"document_type" validate:"required,oneof=INVOICE CREDIT_NOTE DEBIT_NOTE"`
	ResolutionNumber string `json:"resolution_number" validate:"max=50"`
	Prefix           string `json:"prefix" validate:"max=10"`
	RangeFrom        int64  `json:"range_from" validate:"min=1"`
	RangeTo          int64  `json:"range_to" validate:"min=0"`
	DateFrom         string `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo           string `json:"date_to" validate:"required,datetime=2006-01-02"`
}

// DianConfigResponse configuración sin secretos.
type DianConfigResponse struct {
	Environment            string               `json:"environment"`
	SoftwareID             string               `json:"software_id,omitempty"`
	HasSoftwarePIN         bool                 `json:"has_software_pin"`
	HasTechnicalKey        bool                 `json:"has_technical_key"`
	TestSetID              string               `json:"test_set_id,omitempty"`
	CertificatePath        string               `json:"certificate_path,omitempty"`
	HasCertificatePassword bool                 `json:"has_certificate_password"`
	Readiness              DianReadiness        `json:"readiness"`
	Resolutions            []ResolutionResponse `json:"resolutions"`
}

// DianReadiness requisitos para poder enviar documentos.
type DianReadiness struct {
	HasResolution     bool     `json:"has_resolution"`
	HasSoftwareConfig bool     `json:"has_software_config"`
	HasCertificate    bool     `json:"has_certificate"`
	Ready             bool     `json:"ready"`
	Missing           []string `json:"missing,omitempty"`
}

// ResolutionResponse rango con su contador.
type ResolutionResponse struct {
	ID               string `json:"id"`
	DocumentType     string `json:"document_type"`
	ResolutionNumber string `json:"resolution_number,omitempty"`
	Prefix           string `json:"prefix"`
	RangeFrom        int64  `json:"range_from"`
	RangeTo          int64  `json:"range_to"`
	NextNumber       int64  `json:"next_number"`
	Remaining        int64  `json:"remaining"` // -1 = sin tope
	DateFrom         string `json:"date_from"`
	DateTo           string `json:"date_to"`
	IsActive         bool   `json:"is_active"`
}
