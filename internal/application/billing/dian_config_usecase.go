package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// DianConfigUseCase lectura y edición de la configuración DIAN y los rangos de numeración del tenant.
type DianConfigUseCase struct {
	*core
}

// NewDianConfigUseCase construye el caso de uso.
func NewDianConfigUseCase(d Dependencies) *DianConfigUseCase {
	return &DianConfigUseCase{core: newCore(d)}
}

// Get devuelve la configuración sin secretos y qué falta para poder enviar.
func (uc *DianConfigUseCase) Get(ctx context.Context, companyID string) (*dto.DianConfigResponse, error) {
	cfg, err := uc.Repos.Configs.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &entity.DianConfig{CompanyID: companyID, Environment: entity.DianEnvDev}
	}
	if cfg.Resolutions, err = uc.Repos.Resolutions.ListByCompany(ctx, companyID); err != nil {
		return nil, err
	}
	return uc.toResponse(cfg), nil
}

// Put reemplaza la configuración completa y hace upsert de los rangos enviados.
func (uc *DianConfigUseCase) Put(ctx context.Context, companyID string, in dto.DianConfigRequest) (*dto.DianConfigResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	cfg := &entity.DianConfig{
		CompanyID:           companyID,
		Environment:         in.Environment,
		SoftwareID:          in.SoftwareID,
		SoftwarePIN:         in.SoftwarePIN,
		TechnicalKey:        in.TechnicalKey,
		TestSetID:           in.TestSetID,
		CertificatePath:     in.CertificatePath,
		CertificateKeyPath:  in.CertificateKeyPath,
		CertificatePassword: in.CertificatePassword,
	}
	return uc.save(ctx, cfg, in.Resolutions)
}

// Patch aplica solo los campos presentes. null borra el valor; environment no admite null.
func (uc *DianConfigUseCase) Patch(ctx context.Context, companyID string, in dto.DianConfigPatchRequest) (*dto.DianConfigResponse, error) {
	cfg, err := uc.Repos.Configs.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &entity.DianConfig{CompanyID: companyID, Environment: entity.DianEnvDev}
	}
	if in.Environment.Set {
		switch {
		case in.Environment.Null:
			return nil, fmt.Errorf("%w: environment no puede ser null", domain.ErrValidation)
		case in.Environment.Value != entity.DianEnvDev && in.Environment.Value != entity.DianEnvTest && in.Environment.Value != entity.DianEnvProd:
			return nil, fmt.Errorf("%w: environment debe ser dev, test o prod", domain.ErrValidation)
		}
		cfg.Environment = in.Environment.Value
	}
	patch(&cfg.SoftwareID, in.SoftwareID)
	patch(&cfg.SoftwarePIN, in.SoftwarePIN)
	patch(&cfg.TechnicalKey, in.TechnicalKey)
	patch(&cfg.TestSetID, in.TestSetID)
	patch(&cfg.CertificatePath, in.CertificatePath)
	patch(&cfg.CertificateKeyPath, in.CertificateKeyPath)
	patch(&cfg.CertificatePassword, in.CertificatePassword)

	var resolutions []dto.ResolutionRequest
	if in.Resolutions.Set {
		if in.Resolutions.Null {
			return nil, fmt.Errorf("%w: resolutions no puede ser null", domain.ErrValidation)
		}
		resolutions = in.Resolutions.Value
		for i := range resolutions {
			if err := dto.Validate(resolutions[i]); err != nil {
				return nil, fmt.Errorf("%w: resolutions[%d]: %w", domain.ErrValidation, i, err)
			}
		}
	}
	return uc.save(ctx, cfg, resolutions)
}

func patch(dst *string, o dto.Optional[string]) {
	if o.Set {
		*dst = o.Value
	}
}

func (uc *DianConfigUseCase) save(ctx context.Context, cfg *entity.DianConfig, in []dto.ResolutionRequest) (*dto.DianConfigResponse, error) {
	resolutions := make([]*entity.BillingResolution, 0, len(in))
	for _, r := range in {
		res, err := toResolution(cfg.CompanyID, r)
		if err != nil {
			return nil, err
		}
		resolutions = append(resolutions, res)
	}
	cfg.UpdatedAt = uc.Now()
	err := uc.TxRunner.RunBilling(ctx, func(repos repository.TxRepos) error {
		if err := repos.Configs.Save(ctx, cfg); err != nil {
			return err
		}
		for _, res := range resolutions {
			if err := repos.Resolutions.Upsert(ctx, res); err != nil {
				return err
			}
		}
		var err error
		cfg.Resolutions, err = repos.Resolutions.ListByCompany(ctx, cfg.CompanyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.Logger.Info().
		Str("company_id", cfg.CompanyID).
		Str("environment", cfg.Environment).
		Int("resolutions", len(resolutions)).
		Msg("configuración DIAN actualizada")
	return uc.toResponse(cfg), nil
}

func toResolution(companyID string, r dto.ResolutionRequest) (*entity.BillingResolution, error) {
	from, _ := time.Parse("2006-01-02", r.DateFrom)
	to, _ := time.Parse("2006-01-02", r.DateTo)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: la vigencia de %s termina antes de empezar", domain.ErrValidation, r.DocumentType)
	}
	res := &entity.BillingResolution{
		CompanyID:        companyID,
		DocumentType:     entity.DocumentType(r.DocumentType),
		ResolutionNumber: r.ResolutionNumber,
		Prefix:           r.Prefix,
		RangeFrom:        r.RangeFrom,
		RangeTo:          r.RangeTo,
		NextNumber:       r.RangeFrom,
		DateFrom:         from,
		DateTo:           to,
		IsActive:         true,
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return res, nil
}

func (uc *DianConfigUseCase) toResponse(cfg *entity.DianConfig) *dto.DianConfigResponse {
	now := uc.Now()
	resp := &dto.DianConfigResponse{
		Environment:            cfg.Environment,
		SoftwareID:             cfg.SoftwareID,
		HasSoftwarePIN:         cfg.SoftwarePIN != "",
		HasTechnicalKey:        cfg.TechnicalKey != "",
		TestSetID:              cfg.TestSetID,
		CertificatePath:        cfg.CertificatePath,
		HasCertificatePassword: cfg.CertificatePassword != "",
		Readiness: dto.DianReadiness{
			HasResolution:     cfg.HasResolution(now),
			HasSoftwareConfig: cfg.HasSoftwareConfig(),
			HasCertificate:    cfg.HasCertificate(),
			Ready:             cfg.IsReady(now),
			Missing:           cfg.Missing(now),
		},
		Resolutions: make([]dto.ResolutionResponse, 0, len(cfg.Resolutions)),
	}
	for _, r := range cfg.Resolutions {
		resp.Resolutions = append(resp.Resolutions, dto.ResolutionResponse{
			ID:               r.ID,
			DocumentType:     string(r.DocumentType),
			ResolutionNumber: r.ResolutionNumber,
			Prefix:           r.Prefix,
			RangeFrom:        r.RangeFrom,
			RangeTo:          r.RangeTo,
			NextNumber:       r.NextNumber,
			Remaining:        r.Remaining(),
			DateFrom:         r.DateFrom.Format("2006-01-02"),
			DateTo:           r.DateTo.Format("2006-01-02"),
			IsActive:         r.IsActive,
		})
	}
	return resp
}
