package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// InvoiceUseCase alta, consulta y anulación de facturas. El envío vive en Lifecycle.
type InvoiceUseCase struct {
	*core
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(d Dependencies) *InvoiceUseCase {
	return &InvoiceUseCase{core: newCore(d)}
}

// CreateInvoice crea la factura en DRAFT, sin consecutivo. Precio e IVA vacíos se toman del producto.
func (uc *InvoiceUseCase) CreateInvoice(ctx context.Context, companyID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	now := uc.Now()
	date := now
	if in.Date != "" {
		date, _ = time.Parse("2006-01-02", in.Date)
	}
	customer, err := uc.customerFor(ctx, companyID, in.CustomerID)
	if err != nil {
		return nil, err
	}

	inv := &entity.Invoice{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		CustomerID:   in.CustomerID,
		Date:         date,
		DianTracking: entity.DianTracking{Status: entity.StatusDraft},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, item := range in.Items {
		p, err := uc.Products.GetByID(ctx, companyID, item.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: el producto %s no existe", domain.ErrValidation, item.ProductID)
		}
		price := item.UnitPrice
		if price.IsZero() {
			price = p.Price
		}
		rate := p.TaxRate
		if item.TaxRate != nil {
			rate = *item.TaxRate
		}
		desc := item.Description
		if desc == "" {
			desc = p.Name
		}
		d := entity.NewInvoiceDetail(p.ID, desc, item.Quantity, price, entity.NormalizeTaxRate(rate), item.Discount)
		d.ID = uuid.New().String()
		d.InvoiceID = inv.ID
		inv.Details = append(inv.Details, d)
	}
	inv.ComputeTotals()
	if in.ExpectedTotal != nil && !in.ExpectedTotal.Round(2).Equal(inv.GrandTotal.Round(2)) {
		return nil, fmt.Errorf("%w: total esperado %s, calculado %s",
			domain.ErrValidation, in.ExpectedTotal.StringFixed(2), inv.GrandTotal.StringFixed(2))
	}
	if err := dian.ValidateInvoice(inv, customer); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	err = uc.TxRunner.RunBilling(ctx, func(repos repository.TxRepos) error {
		if err := repos.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		for _, d := range inv.Details {
			if err := repos.Invoices.CreateDetail(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log := uc.docLogger(companyID, inv.ID, entity.DocumentTypeInvoice)
	log.Info().
		Str("grand_total", inv.GrandTotal.StringFixed(2)).
		Int("lines", len(inv.Details)).
		Msg("factura creada")
	return toInvoiceResponse(inv, customer.Name), nil
}

// GetInvoice obtiene una factura con su detalle.
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.Repos.Invoices.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
	}
	if inv.Details, err = uc.Repos.Invoices.GetDetails(ctx, inv.ID); err != nil {
		return nil, err
	}
	name := ""
	if c, err := uc.customerFor(ctx, companyID, inv.CustomerID); err == nil {
		name = c.Name
	}
	return toInvoiceResponse(inv, name), nil
}

// ListInvoices lista facturas de la empresa, sin detalle.
func (uc *InvoiceUseCase) ListInvoices(ctx context.Context, companyID, status, customerID string, page dto.PageRequest) (*dto.InvoiceListResponse, error) {
	page.DefaultPage()
	list, err := uc.Repos.Invoices.List(ctx, repository.InvoiceFilter{
		CompanyID:  companyID,
		Status:     entity.DocumentStatus(status),
		CustomerID: customerID,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return nil, err
	}
	out := &dto.InvoiceListResponse{
		Items: make([]dto.InvoiceResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, inv := range list {
		out.Items = append(out.Items, *toInvoiceResponse(inv, ""))
	}
	return out, nil
}

// VoidInvoice anula una factura que nunca llegó a la DIAN. Si un envío fallido ya le había
// asignado número, el hueco queda registrado en el log.
func (uc *InvoiceUseCase) VoidInvoice(ctx context.Context, companyID, id string, in dto.VoidInvoiceRequest) (*dto.InvoiceResponse, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := dto.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	docType := entity.DocumentTypeInvoice
	log := uc.docLogger(companyID, id, docType)
	var inv *entity.Invoice
	err := uc.TxRunner.RunBilling(ctx, func(repos repository.TxRepos) error {
		var err error
		inv, err = repos.Invoices.GetByIDForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
		}
		if inv.Status != entity.StatusDraft {
			return fmt.Errorf("%w: solo se anulan facturas en DRAFT (estado %s)", domain.ErrPrecondition, inv.Status)
		}
		if inv.HasNumber() && inv.LastSendError == "" {
			return fmt.Errorf("%w: hay un envío en curso para %s", domain.ErrPrecondition, inv.FullNumber())
		}
		inv.Status = entity.StatusVoided
		inv.VoidReason = in.Reason
		inv.UpdatedAt = uc.Now()
		return repos.Invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	if inv.HasNumber() {
		log.Warn().Str("event", "sequence_gap").Str("discarded_number", inv.FullNumber()).Msg("consecutivo anulado sin aceptación DIAN")
		uc.Observer.NumberDiscarded(docType)
	}
	uc.Observer.Transition(docType, entity.StatusVoided)
	log.Info().Str("reason", in.Reason).Msg("factura anulada")
	return toInvoiceResponse(inv, ""), nil
}

func toInvoiceResponse(inv *entity.Invoice, customerName string) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:            inv.ID,
		CompanyID:     inv.CompanyID,
		CustomerID:    inv.CustomerID,
		CustomerName:  customerName,
		Prefix:        inv.Prefix,
		Number:        inv.Number,
		Date:          inv.Date.Format("2006-01-02"),
		Subtotal:      inv.Subtotal,
		DiscountTotal: inv.DiscountTotal,
		TaxTotal:      inv.TaxTotal,
		GrandTotal:    inv.GrandTotal,
		Status:        string(inv.Status),
		CUFE:          inv.CUFE,
		QRData:        inv.QRData,
		TrackID:       inv.TrackID,
		DIANErrors:    inv.DIANErrors,
		LastSendError: inv.LastSendError,
		SendAttempts:  inv.SendAttempts,
		VoidReason:    inv.VoidReason,
	}
	if inv.HasNumber() {
		resp.FullNumber = inv.FullNumber()
	}
	for _, d := range inv.Details {
		resp.Details = append(resp.Details, dto.InvoiceDetailResponse{
			ID:          d.ID,
			ProductID:   d.ProductID,
			Description: d.Description,
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
			TaxRate:     d.TaxRate,
			Discount:    d.Discount,
			Subtotal:    d.Subtotal,
			TaxAmount:   d.TaxAmount,
		})
	}
	return resp
}
