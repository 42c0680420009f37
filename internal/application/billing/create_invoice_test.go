package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

func TestCreateInvoice_ComputesTotalsFromProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	expected := dec("4109")
	inv, err := f.invoices.CreateInvoice(ctx, companyID, dto.CreateInvoiceRequest{
		CustomerID:    "cust-1",
		Date:          "2024-03-14",
		ExpectedTotal: &expected,
		Items: []dto.InvoiceItemRequest{
			{ProductID: "prod-1", Quantity: dec("2")},
			{ProductID: "prod-2", Quantity: dec("1"), Discount: dec("200")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.StatusDraft), inv.Status)
	assert.Empty(t, inv.Number)
	assert.Equal(t, "2024-03-14", inv.Date)
	assert.Equal(t, "Distribuciones del Valle", inv.CustomerName)
	requireDec(t, "4100", inv.Subtotal)
	requireDec(t, "200", inv.DiscountTotal)
	requireDec(t, "209", inv.TaxTotal) // 19 + (4000-200)*5 %
	requireDec(t, "4109", inv.GrandTotal)
	require.Len(t, inv.Details, 2)
	assert.Equal(t, "Café molido 500g", inv.Details[0].Description)
	requireDec(t, "5", inv.Details[1].TaxRate)
}

func TestCreateInvoice_FinalConsumer(t *testing.T) {
	f := newFixture(t)
	inv, err := f.invoices.CreateInvoice(context.Background(), companyID, dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "prod-1", Quantity: dec("1"), UnitPrice: dec("80")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Consumidor final", inv.CustomerName)
	requireDec(t, "95.2", inv.GrandTotal)
}

func TestCreateInvoice_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddCustomer(&entity.Customer{ID: "cust-bad", CompanyID: companyID, Name: "NIT errado", TaxID: "900123456-1", IdentificationType: "31"})
	rate16 := dec("16")
	wrong := dec("1")

	cases := []struct {
		name string
		in   dto.CreateInvoiceRequest
	}{
		{"sin líneas", dto.CreateInvoiceRequest{}},
		{"cantidad cero", dto.CreateInvoiceRequest{Items: []dto.InvoiceItemRequest{{ProductID: "prod-1"}}}},
		{"producto inexistente", dto.CreateInvoiceRequest{Items: []dto.InvoiceItemRequest{{ProductID: "nope", Quantity: dec("1")}}}},
		{"cliente inexistente", dto.CreateInvoiceRequest{CustomerID: "nope", Items: []dto.InvoiceItemRequest{{ProductID: "prod-1", Quantity: dec("1")}}}},
		{"NIT sin DV válido", dto.CreateInvoiceRequest{CustomerID: "cust-bad", Items: []dto.InvoiceItemRequest{{ProductID: "prod-1", Quantity: dec("1")}}}},
		{"IVA no vigente", dto.CreateInvoiceRequest{Items: []dto.InvoiceItemRequest{{ProductID: "prod-1", Quantity: dec("1"), TaxRate: &rate16}}}},
		{"descuento mayor al subtotal", dto.CreateInvoiceRequest{Items: []dto.InvoiceItemRequest{{ProductID: "prod-1", Quantity: dec("1"), Discount: dec("60")}}}},
		{"total esperado distinto", dto.CreateInvoiceRequest{ExpectedTotal: &wrong, Items: []dto.InvoiceItemRequest{{ProductID: "prod-1", Quantity: dec("1")}}}},
		{"fecha inválida", dto.CreateInvoiceRequest{Date: "15/03/2024", Items: []dto.InvoiceItemRequest{{ProductID: "prod-1", Quantity: dec("1")}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.invoices.CreateInvoice(ctx, companyID, tc.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	list, err := f.invoices.ListInvoices(ctx, companyID, "", "", dto.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestListInvoices_FiltersByStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	f.draftInvoice(t)
	sent := f.sentInvoice(t)

	list, err := f.invoices.ListInvoices(ctx, companyID, string(entity.StatusSent), "", dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, sent, list.Items[0].ID)
	assert.Equal(t, 20, list.Page.Limit)

	list, err = f.invoices.ListInvoices(ctx, "company-2", "", "", dto.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestVoidInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)

	t.Run("borrador sin número", func(t *testing.T) {
		id := f.draftInvoice(t)
		_, err := f.invoices.VoidInvoice(ctx, companyID, id, dto.VoidInvoiceRequest{})
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = f.invoices.VoidInvoice(ctx, companyID, id, dto.VoidInvoiceRequest{Reason: "   "})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, entity.StatusDraft, f.invoice(t, id).Status)

		inv, err := f.invoices.VoidInvoice(ctx, companyID, id, dto.VoidInvoiceRequest{Reason: "pedido cancelado\n"})
		require.NoError(t, err)
		assert.Equal(t, string(entity.StatusVoided), inv.Status)
		assert.Equal(t, "pedido cancelado", inv.VoidReason)

		_, err = f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
		assert.ErrorIs(t, err, domain.ErrPrecondition)
	})

	t.Run("enviada no se anula", func(t *testing.T) {
		id := f.sentInvoice(t)
		_, err := f.invoices.VoidInvoice(ctx, companyID, id, dto.VoidInvoiceRequest{Reason: "error"})
		assert.ErrorIs(t, err, domain.ErrPrecondition)
	})

	t.Run("envío fallido deja hueco registrado", func(t *testing.T) {
		id := f.draftInvoice(t)
		f.gw.setSubmit(func(context.Context, *dian.Submission) (*dian.Response, error) { return nil, errNetwork })
		_, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
		require.NoError(t, err)
		f.gw.setSubmit(nil)

		inv, err := f.invoices.VoidInvoice(ctx, companyID, id, dto.VoidInvoiceRequest{Reason: "cliente desistió"})
		require.NoError(t, err)
		assert.Equal(t, string(entity.StatusVoided), inv.Status)
		assert.NotEmpty(t, inv.FullNumber)
		assert.Equal(t, 1, f.obs.discardedCount(entity.DocumentTypeInvoice))
	})
}
