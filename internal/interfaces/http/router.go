package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockflow-api/internal/application/accounting"
	"github.com/jhoicas/stockflow-api/internal/application/auth"
	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// RouterDeps dependencias para el router. Auth, Idempotency y Metrics son opcionales.
type RouterDeps struct {
	Auth        *auth.AuthUseCase
	Invoices    *billing.InvoiceUseCase
	Lifecycle   *billing.Lifecycle
	Notes       *billing.NoteIssuer
	DianConfig  *billing.DianConfigUseCase
	PDF         *billing.PDFUseCase
	Journals    *accounting.JournalUseCase
	Modules     moduleChecker
	Idempotency idempotencyStore
	Metrics     prometheus.Gatherer
	JWTSecret   string
	JWTIssuer   string
	Logger      zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	// Auth (público); se registra antes del grupo protegido
	if deps.Auth != nil {
		app.Post("/api/auth/login", NewAuthHandler(deps.Auth, log).Login)
	}

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	idem := Idempotency(deps.Idempotency, log)
	perm := RequirePermission

	// Facturación electrónica
	billingModule := RequireModule(entity.ModuleBilling, deps.Modules, log)

	invoiceHandler := NewInvoiceHandler(deps.Invoices, deps.Lifecycle, deps.PDF, log)
	noteHandler := NewNoteHandler(deps.Notes, deps.PDF, log)

	invoices := api.Group("/invoices", billingModule)
	invoices.Post("/", perm(entity.PermInvoiceCreate), invoiceHandler.Create)
	invoices.Get("/", perm(entity.PermInvoiceRead), invoiceHandler.List)
	invoices.Get("/:id", perm(entity.PermInvoiceRead), invoiceHandler.GetByID)
	invoices.Post("/:id/send", perm(entity.PermInvoiceSend), idem, invoiceHandler.Send)
	invoices.Get("/:id/dian-status", perm(entity.PermInvoiceRead), invoiceHandler.Status)
	invoices.Post("/:id/void", perm(entity.PermInvoiceVoid), invoiceHandler.Void)
	invoices.Get("/:id/pdf", perm(entity.PermInvoiceRead), invoiceHandler.DownloadPDF)
	invoices.Post("/:id/credit-notes", perm(entity.PermNoteIssue), idem, noteHandler.IssueCredit)
	invoices.Post("/:id/debit-notes", perm(entity.PermNoteIssue), idem, noteHandler.IssueDebit)
	invoices.Get("/:id/notes", perm(entity.PermInvoiceRead), noteHandler.ListByInvoice)

	notes := api.Group("/notes", billingModule)
	notes.Get("/:id", perm(entity.PermInvoiceRead), noteHandler.GetByID)
	notes.Post("/:id/send", perm(entity.PermNoteIssue), idem, noteHandler.Send)
	notes.Get("/:id/dian-status", perm(entity.PermInvoiceRead), noteHandler.Status)
	notes.Get("/:id/pdf", perm(entity.PermInvoiceRead), noteHandler.DownloadPDF)

	settingsHandler := NewDianConfigHandler(deps.DianConfig, log)
	settings := api.Group("/settings/dian", billingModule, perm(entity.PermDianConfigure))
	settings.Get("/", settingsHandler.Get)
	settings.Put("/", settingsHandler.Put)
	settings.Patch("/", settingsHandler.Patch)

	// Contabilidad
	journalHandler := NewJournalHandler(deps.Journals, log)
	journals := api.Group("/journal-entries", RequireModule(entity.ModuleAccounting, deps.Modules, log))
	journals.Post("/", perm(entity.PermJournalWrite), journalHandler.Create)
	journals.Get("/", perm(entity.PermJournalRead), journalHandler.List)
	journals.Get("/:id", perm(entity.PermJournalRead), journalHandler.GetByID)
	journals.Post("/:id/post", perm(entity.PermJournalPost), journalHandler.Post)
	journals.Post("/:id/void", perm(entity.PermJournalVoid), journalHandler.Void)
}
