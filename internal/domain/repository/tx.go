package repository

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Invoices    InvoiceRepository
	Notes       NoteRepository
	Resolutions BillingResolutionRepository
	Configs     DianConfigRepository
	Journals    JournalRepository
}
